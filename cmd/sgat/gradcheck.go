package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/sgat/autodiff"
	"github.com/born-ml/sgat/backend/cpu"
	"github.com/born-ml/sgat/sparse"
	"github.com/born-ml/sgat/tensor"
)

// errGradientMismatch is returned when a sparse gradient differs from its
// dense counterpart by more than the tolerance.
var errGradientMismatch = errors.New("gradient mismatch")

type gradCheckResult struct {
	Check   string
	Input   string
	MaxDiff float64
}

// gradSizes are the operand sizes of the generated problems.
const (
	gradM       = 12
	gradK       = 7
	gradN       = 9
	gradDensity = 0.3
)

type gradBackend = *autodiff.Backend[*cpu.Backend]

// gradCheck computes the gradients of the same scalar loss twice, once
// through the sparse operations and once through dense equivalents.
type gradCheck struct {
	name   string
	inputs []string
	run    func(b gradBackend, sp *sparse.Ops, rng *rand.Rand) (sparseGrads, denseGrads []*tensor.RawTensor, err error)
}

var gradChecks = []gradCheck{
	{name: "matmul_masked", inputs: []string{"a", "b"}, run: checkMatMulMasked},
	{name: "matmul", inputs: []string{"sparse values", "dense"}, run: checkMatMul},
	{name: "sum", inputs: []string{"values"}, run: checkSum},
}

func newGradCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gradcheck",
		Short: "Compare sparse gradients with their dense equivalents on random inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			results, err := runGradCheck(cfg.GradCheck.Seed, cfg.ParallelSettings())
			if err != nil {
				return err
			}
			renderGradCheckTable(cmd.OutOrStdout(), results, cfg.GradCheck.Tolerance)

			var failed []string
			for _, r := range results {
				if r.MaxDiff > cfg.GradCheck.Tolerance {
					failed = append(failed, r.Check+"/"+r.Input)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%w above %g: %v", errGradientMismatch, cfg.GradCheck.Tolerance, failed)
			}
			return nil
		},
	}
}

func runGradCheck(seed int64, par cpu.ParallelConfig) ([]gradCheckResult, error) {
	backend := autodiff.New(cpu.NewWithConfig(par))
	sp := sparse.New(backend, sparse.WithLogger(slog.Default()))
	rng := rand.New(rand.NewSource(seed))

	var results []gradCheckResult
	for _, c := range gradChecks {
		sparseGrads, denseGrads, err := c.run(backend, sp, rng)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		for i, input := range c.inputs {
			diff := maxAbsDiff(sparseGrads[i].AsFloat64(), denseGrads[i].AsFloat64())
			slog.Debug("gradcheck", "check", c.name, "input", input, "max_diff", diff)
			results = append(results, gradCheckResult{Check: c.name, Input: input, MaxDiff: diff})
		}
	}
	return results, nil
}

// gradOnce records f on a fresh tape scope and differentiates its output
// with respect to inputs. The scope is released before returning.
func gradOnce(b gradBackend, f func() (*tensor.RawTensor, error), inputs ...*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	release := b.Tape().Scope()
	defer release()

	loss, err := f()
	if err != nil {
		return nil, err
	}
	return autodiff.Grad(b, loss, inputs...)
}

// weighted returns sum(x * w), a scalar loss whose gradient with respect to
// x is w.
func weighted(b gradBackend, x, w *tensor.RawTensor) *tensor.RawTensor {
	return b.Sum(b.Mul(x, w))
}

func randomVector(rng *rand.Rand, n int) (*tensor.RawTensor, error) {
	data := make([]float64, n)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return tensor.FromValues(data, tensor.Shape{n}, tensor.CPU)
}

func checkMatMulMasked(b gradBackend, sp *sparse.Ops, rng *rand.Rand) ([]*tensor.RawTensor, []*tensor.RawTensor, error) {
	a, err := randomDense(rng, gradM, gradK)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := randomDense(rng, gradK, gradN)
	if err != nil {
		return nil, nil, err
	}
	mask, err := randomSparse(sp, rng, gradM, gradN, gradDensity, false)
	if err != nil {
		return nil, nil, err
	}
	w, err := randomVector(rng, mask.NNZ())
	if err != nil {
		return nil, nil, err
	}
	weights, err := sparse.GradOf(mask, w)
	if err != nil {
		return nil, nil, err
	}
	denseWeights, err := sp.ToDense(weights)
	if err != nil {
		return nil, nil, err
	}

	sparseGrads, err := gradOnce(b, func() (*tensor.RawTensor, error) {
		out, err := sp.MatMulMasked(a, rhs, mask)
		if err != nil {
			return nil, err
		}
		return weighted(b, out.Values(), w), nil
	}, a, rhs)
	if err != nil {
		return nil, nil, err
	}
	denseGrads, err := gradOnce(b, func() (*tensor.RawTensor, error) {
		return weighted(b, b.MatMul(a, rhs), denseWeights), nil
	}, a, rhs)
	return sparseGrads, denseGrads, err
}

func checkMatMul(b gradBackend, sp *sparse.Ops, rng *rand.Rand) ([]*tensor.RawTensor, []*tensor.RawTensor, error) {
	s, err := randomSparse(sp, rng, gradM, gradK, gradDensity, true)
	if err != nil {
		return nil, nil, err
	}
	d, err := randomDense(rng, gradK, gradN)
	if err != nil {
		return nil, nil, err
	}
	w, err := randomDense(rng, gradM, gradN)
	if err != nil {
		return nil, nil, err
	}

	sparseGrads, err := gradOnce(b, func() (*tensor.RawTensor, error) {
		out, err := sp.MatMul(s, d)
		if err != nil {
			return nil, err
		}
		return weighted(b, out, w), nil
	}, s.Values(), d)
	if err != nil {
		return nil, nil, err
	}
	// Differentiating through ToDense gathers the dense gradient at the
	// pattern, which is what the sparse gradient must equal.
	denseGrads, err := gradOnce(b, func() (*tensor.RawTensor, error) {
		dense, err := sp.ToDense(s)
		if err != nil {
			return nil, err
		}
		return weighted(b, b.MatMul(dense, d), w), nil
	}, s.Values(), d)
	return sparseGrads, denseGrads, err
}

func checkSum(b gradBackend, sp *sparse.Ops, rng *rand.Rand) ([]*tensor.RawTensor, []*tensor.RawTensor, error) {
	x, err := randomSparse(sp, rng, gradM, gradN, gradDensity, true)
	if err != nil {
		return nil, nil, err
	}
	w, err := randomDense(rng, gradM, 1)
	if err != nil {
		return nil, nil, err
	}

	sparseGrads, err := gradOnce(b, func() (*tensor.RawTensor, error) {
		rows, err := sp.Sum(x, 1)
		if err != nil {
			return nil, err
		}
		dense, err := sp.ToDense(rows)
		if err != nil {
			return nil, err
		}
		return weighted(b, dense, w), nil
	}, x.Values())
	if err != nil {
		return nil, nil, err
	}
	denseGrads, err := gradOnce(b, func() (*tensor.RawTensor, error) {
		dense, err := sp.ToDense(x)
		if err != nil {
			return nil, err
		}
		return weighted(b, b.SumDim(dense, 1, true), w), nil
	}, x.Values())
	return sparseGrads, denseGrads, err
}

func renderGradCheckTable(w io.Writer, results []gradCheckResult, tolerance float64) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"CHECK", "INPUT", "MAX |DIFF|", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, r := range results {
		status := "ok"
		if r.MaxDiff > tolerance {
			status = "FAIL"
		}
		table.Append([]string{r.Check, r.Input, fmt.Sprintf("%.3g", r.MaxDiff), status})
	}
	table.Render()
}
