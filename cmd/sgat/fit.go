package main

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/sgat/autodiff"
	"github.com/born-ml/sgat/backend/cpu"
	"github.com/born-ml/sgat/internal/optim"
	"github.com/born-ml/sgat/sparse"
	"github.com/born-ml/sgat/tensor"
)

type fitOptions struct {
	M, K, N   int
	Density   float64
	Seed      int64
	Steps     int
	Every     int
	Optimizer string
	LR        float64
	Momentum  float64
	Parallel  cpu.ParallelConfig
}

type fitPoint struct {
	Step int
	Loss float64
}

func newFitCmd() *cobra.Command {
	opts := fitOptions{Steps: 200, Every: 20, Optimizer: "adam", LR: 0.01}

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Recover a hidden sparse matrix from S @ D by training only its stored values",
		Long: "Draws a hidden sparse [m, k] matrix and a dense [k, n] matrix, then trains a sparse\n" +
			"matrix with the same pattern, starting from zero, to reproduce their product. Sizes,\n" +
			"density and seed come from the bench settings.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if opts.Steps < 1 || opts.Every < 1 {
				return fmt.Errorf("--steps and --every must be at least 1")
			}

			opts.M, opts.K, opts.N = cfg.Bench.M, cfg.Bench.K, cfg.Bench.N
			opts.Density, opts.Seed = cfg.Bench.Density, cfg.Bench.Seed
			opts.Parallel = cfg.ParallelSettings()

			curve, err := runFit(opts)
			if err != nil {
				return err
			}
			renderFitTable(cmd.OutOrStdout(), curve)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Steps, "steps", opts.Steps, "Optimization steps")
	cmd.Flags().IntVar(&opts.Every, "every", opts.Every, "Report the loss every this many steps")
	cmd.Flags().StringVar(&opts.Optimizer, "optimizer", opts.Optimizer, "Optimizer (sgd|adam)")
	cmd.Flags().Float64Var(&opts.LR, "lr", opts.LR, "Learning rate")
	cmd.Flags().Float64Var(&opts.Momentum, "momentum", opts.Momentum, "SGD momentum")
	return cmd
}

func newOptimizer(opts fitOptions, params []*tensor.RawTensor) (optim.Optimizer, error) {
	switch opts.Optimizer {
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{LR: opts.LR, Momentum: opts.Momentum}), nil
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{LR: opts.LR}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q (want sgd or adam)", opts.Optimizer)
	}
}

// runFit returns the loss at step 0, every opts.Every steps, and after the
// last step.
func runFit(opts fitOptions) ([]fitPoint, error) {
	backend := autodiff.New(cpu.NewWithConfig(opts.Parallel))
	sp := sparse.New(backend, sparse.WithLogger(slog.Default()))
	rng := rand.New(rand.NewSource(opts.Seed))

	hidden, err := randomSparse(sp, rng, opts.M, opts.K, opts.Density, true)
	if err != nil {
		return nil, err
	}
	d, err := randomDense(rng, opts.K, opts.N)
	if err != nil {
		return nil, err
	}
	target, err := sp.MatMul(hidden, d)
	if err != nil {
		return nil, err
	}
	negTarget := backend.MulScalar(target, -1)

	zeros, err := tensor.NewRaw(tensor.Shape{hidden.NNZ()}, tensor.Float64, tensor.CPU)
	if err != nil {
		return nil, err
	}
	s, err := sp.Build(hidden.Indices(), zeros, hidden.Shape())
	if err != nil {
		return nil, err
	}

	params := []*tensor.RawTensor{s.Values()}
	opt, err := newOptimizer(opts, params)
	if err != nil {
		return nil, err
	}

	slog.Info("fit start", "m", opts.M, "k", opts.K, "n", opts.N, "nnz", s.NNZ(), "optimizer", opts.Optimizer)
	var curve []fitPoint
	for step := range opts.Steps + 1 {
		loss, grads, err := fitStep(backend, sp, s, d, negTarget)
		if err != nil {
			return nil, err
		}
		if step%opts.Every == 0 || step == opts.Steps {
			curve = append(curve, fitPoint{Step: step, Loss: loss})
			slog.Debug("fit", "step", step, "loss", loss)
		}
		if step < opts.Steps {
			opt.Step(optim.GradMap(params, grads))
		}
	}
	return curve, nil
}

// fitStep evaluates sum((s @ d - target)²) and its gradient with respect to
// s.Values() on a released tape scope.
func fitStep(b gradBackend, sp *sparse.Ops, s *sparse.Tensor, d, negTarget *tensor.RawTensor) (float64, []*tensor.RawTensor, error) {
	release := b.Tape().Scope()
	defer release()

	out, err := sp.MatMul(s, d)
	if err != nil {
		return 0, nil, err
	}
	diff := b.Add(out, negTarget)
	loss := b.Sum(b.Mul(diff, diff))
	grads, err := autodiff.Grad(b, loss, s.Values())
	if err != nil {
		return 0, nil, err
	}
	return loss.AsFloat64()[0], grads, nil
}

func renderFitTable(w io.Writer, curve []fitPoint) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"STEP", "LOSS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, p := range curve {
		table.Append([]string{fmt.Sprint(p.Step), fmt.Sprintf("%.6g", p.Loss)})
	}
	table.Render()
}
