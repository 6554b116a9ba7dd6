package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/sgat/backend/cpu"
	"github.com/born-ml/sgat/internal/serialization"
	"github.com/born-ml/sgat/sparse"
	"github.com/born-ml/sgat/tensor"
)

type benchOptions struct {
	M, K, N  int
	Density  float64
	Repeat   int
	Seed     int64
	Parallel cpu.ParallelConfig
	SavePath string // when set, the mask and masked scores are written here
}

// benchResult holds the timings of one method. Sparse methods also carry the
// largest absolute difference from their dense counterpart and the speedup
// over it.
type benchResult struct {
	Method  string
	Mean    time.Duration
	Min     time.Duration
	MaxDiff float64
	Speedup float64
	Dense   bool
}

func newBenchCmd() *cobra.Command {
	var savePath string

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time masked and sparse matmul against their dense equivalents",
		Long: "Generates a random [m, k] @ [k, n] problem with a mask of the given density and\n" +
			"times matmul_masked against a dense product followed by masking, then the sparse\n" +
			"[m, n] @ dense [n, k] product against its dense equivalent.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			results, nnz, err := runBench(cmd.Context(), benchOptions{
				M:        cfg.Bench.M,
				K:        cfg.Bench.K,
				N:        cfg.Bench.N,
				Density:  cfg.Bench.Density,
				Repeat:   cfg.Bench.Repeat,
				Seed:     cfg.Bench.Seed,
				Parallel: cfg.ParallelSettings(),
				SavePath: savePath,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "m=%d k=%d n=%d nnz=%d (%.2f%%) repeat=%d\n\n",
				cfg.Bench.M, cfg.Bench.K, cfg.Bench.N, nnz,
				100*float64(nnz)/float64(cfg.Bench.M*cfg.Bench.N), cfg.Bench.Repeat)
			renderBenchTable(out, results)
			return nil
		},
	}

	cmd.Flags().StringVar(&savePath, "save", "", "Write the mask and masked scores to this file")
	return cmd
}

func runBench(ctx context.Context, opts benchOptions) ([]benchResult, int, error) {
	backend := cpu.NewWithConfig(opts.Parallel)
	sp := sparse.New(backend, sparse.WithLogger(slog.Default()))
	rng := rand.New(rand.NewSource(opts.Seed))

	a, err := randomDense(rng, opts.M, opts.K)
	if err != nil {
		return nil, 0, err
	}
	b, err := randomDense(rng, opts.K, opts.N)
	if err != nil {
		return nil, 0, err
	}
	mask, err := randomSparse(sp, rng, opts.M, opts.N, opts.Density, false)
	if err != nil {
		return nil, 0, err
	}
	denseMask, err := sp.ToDense(mask)
	if err != nil {
		return nil, 0, err
	}
	slog.Info("bench inputs ready", "m", opts.M, "k", opts.K, "n", opts.N, "nnz", mask.NNZ(), "backend", backend.Name())

	var scores *sparse.Tensor
	masked, err := timeRuns(ctx, "matmul_masked", opts.Repeat, func() (*tensor.RawTensor, error) {
		s, err := sp.MatMulMasked(a, b, mask)
		if err != nil {
			return nil, err
		}
		scores = s
		return s.Values(), nil
	})
	if err != nil {
		return nil, 0, err
	}
	if masked.out, err = sp.ToDense(scores); err != nil {
		return nil, 0, err
	}
	denseMasked, err := timeRuns(ctx, "dense matmul * mask", opts.Repeat, func() (*tensor.RawTensor, error) {
		return backend.Mul(backend.MatMul(a, b), denseMask), nil
	})
	if err != nil {
		return nil, 0, err
	}

	// The masked scores feed a sparse @ dense product, as in attention.
	bT := backend.Transpose(b)
	denseScores := masked.out
	sparseMM, err := timeRuns(ctx, "sparse matmul", opts.Repeat, func() (*tensor.RawTensor, error) {
		return sp.MatMul(scores, bT)
	})
	if err != nil {
		return nil, 0, err
	}
	denseMM, err := timeRuns(ctx, "dense matmul", opts.Repeat, func() (*tensor.RawTensor, error) {
		return backend.MatMul(denseScores, bT), nil
	})
	if err != nil {
		return nil, 0, err
	}

	if opts.SavePath != "" {
		meta := map[string]string{
			"m":    strconv.Itoa(opts.M),
			"k":    strconv.Itoa(opts.K),
			"n":    strconv.Itoa(opts.N),
			"seed": strconv.FormatInt(opts.Seed, 10),
		}
		if err := serialization.SaveFile(opts.SavePath, map[string]*sparse.Tensor{"mask": mask, "scores": scores}, meta); err != nil {
			return nil, 0, err
		}
		slog.Info("saved bench tensors", "path", opts.SavePath)
	}

	denseMasked.Dense = true
	denseMM.Dense = true
	results := []benchResult{
		compare(masked, denseMasked),
		denseMasked.benchResult,
		compare(sparseMM, denseMM),
		denseMM.benchResult,
	}
	return results, mask.NNZ(), nil
}

// timedRun is a benchResult plus the output of the last run.
type timedRun struct {
	benchResult
	out *tensor.RawTensor
}

func timeRuns(ctx context.Context, method string, repeat int, f func() (*tensor.RawTensor, error)) (timedRun, error) {
	run := timedRun{benchResult: benchResult{Method: method, Min: time.Duration(math.MaxInt64)}}
	var total time.Duration
	for i := range repeat {
		if err := ctx.Err(); err != nil {
			return timedRun{}, err
		}
		start := time.Now()
		out, err := f()
		elapsed := time.Since(start)
		if err != nil {
			return timedRun{}, fmt.Errorf("%s: %w", method, err)
		}
		run.out = out
		total += elapsed
		run.Min = min(run.Min, elapsed)
		slog.Debug("bench run", "method", method, "run", i, "elapsed", elapsed)
	}
	run.Mean = total / time.Duration(repeat)
	return run, nil
}

func compare(sparseRun, denseRun timedRun) benchResult {
	r := sparseRun.benchResult
	r.MaxDiff = maxAbsDiff(sparseRun.out.AsFloat64(), denseRun.out.AsFloat64())
	if r.Mean > 0 {
		r.Speedup = float64(denseRun.Mean) / float64(r.Mean)
	}
	return r
}

func maxAbsDiff(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var worst float64
	for i := range a {
		worst = max(worst, math.Abs(a[i]-b[i]))
	}
	return worst
}

func renderBenchTable(w io.Writer, results []benchResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"METHOD", "MEAN", "MIN", "MAX |DIFF|", "SPEEDUP"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, r := range results {
		diff, speedup := "-", "-"
		if !r.Dense {
			diff = fmt.Sprintf("%.3g", r.MaxDiff)
			speedup = fmt.Sprintf("%.2fx", r.Speedup)
		}
		table.Append([]string{r.Method, r.Mean.String(), r.Min.String(), diff, speedup})
	}
	table.Render()
}
