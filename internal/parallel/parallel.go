// Package parallel provides parallel execution utilities for the CPU kernels.
package parallel

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of concurrently running goroutines.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false}
}

// ForChunks splits [0, n) into contiguous chunks and calls f(start, end)
// for each, concurrently when parallelism is enabled and n is large enough.
// Chunks never overlap, so f may write to per-index output without locking.
//
// Backend kernels report misuse by panicking. A panic inside a worker is
// re-raised on the calling goroutine with the same value once all chunks
// have finished, so parallel and sequential runs fail the same way.
func ForChunks(n int, f func(start, end int), cfg Config) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < 2*max(cfg.MinChunkSize, 1) {
		// Sequential fallback.
		f(0, n)
		return
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		s, e := start, min(start+chunkSize, n)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &workerPanic{value: r}
				}
			}()
			f(s, e)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var wp *workerPanic
		if errors.As(err, &wp) {
			panic(wp.value)
		}
		panic(err)
	}
}

// workerPanic carries a recovered panic value out of a worker goroutine.
type workerPanic struct {
	value any
}

func (p *workerPanic) Error() string {
	return fmt.Sprintf("parallel worker panicked: %v", p.value)
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	ForChunks(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	}, cfg)
}
