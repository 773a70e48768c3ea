// Package workpool implements the bounded worker pool of spec §5: NDJSON
// windows fan their line-aligned chunks out across a fixed number of
// workers and collect outputs in strict chunk order. Built on
// golang.org/x/sync/errgroup, which already gives us the "wait for all,
// surface the first error" barrier spec §4.4 step 5 needs before output
// assembly.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs a bounded number of chunk jobs concurrently and returns their
// results in the original submission order (spec: "chunk outputs are
// written in strict chunk order").
type Pool struct {
	limit int
}

// New returns a Pool sized to n (performance/logical cores) unless n <= 0,
// in which case it uses runtime.NumCPU(). n == 1 disables parallelism,
// matching the `--threads 1` CLI contract (spec §6.1).
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Pool{limit: n}
}

// Run executes fn(i) for i in [0, n) with at most p.limit concurrently
// in flight, and returns their results indexed by i in the results slice.
// Every job is started even after one fails: the ctx passed to fn is
// cancelled once any job returns an error, and Run returns that first error
// after all jobs finish. A failed job leaves its slot at T's zero value.
func Run[T any](p *Pool, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(p.limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			r, err := fn(ctx, i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
