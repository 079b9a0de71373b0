package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Factory builds an independent loop. Sweep calls it once per run so that
// no controller, plant or metric is shared between goroutines.
type Factory func() *Loop

// Sweep runs every parameter set on its own loop, at most workers at a
// time. Results keep the order of params. The first failure cancels the
// remaining runs.
func Sweep(ctx context.Context, newLoop Factory, params []Params, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]*Result, len(params))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range params {
		g.Go(func() error {
			res, err := newLoop().Run(ctx, p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
