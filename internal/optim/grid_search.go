package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pidsim/internal/sim"
)

// GridSearch evaluates every combination of the given gain values and
// keeps the one minimising a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	logger     *zap.Logger
}

type Option func(*GridSearch)

func WithLogger(l *zap.Logger) Option {
	return func(g *GridSearch) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithWorkers(n int) Option {
	return func(g *GridSearch) {
		g.workers = n
	}
}

// NewGridSearch takes parameter names ("kp", "ki", "kd", "setpoint") and
// the candidate values for each.
func NewGridSearch(params []string, ranges [][]float64, opts ...Option) *GridSearch {
	g := &GridSearch{
		paramNames: params,
		ranges:     ranges,
		workers:    runtime.NumCPU(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Outcome is the score of one grid point. Err is set for runs that failed
// and NaN scores are treated as failures.
type Outcome struct {
	Params map[string]float64
	Score  float64
	Err    error
}

func apply(base sim.Params, values map[string]float64) (sim.Params, error) {
	p := base
	for name, v := range values {
		switch name {
		case "kp":
			p.Kp = v
		case "ki":
			p.Ki = v
		case "kd":
			p.Kd = v
		case "setpoint":
			p.Setpoint = v
		default:
			return p, fmt.Errorf("unknown parameter %q", name)
		}
	}
	return p, nil
}

// Search runs every grid point on a fresh loop and returns the best
// parameters and score. Failed runs are logged and skipped; an error is
// returned only when the context ends or no run succeeds.
func (g *GridSearch) Search(
	ctx context.Context,
	newLoop sim.Factory,
	base sim.Params,
	metricName string,
) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("grid search: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}

	points := make([]map[string]float64, 0)
	g.searchRecursive(0, make(map[string]float64), &points)
	for _, pt := range points {
		if _, err := apply(base, pt); err != nil {
			return nil, 0, fmt.Errorf("grid search: %w", err)
		}
	}

	outcomes, err := g.Evaluate(ctx, newLoop, base, metricName, points)
	if err != nil {
		return nil, 0, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for _, o := range outcomes {
		if o.Err != nil {
			continue
		}
		if o.Score < best {
			best = o.Score
			bestParams = o.Params
		}
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("grid search: all %d runs failed", len(points))
	}

	g.logger.Info("grid search finished",
		zap.Int("points", len(points)),
		zap.String("metric", metricName),
		zap.Float64("best", best),
		zap.Any("params", bestParams),
	)
	return bestParams, best, nil
}

// Evaluate scores each point concurrently. Outcomes keep the order of
// points.
func (g *GridSearch) Evaluate(
	ctx context.Context,
	newLoop sim.Factory,
	base sim.Params,
	metricName string,
	points []map[string]float64,
) ([]Outcome, error) {
	outcomes := make([]Outcome, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	if g.workers > 0 {
		eg.SetLimit(g.workers)
	}

	var mu sync.Mutex
	failed := 0

	for i, pt := range points {
		eg.Go(func() error {
			outcomes[i] = Outcome{Params: pt}
			p, err := apply(base, pt)
			if err != nil {
				return err
			}

			res, err := newLoop().Run(ctx, p)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == nil {
				score, ok := res.Metrics[metricName]
				switch {
				case !ok:
					err = fmt.Errorf("metric %q not recorded", metricName)
				case math.IsNaN(score):
					err = fmt.Errorf("metric %q is NaN", metricName)
				default:
					outcomes[i].Score = score
				}
			}
			if err != nil {
				outcomes[i].Err = err
				mu.Lock()
				failed++
				mu.Unlock()
				g.logger.Debug("grid point failed", zap.Any("params", pt), zap.Error(err))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}
	if failed > 0 {
		g.logger.Warn("grid points failed", zap.Int("failed", failed), zap.Int("total", len(points)))
	}
	return outcomes, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		point := make(map[string]float64, len(current))
		for k, v := range current {
			point[k] = v
		}
		*out = append(*out, point)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		g.searchRecursive(depth+1, current, out)
	}
	delete(current, paramName)
}
