package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/pidsim/internal/config"
	"github.com/san-kum/pidsim/internal/sim"
)

// Experiment is a loop assembled from a config.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *zap.Logger
	loop     *sim.Loop
}

func New(cfg *config.Config, logger *zap.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   logger,
	}
	if !e.registry.HasPlant(cfg.Plant) {
		logger.Warn("unknown plant, using reactor", zap.String("plant", cfg.Plant))
	}

	loop, err := e.newLoop()
	if err != nil {
		return nil, err
	}
	e.loop = loop
	return e, nil
}

func (e *Experiment) newLoop() (*sim.Loop, error) {
	plant, err := e.registry.GetPlant(e.cfg.Plant, e.cfg.Integrator, e.cfg.Tolerance)
	if err != nil {
		return nil, err
	}
	return sim.New(plant, e.cfg.NewController(),
		sim.WithLogger(e.logger),
		sim.WithMetrics(e.registry.DefaultMetrics(e.cfg.Setpoint)...),
	), nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.loop == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.loop.Run(ctx, e.cfg.Params())
}

// Factory returns a constructor of independent loops with the same setup,
// for use with sim.Sweep.
func (e *Experiment) Factory() sim.Factory {
	return func() *sim.Loop {
		loop, err := e.newLoop()
		if err != nil {
			// the integrator was already resolved by New
			panic(err)
		}
		return loop
	}
}

// Loop returns the underlying loop for adding observers
func (e *Experiment) Loop() *sim.Loop {
	return e.loop
}

func (e *Experiment) Config() *config.Config {
	return e.cfg
}
