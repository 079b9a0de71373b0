package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/pidsim/internal/control"
	"github.com/san-kum/pidsim/internal/dynamo"
	"github.com/san-kum/pidsim/internal/plants"
)

// Loop couples one PID controller to one plant. Runs on the same Loop are
// serialized.
type Loop struct {
	mu        sync.Mutex
	ctrl      *control.PID
	plant     plants.Plant
	metrics   []Metric
	observers []Observer
	logger    *zap.Logger
}

type Option func(*Loop)

func WithLogger(l *zap.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

func WithMetrics(m ...Metric) Option {
	return func(lp *Loop) {
		lp.metrics = append(lp.metrics, m...)
	}
}

// New builds a loop. A nil controller is replaced by control.NewPID().
func New(plant plants.Plant, ctrl *control.PID, opts ...Option) *Loop {
	if ctrl == nil {
		ctrl = control.NewPID()
	}
	l := &Loop{
		ctrl:      ctrl,
		plant:     plant,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) AddMetric(m Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

func (l *Loop) Plant() plants.Plant      { return l.plant }
func (l *Loop) Controller() *control.PID { return l.ctrl }

// Reset clears the controller history and restores the plant.
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
}

func (l *Loop) reset() {
	l.ctrl.Reset()
	l.plant.Reset()
	for _, m := range l.metrics {
		m.Reset()
	}
}

// Run resets the loop and steps it over the grid 0, dt, ..., runtime. The
// first control value is computed against a feedback of 0. Any failure
// aborts the run and no partial result is returned.
func (l *Loop) Run(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.reset()

	times := Grid(p.Runtime, p.Dt)
	result := &Result{
		Params:   p,
		Plant:    l.plant.Name(),
		Times:    times,
		Feedback: make([]float64, 0, len(times)),
		Control:  make([]float64, 0, len(times)),
		Metrics:  make(map[string]float64),
	}

	log := l.logger.With(zap.String("plant", result.Plant))
	log.Debug("run started",
		zap.Float64("setpoint", p.Setpoint),
		zap.Float64("runtime", p.Runtime),
		zap.Float64("dt", p.Dt),
		zap.Int("steps", len(times)),
	)

	feedback := 0.0
	for i, t := range times {
		select {
		case <-ctx.Done():
			err := l.stepError(i, t, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err()))
			log.Warn("run canceled", zap.Int("step", i), zap.Float64("t", t))
			return nil, err
		default:
		}

		u := l.ctrl.Compute(p.Setpoint, feedback, p.Kp, p.Ki, p.Kd, p.Dt)

		next, err := l.plant.Advance(u, t, p.Dt)
		if err != nil {
			log.Warn("run aborted", zap.Int("step", i), zap.Float64("t", t), zap.Error(err))
			return nil, l.stepError(i, t, err)
		}
		feedback = next

		result.Feedback = append(result.Feedback, feedback)
		result.Control = append(result.Control, u)

		s := Sample{Step: i, Time: t, Setpoint: p.Setpoint, Feedback: feedback, Control: u}
		for _, m := range l.metrics {
			m.Observe(s)
		}
		for _, obs := range l.observers {
			obs.OnStep(s)
		}
	}

	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	log.Debug("run finished", zap.Float64("final", result.Final()))
	return result, nil
}

type stateful interface {
	State() dynamo.State
}

func (l *Loop) stepError(step int, t float64, err error) error {
	se := &dynamo.SimulationError{Step: step, Time: t, Wrapped: err}
	if s, ok := l.plant.(stateful); ok {
		se.State = s.State()
	}
	return se
}

// Simulate runs a fresh loop for the named plant. Unknown names select the
// reactor.
func Simulate(ctx context.Context, plantName string, p Params, opts ...Option) (*Result, error) {
	return New(plants.NewByName(plantName), control.NewPID(), opts...).Run(ctx, p)
}
