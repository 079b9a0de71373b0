package plants

import (
	"fmt"

	"github.com/san-kum/pidsim/internal/dynamo"
)

// Record is one row of a plant log: the time and the pre-step state
// followed by any derived quantities.
type Record struct {
	Time   float64
	Values []float64
}

// GainRange describes the allowed range of a single gain.
type GainRange struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"`
	Default float64 `json:"default" yaml:"default"`
}

// Clamp limits v to [Min, Max].
func (g GainRange) Clamp(v float64) float64 {
	if v < g.Min {
		return g.Min
	}
	if v > g.Max {
		return g.Max
	}
	return v
}

// Controls is the static tuning metadata a plant advertises.
type Controls struct {
	Setpoint float64   `json:"setpoint" yaml:"setpoint"`
	Runtime  float64   `json:"runtime" yaml:"runtime"`
	Stepsize float64   `json:"stepsize" yaml:"stepsize"`
	Kp       GainRange `json:"kp" yaml:"kp"`
	Ki       GainRange `json:"ki" yaml:"ki"`
	Kd       GainRange `json:"kd" yaml:"kd"`
}

type PlotSettings struct {
	Title  string `json:"title"`
	XLabel string `json:"xlabel"`
	YLabel string `json:"ylabel"`
}

// Plant is a controlled process stepped forward one interval at a time.
type Plant interface {
	Name() string
	Kind() Kind
	// Advance applies u, logs the pre-step state, integrates over
	// [t, t+dt] and returns the measured output.
	Advance(u, t, dt float64) (float64, error)
	Reset()
	Log() []Record
	// Columns names the values of each log record, time first.
	Columns() []string
	Controls() Controls
	Plot() PlotSettings
}

// base holds what every plant variant shares: the solver, the current
// state, the effort accumulator and the log.
type base struct {
	solver  dynamo.Solver
	initial dynamo.State
	state   dynamo.State
	effort  float64
	log     []Record
}

func newBase(solver dynamo.Solver, initial dynamo.State) base {
	b := base{solver: solver, initial: initial}
	b.reset(0)
	return b
}

func (b *base) reset(effort float64) {
	b.state = b.initial.Clone()
	b.effort = effort
	b.log = nil
}

func (b *base) record(t float64, extra ...float64) {
	values := make([]float64, 0, len(b.state)+len(extra))
	values = append(values, b.state...)
	values = append(values, extra...)
	b.log = append(b.log, Record{Time: t, Values: values})
}

func (b *base) integrate(sys dynamo.System, t, dt float64) error {
	next, err := b.solver.Integrate(sys, b.state, dynamo.Control{b.effort}, t, t+dt)
	if err != nil {
		return fmt.Errorf("integrate [%g, %g]: %w", t, t+dt, err)
	}
	b.state = next
	return nil
}

// State returns a copy of the current state vector.
func (b *base) State() dynamo.State {
	return b.state.Clone()
}

func (b *base) Log() []Record {
	out := make([]Record, len(b.log))
	copy(out, b.log)
	return out
}
