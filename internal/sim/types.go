package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/pidsim/internal/dynamo"
)

// Params describes a single closed-loop run.
type Params struct {
	Setpoint float64
	Runtime  float64
	Dt       float64
	Kp       float64
	Ki       float64
	Kd       float64
}

// Disable zeroes the gains whose flag is set.
func (p Params) Disable(proportional, integral, derivative bool) Params {
	if proportional {
		p.Kp = 0
	}
	if integral {
		p.Ki = 0
	}
	if derivative {
		p.Kd = 0
	}
	return p
}

func (p Params) Validate() error {
	if p.Dt <= 0 || math.IsNaN(p.Dt) || math.IsInf(p.Dt, 0) {
		return fmt.Errorf("dt must be positive and finite, got %g: %w", p.Dt, dynamo.ErrParameterBounds)
	}
	if math.IsNaN(p.Runtime) || math.IsInf(p.Runtime, 0) {
		return fmt.Errorf("runtime must be finite, got %g: %w", p.Runtime, dynamo.ErrParameterBounds)
	}
	if math.IsNaN(p.Setpoint) || math.IsInf(p.Setpoint, 0) {
		return fmt.Errorf("setpoint must be finite, got %g: %w", p.Setpoint, dynamo.ErrParameterBounds)
	}
	for name, g := range map[string]float64{"kp": p.Kp, "ki": p.Ki, "kd": p.Kd} {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("%s must be finite, got %g: %w", name, g, dynamo.ErrParameterBounds)
		}
	}
	return nil
}

// Steps is the number of points on the inclusive grid 0, dt, ..., runtime.
func Steps(runtime, dt float64) int {
	n := math.Floor(runtime/dt+1e-9) + 1
	if n < 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// Grid returns the sample times i*dt for i in [0, Steps(runtime, dt)).
func Grid(runtime, dt float64) []float64 {
	n := Steps(runtime, dt)
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * dt
	}
	return times
}

// Sample is what metrics and observers see after each step.
type Sample struct {
	Step     int
	Time     float64
	Setpoint float64
	Feedback float64
	Control  float64
}

// Error is setpoint minus feedback.
func (s Sample) Error() float64 {
	return s.Setpoint - s.Feedback
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

// Result holds the trajectory of one run. Times, Feedback and Control have
// equal length.
type Result struct {
	Params   Params
	Plant    string
	Times    []float64
	Feedback []float64
	Control  []float64
	Metrics  map[string]float64
}

func (r *Result) Len() int {
	return len(r.Times)
}

// Final returns the last feedback value, or 0 for an empty run.
func (r *Result) Final() float64 {
	if len(r.Feedback) == 0 {
		return 0
	}
	return r.Feedback[len(r.Feedback)-1]
}
