package plants

import (
	"math"

	"github.com/san-kum/pidsim/internal/dynamo"
)

// MotorParams describes a DC motor hoisting an elevator car. The winding
// resistance heats up over time toward R + RiseR.
type MotorParams struct {
	R      float64 // cold winding resistance, ohm
	RiseR  float64 // resistance gained when hot, ohm
	TauR   float64 // thermal time constant, s
	L      float64 // inductance, H
	K      float64 // torque constant, Nm/A
	Radius float64 // drum radius, m
	Mass   float64 // car mass, kg
	G      float64
}

func DefaultMotorParams() MotorParams {
	return MotorParams{
		R:      2,
		RiseR:  8,
		TauR:   3,
		L:      400 * 10e-3,
		K:      100,
		Radius: 0.5,
		Mass:   500,
		G:      9.81,
	}
}

// MotorModel is the elevator plant. State is (x, v, i); control values are
// summed into an applied voltage. The measured output is x.
type MotorModel struct {
	base
	p MotorParams
}

func NewMotor(p MotorParams, solver dynamo.Solver) *MotorModel {
	m := &MotorModel{p: p}
	m.base = newBase(solver, dynamo.State{0, 0, 0})
	return m
}

func (m *MotorModel) Name() string { return DCMotor.String() }
func (m *MotorModel) Kind() Kind   { return DCMotor }

func (m *MotorModel) StateDim() int   { return 3 }
func (m *MotorModel) ControlDim() int { return 1 }

// Resistance is the winding resistance at time t.
func (m *MotorModel) Resistance(t float64) float64 {
	return m.p.R + m.p.RiseR*(1-math.Exp(-t/m.p.TauR))
}

// Derive treats u[0] as the accumulated voltage.
func (m *MotorModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	p := m.p
	v, i := x[1], x[2]
	dx := v
	dv := p.K/(p.Radius*p.Mass)*i - p.G
	di := -m.Resistance(t)/p.L*i - p.K/p.Radius*v + u[0]/p.L
	return dynamo.State{dx, dv, di}
}

func (m *MotorModel) Advance(u, t, dt float64) (float64, error) {
	m.effort += u
	m.record(t)
	if err := m.integrate(m, t, dt); err != nil {
		return 0, err
	}
	return m.state[0], nil
}

func (m *MotorModel) Reset() {
	m.reset(0)
}

func (m *MotorModel) Columns() []string {
	return []string{"t", "x", "v", "i"}
}

func (m *MotorModel) Controls() Controls {
	g := GainRange{Min: 0, Max: 1000, Step: 100, Default: 500}
	return Controls{Setpoint: 10, Runtime: 100, Stepsize: 0.05, Kp: g, Ki: g, Kd: g}
}

func (m *MotorModel) Plot() PlotSettings {
	return PlotSettings{
		Title:  "Elevator position off of ground",
		XLabel: "time (s)",
		YLabel: "x position away from ground (in)",
	}
}
