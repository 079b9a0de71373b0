package plants

import "github.com/san-kum/pidsim/internal/dynamo"

// OscillatorParams describes tau^2*y'' + 2*zeta*tau*y' + y = du*u.
type OscillatorParams struct {
	Tau        float64
	Zeta       float64
	StepChange float64
}

func DefaultOscillatorParams() OscillatorParams {
	return OscillatorParams{Tau: 1, Zeta: 0.25, StepChange: 1}
}

// OscillatorModel is the damped second-order plant. State is (y, dy/dt);
// control values are summed into the forcing. The measured output is y.
type OscillatorModel struct {
	base
	p OscillatorParams
}

func NewOscillator(p OscillatorParams, solver dynamo.Solver) *OscillatorModel {
	o := &OscillatorModel{p: p}
	o.base = newBase(solver, dynamo.State{0, 0})
	return o
}

func (o *OscillatorModel) Name() string { return SecondOrder.String() }
func (o *OscillatorModel) Kind() Kind   { return SecondOrder }

func (o *OscillatorModel) StateDim() int   { return 2 }
func (o *OscillatorModel) ControlDim() int { return 1 }

func (o *OscillatorModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	p := o.p
	y, dy := x[0], x[1]
	ddy := (-2*p.Zeta*p.Tau*dy - y + u[0]*p.StepChange) / (p.Tau * p.Tau)
	return dynamo.State{dy, ddy}
}

func (o *OscillatorModel) Advance(u, t, dt float64) (float64, error) {
	o.effort += u
	o.record(t)
	if err := o.integrate(o, t, dt); err != nil {
		return 0, err
	}
	return o.state[0], nil
}

func (o *OscillatorModel) Reset() {
	o.reset(0)
}

func (o *OscillatorModel) Columns() []string {
	return []string{"t", "y", "dy"}
}

func (o *OscillatorModel) Controls() Controls {
	g := GainRange{Min: 0, Max: 100, Step: 10, Default: 5}
	return Controls{Setpoint: 10, Runtime: 30, Stepsize: 0.05, Kp: g, Ki: g, Kd: g}
}

func (o *OscillatorModel) Plot() PlotSettings {
	return PlotSettings{Title: "Second Order ODE", XLabel: "time (s)", YLabel: "Ampltiude"}
}
