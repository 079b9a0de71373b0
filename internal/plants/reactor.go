package plants

import (
	"math"

	"github.com/san-kum/pidsim/internal/dynamo"
)

// ReactorParams describes an exothermic continuous stirred tank reactor
// with a cooling jacket. Units follow the usual CSTR benchmark: litres,
// grams, joules, kelvin and minutes.
type ReactorParams struct {
	Ea  float64 // activation energy J/gmol
	R   float64 // gas constant J/gmol/K
	K0  float64 // Arrhenius rate constant 1/min
	V   float64 // volume L
	Rho float64 // density g/L
	Cp  float64 // heat capacity J/g/K
	DHr float64 // enthalpy of reaction J/mol
	UA  float64 // heat transfer J/min/K
	Q   float64 // feed flowrate L/min
	Cf  float64 // feed concentration mol/L
	Tf  float64 // feed temperature K

	C0  float64 // initial concentration mol/L
	T0  float64 // initial temperature K
	Tcf float64 // coolant feed temperature K

	Qc    float64 // nominal coolant flowrate L/min
	Vc    float64 // cooling jacket volume L
	QcMin float64
	QcMax float64
}

func DefaultReactorParams() ReactorParams {
	return ReactorParams{
		Ea:  72750,
		R:   8.314,
		K0:  7.2e10,
		V:   100,
		Rho: 1000,
		Cp:  0.239,
		DHr: -5.0e4,
		UA:  5.0e4,
		Q:   100,
		Cf:  1,
		Tf:  300,

		C0:  0.5,
		T0:  350,
		Tcf: 300,

		Qc:    150,
		Vc:    20,
		QcMin: 0,
		QcMax: 300,
	}
}

// ReactorModel is the CSTR plant. State is (C, T, Tc); the actuator is
// the coolant flowrate qc, decremented by each control value and
// saturated to [QcMin, QcMax]. The measured output is T.
type ReactorModel struct {
	base
	p ReactorParams
}

func NewReactor(p ReactorParams, solver dynamo.Solver) *ReactorModel {
	r := &ReactorModel{p: p}
	r.base = newBase(solver, dynamo.State{p.C0, p.T0, p.Tcf})
	r.effort = p.Qc
	return r
}

func (r *ReactorModel) Name() string { return Reactor.String() }
func (r *ReactorModel) Kind() Kind   { return Reactor }

func (r *ReactorModel) StateDim() int   { return 3 }
func (r *ReactorModel) ControlDim() int { return 1 }

// Rate is the Arrhenius rate constant at temperature T.
func (r *ReactorModel) Rate(T float64) float64 {
	return r.p.K0 * math.Exp(-r.p.Ea/r.p.R/T)
}

// Derive treats u[0] as the coolant flowrate.
func (r *ReactorModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	p := r.p
	c, temp, tc := x[0], x[1], x[2]
	qc := u[0]
	k := r.Rate(temp)

	dc := p.Q/p.V*(p.Cf-c) - k*c
	dt := p.Q/p.V*(p.Tf-temp) + (-p.DHr/p.Rho/p.Cp)*k*c + p.UA/p.V/p.Rho/p.Cp*(tc-temp)
	dtc := qc/p.Vc*(p.Tcf-tc) + p.UA/p.Vc/p.Rho/p.Cp*(temp-tc)
	return dynamo.State{dc, dt, dtc}
}

func (r *ReactorModel) saturate(qc float64) float64 {
	return math.Max(r.p.QcMin, math.Min(r.p.QcMax, qc))
}

func (r *ReactorModel) Advance(u, t, dt float64) (float64, error) {
	r.effort = r.saturate(r.effort - u)
	r.record(t, r.effort)
	if err := r.integrate(r, t, dt); err != nil {
		return 0, err
	}
	return r.state[1], nil
}

// Coolant returns the current saturated coolant flowrate.
func (r *ReactorModel) Coolant() float64 {
	return r.effort
}

func (r *ReactorModel) Reset() {
	r.reset(r.p.Qc)
}

func (r *ReactorModel) Columns() []string {
	return []string{"t", "C", "T", "Tc", "qc"}
}

func (r *ReactorModel) Controls() Controls {
	g := GainRange{Min: 0, Max: 100, Step: 10, Default: 5}
	return Controls{Setpoint: 10, Runtime: 30, Stepsize: 0.05, Kp: g, Ki: g, Kd: g}
}

func (r *ReactorModel) Plot() PlotSettings {
	return PlotSettings{Title: "Reactor", XLabel: "time (s)", YLabel: "Temperature (K)"}
}
