package integrators

import (
	"fmt"

	"github.com/san-kum/pidsim/internal/dynamo"
)

type RK4 struct {
	// Substeps is the number of equal RK4 steps taken per Integrate call.
	Substeps int

	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{Substeps: 10}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	k1 := dyn.Derive(x, u, t)
	copy(r.k1, k1)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	k2 := dyn.Derive(r.scratch, u, t+dt*0.5)
	copy(r.k2, k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	k3 := dyn.Derive(r.scratch, u, t+dt*0.5)
	copy(r.k3, k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	k4 := dyn.Derive(r.scratch, u, t+dt)
	copy(r.k4, k4)

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result
}

func (r *RK4) Integrate(dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, error) {
	return integrateFixed(r, r.Substeps, dyn, x, u, t0, t1)
}

// integrateFixed splits [t0, t1] into n equal steps of a fixed-step method.
func integrateFixed(step dynamo.Integrator, n int, dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, error) {
	if !(t1 >= t0) {
		return nil, fmt.Errorf("integrate [%g, %g]: %w", t0, t1, dynamo.ErrParameterBounds)
	}
	if err := checkDim(dyn, x); err != nil {
		return nil, err
	}
	if n < 1 {
		n = 1
	}
	h := (t1 - t0) / float64(n)
	cur := x.Clone()
	for i := 0; i < n; i++ {
		cur = step.Step(dyn, cur, u, t0+float64(i)*h, h)
	}
	if !cur.IsValid() {
		return nil, dynamo.ErrInvalidState
	}
	return cur, nil
}
