package integrators

import "github.com/san-kum/pidsim/internal/dynamo"

// Euler is the explicit first-order method, taking Substeps equal steps
// per Integrate call.
type Euler struct {
	Substeps int
}

func NewEuler() *Euler {
	return &Euler{Substeps: 100}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	return x.Add(dyn.Derive(x, u, t).Scale(dt))
}

func (e *Euler) Integrate(dyn dynamo.System, x dynamo.State, u dynamo.Control, t0, t1 float64) (dynamo.State, error) {
	return integrateFixed(e, e.Substeps, dyn, x, u, t0, t1)
}
