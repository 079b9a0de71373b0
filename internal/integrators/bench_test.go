package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/pidsim/internal/dynamo"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int   { return 2 }
func (b *benchDynamics) ControlDim() int { return 0 }
func (b *benchDynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, nil, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, nil, 0, 0.01)
	}
}

func BenchmarkRK45(b *testing.B) {
	integrator := NewRK45()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := integrator.Integrate(dyn, x, nil, 0, 0.01)
		if err != nil {
			b.Fatal(err)
		}
		x = next
	}
}

// benchReactor mimics the stiffness of the reactor energy balance.
type benchReactor struct{}

func (b *benchReactor) StateDim() int   { return 3 }
func (b *benchReactor) ControlDim() int { return 1 }
func (b *benchReactor) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	k := 7.2e10 * math.Exp(-72750/(8.314*x[1]))
	return dynamo.State{
		(1 - x[0]) - k*x[0],
		(300 - x[1]) + 209.2*k*x[0] + 2.092*(x[2]-x[1]),
		u[0]/20*(300-x[2]) + 10.46*(x[1]-x[2]),
	}
}

func BenchmarkRK45_Integrate(b *testing.B) {
	integrator := NewRK45()
	dyn := &benchReactor{}
	x0 := dynamo.State{0.5, 350, 300}
	u := dynamo.Control{150}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := integrator.Integrate(dyn, x0, u, 0, 0.05); err != nil {
			b.Fatal(err)
		}
	}
}
