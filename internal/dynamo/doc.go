// Package dynamo provides the numerical primitives shared by the plant models
// and the simulation loop.
//
// The package defines the fundamental types for integrating ordinary
// differential equations (ODEs) one fixed interval at a time:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: single-step numerical integrator
//   - [Solver]: integrator that advances a state across a whole interval
//
// # Example
//
//	solver := integrators.NewRK45()
//	x1, err := solver.Integrate(dyn, x0, dynamo.Control{u}, t, t+dt)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe. Every plant
// instance owns its own solver.
package dynamo
