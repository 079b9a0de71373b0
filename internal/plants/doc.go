// Package plants implements the controlled processes driven by the PID
// loop. Every variant satisfies both [Plant], the step-by-step contract the
// loop uses, and [dynamo.System], so the same model can be handed to any
// solver in internal/integrators.
//
// Available kinds:
//
//   - [Reactor]: jacketed CSTR, output temperature, actuator coolant flow
//   - [DCMotor]: DC motor elevator with a heating winding, output height
//   - [SecondOrder]: damped second-order oscillator, output y
package plants
