// Package control provides the discrete PID controller used by the
// simulation loop.
//
// [PID] keeps three small lag registers and combines:
//
//   - an incremental proportional term on beta*setpoint - feedback
//   - an integral term on the raw error, memoryless by default
//   - a second-difference derivative term on gamma*setpoint - feedback
//
// # Usage
//
//	pid := control.NewPID()
//	u := pid.Compute(setpoint, feedback, kp, ki, kd, dt)
//	// call Reset between runs
package control
