// Package sim drives a PID controller against a plant on a fixed time grid.
//
// Each step computes the control from the previous feedback, advances the
// plant by dt and records the new feedback:
//
//	loop := sim.New(plants.New(plants.DCMotor), control.NewPID())
//	res, err := loop.Run(ctx, sim.Params{Setpoint: 10, Runtime: 100, Dt: 0.05, Kp: 500, Ki: 500, Kd: 0.01})
//
// [Sweep] runs many parameter sets concurrently on independent loops.
package sim
