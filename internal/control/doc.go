// Package control provides the tick-driven feedback controllers for the
// robot's mechanisms.
//
// Every controller is a pure step function over an explicit state value:
//
//   - [Clamp]: soft-limit barrier applied to every output before hardware
//   - [AngleController]: PID pivot control with anti-windup and sensor-fault handling
//   - [ElevationController]: bang-bang elevation state machine with travel bounds
//   - [LoadSequencer]: note load/unload state machine gated by a beam break
//
// # Usage
//
//	pid, _ := control.NewAngleController(cfg)
//	var st control.PIDState
//	// once per tick, with a single sensor snapshot:
//	st, out = pid.Step(encoder.Read(), setpoint, st)
//	left.Set(out.Left)
//	right.Set(out.Right)
//
// Step never blocks, sleeps or loops over distance to target. Waiting for a
// condition is state carried into the next call, so a controller always
// returns within the tick that invoked it. Calling Step twice with the same
// state and inputs yields the same result.
package control
