// Package viz renders a running bench in the terminal.
//
// [Model] is a Bubble Tea program that steps a [scenario.Bench] at the
// control period and draws the intake arm and shooter elevation on a
// braille [Canvas], next to live plots of each mechanism's position.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single tick while paused
//	R     - Restart the scenario on a fresh bench
//	L     - Load a note
//	A/S   - Score in amp / speaker
//	Up/Dn - Elevate to the upper / lower travel bound
//	X     - Stop rollers and flywheel
//	?     - Show help overlay
//	Q     - Quit
package viz
