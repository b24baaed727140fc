// Package analysis characterizes recorded mechanism runs.
//
// The package works on telemetry series after the fact:
//
//   - [StepResponse]: rise time, overshoot and settling of a setpoint move
//   - [Spectrum]: power spectrum of the tracking error
//   - [Dominant]: strongest oscillation, used to spot an underdamped loop
//
// # Oscillation Check
//
// A tuned loop has no dominant peak above the noise floor once settled:
//
//	bins := analysis.Spectrum(analysis.TrackingError(series), period)
//	if peak, ok := analysis.Dominant(bins); ok {
//	    fmt.Printf("oscillating at %.2f Hz\n", peak.Frequency)
//	}
package analysis
