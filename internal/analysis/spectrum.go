package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/mechctl/internal/telemetry"
)

// Bin is one frequency bin of a power spectrum.
type Bin struct {
	Frequency float64
	Power     float64
}

// TrackingError returns setpoint minus position for each snapshot. Ticks
// without a usable reading or setpoint contribute zero.
func TrackingError(series []telemetry.Snapshot) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		e := s.Setpoint - s.Position
		if !math.IsNaN(e) && !math.IsInf(e, 0) {
			out[i] = e
		}
	}
	return out
}

// Spectrum returns the one-sided power spectrum of samples taken every
// period seconds. The mean is removed first so bin 0 carries no offset.
func Spectrum(samples []float64, period float64) []Bin {
	n := len(samples)
	if n < 2 || period <= 0 {
		return nil
	}

	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(n)
	centred := make([]float64, n)
	for i, v := range samples {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	bins := make([]Bin, n/2+1)
	for k := range bins {
		mag := cmplx.Abs(coeffs[k]) / float64(n)
		bins[k] = Bin{Frequency: float64(k) / (float64(n) * period), Power: mag * mag}
	}
	return bins
}

// Dominant returns the strongest non-DC bin. It reports false when the
// spectrum is empty or flat.
func Dominant(bins []Bin) (Bin, bool) {
	best := -1
	for k := 1; k < len(bins); k++ {
		if best < 0 || bins[k].Power > bins[best].Power {
			best = k
		}
	}
	if best < 0 || bins[best].Power == 0 {
		return Bin{}, false
	}
	return bins[best], true
}

// Powers extracts the power column of bins, for plotting.
func Powers(bins []Bin) []float64 {
	out := make([]float64, len(bins))
	for i, b := range bins {
		out[i] = b.Power
	}
	return out
}
