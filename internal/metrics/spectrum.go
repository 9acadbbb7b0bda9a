package metrics

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/sandglass/internal/sim"
)

// minSpectrumSamples is the shortest running stretch worth transforming.
const minSpectrumSamples = 16

// FlowSpectrum returns the power spectrum of the per-step release count
// while the countdown ran. The mean is removed first, so power[0] is the
// lowest non-zero frequency. Both slices are nil for runs too short to
// transform.
func FlowSpectrum(samples []sim.Sample) (freqs, power []float64) {
	released := make([]float64, 0, len(samples))
	var first, last float64
	for _, smp := range samples {
		if !smp.Running {
			continue
		}
		if len(released) == 0 {
			first = smp.Time
		}
		last = smp.Time
		released = append(released, float64(smp.Released))
	}
	n := len(released)
	if n < minSpectrumSamples || last <= first {
		return nil, nil
	}
	dt := (last - first) / float64(n-1)

	mean := floats.Sum(released) / float64(n)
	floats.AddConst(-mean, released)

	coeffs := fft.FFTReal(released)
	half := n / 2
	freqs = make([]float64, half)
	power = make([]float64, half)
	for k := 1; k <= half; k++ {
		a := cmplx.Abs(coeffs[k])
		freqs[k-1] = float64(k) / (float64(n) * dt)
		power[k-1] = a * a / float64(n)
	}
	return freqs, power
}

// PulseFrequency is the frequency carrying the most release power, or 0
// when the flow is perfectly steady or the run is too short.
func PulseFrequency(samples []sim.Sample) float64 {
	freqs, power := FlowSpectrum(samples)
	if len(power) == 0 || floats.Max(power) == 0 {
		return 0
	}
	return freqs[floats.MaxIdx(power)]
}
