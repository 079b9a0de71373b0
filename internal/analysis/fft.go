package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitudes of the first half of the DFT of data.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	coeffs := fft.FFTReal(data)
	ps := make([]float64, len(coeffs)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}

	return ps
}

// Spectrum returns the frequency axis and power of a signal sampled every
// dt. The mean is removed first so bin 0 carries no offset.
func Spectrum(data []float64, dt float64) (freqs, power []float64) {
	n := len(data)
	if n < 2 || dt <= 0 {
		return nil, nil
	}

	mean := stat.Mean(data, nil)
	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	power = PowerSpectrum(centered)
	freqs = make([]float64, len(power))
	for i := range freqs {
		freqs[i] = float64(i) / (float64(n) * dt)
	}
	return freqs, power
}

// DominantFrequency is the frequency (Hz, in units of 1/dt) of the
// strongest non-zero bin, or 0 for a constant signal.
func DominantFrequency(data []float64, dt float64) float64 {
	freqs, power := Spectrum(data, dt)
	best := 0
	for i := 1; i < len(power); i++ {
		if power[i] > power[best] || best == 0 {
			best = i
		}
	}
	if best == 0 || power[best] < 1e-12 {
		return 0
	}
	return freqs[best]
}
