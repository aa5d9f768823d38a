package analysis

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DominantFrequency returns the frequency, in cycles per time unit, of the
// strongest non-DC spectral line of a series sampled every dt. Resolution is
// limited to 1/(len*dt); series shorter than four samples return 0.
func DominantFrequency(series []float64, dt float64) float64 {
	if len(series) < 4 || dt <= 0 {
		return 0
	}

	fft := fourier.NewFFT(len(series))
	coeffs := fft.Coefficients(nil, series)

	best := 1
	bestMag := 0.0
	for i := 1; i < len(coeffs); i++ {
		if m := cmplx.Abs(coeffs[i]); m > bestMag {
			bestMag = m
			best = i
		}
	}
	return fft.Freq(best) / dt
}
