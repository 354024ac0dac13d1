// Package spectral provides FFT-based inspection of rendered signal.
// It is analysis tooling for the control plane and for tests, not part
// of the audio path.
package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
)

// Magnitudes returns the magnitude spectrum of the samples after a Hann
// window. The FFT size is the largest power of two not exceeding the
// input length; only the first half of the spectrum is returned.
func Magnitudes(samples []float64) ([]float64, error) {
	size := 1
	for size*2 <= len(samples) {
		size *= 2
	}
	if size < 2 {
		return nil, fmt.Errorf("spectral: need at least 2 samples, got %d", len(samples))
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectral: fft plan: %w", err)
	}

	in := make([]complex128, size)
	for i := 0; i < size; i++ {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
		in[i] = complex(samples[i]*w, 0)
	}
	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("spectral: forward fft: %w", err)
	}

	mags := make([]float64, size/2)
	for i := range mags {
		mags[i] = cmplx.Abs(out[i])
	}
	return mags, nil
}

// PeakFrequency estimates the dominant frequency of the samples in Hz.
func PeakFrequency(samples []float64, sampleRate int) (float64, error) {
	mags, err := Magnitudes(samples)
	if err != nil {
		return 0, err
	}
	peak := 0
	for i := 1; i < len(mags); i++ {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	binWidth := float64(sampleRate) / float64(2*len(mags))
	return float64(peak) * binWidth, nil
}
