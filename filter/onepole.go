// Package filter provides filter nodes: a single-pole IIR filter and an
// SVF (state variable filter) after Andrew Simper's linear trapezoidal
// model. Cutoff is a smoothed parameter; coefficients are refreshed once
// per block, which is coarse enough to stay click-free at usual block
// sizes.
package filter

import (
	"math"

	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Cutoff is the name of the cutoff frequency parameter, in Hz.
const Cutoff = "cutoff"

// Mode selects the filter response.
type Mode uint8

const (
	// Lowpass passes frequencies below the cutoff.
	Lowpass Mode = iota
	// Highpass passes frequencies above the cutoff.
	Highpass
	// Bandpass passes frequencies around the cutoff. Only supported by
	// the SVF.
	Bandpass
)

// onePoleCoeff holds the coefficients of a single-pole IIR filter. The
// m0/m1 pair mixes the input and the pole output into the response.
type onePoleCoeff struct {
	a0, b1 float64
	m0, m1 float64
}

func onePole(mode Mode, cutoffHz, sampleRateRecip float64) onePoleCoeff {
	b1 := math.Exp(-2.0 * math.Pi * cutoffHz * sampleRateRecip)
	a0 := 1.0 - b1
	if mode == Highpass {
		return onePoleCoeff{a0: a0, b1: b1, m0: 1, m1: -1}
	}
	return onePoleCoeff{a0: a0, b1: b1, m0: 0, m1: 1}
}

// OnePole is a single-pole IIR filter node. Filter history is kept per
// channel.
type OnePole struct {
	mode            Mode
	sampleRateRecip float64
	coeff           onePoleCoeff
	lastCutoff      float64
	z1              []float64
	params          *param.Set
	cutoff          *param.Value
}

// NewOnePole returns a one-pole filter node. Bandpass mode is not
// available for a single pole and falls back to lowpass.
func NewOnePole(mode Mode, sampleRate, numChannels int, cutoffHz float64) *OnePole {
	params := param.NewSet(sampleRate,
		param.Descriptor{
			Name:     Cutoff,
			Min:      1,
			Max:      float64(sampleRate) / 2,
			Default:  cutoffHz,
			Smooth:   param.Exponential,
			SmoothMs: 20,
		},
	)
	f := &OnePole{
		mode:            mode,
		sampleRateRecip: 1.0 / float64(sampleRate),
		z1:              make([]float64, numChannels),
		params:          params,
		cutoff:          params.Get(Cutoff),
	}
	f.coeff = onePole(mode, cutoffHz, f.sampleRateRecip)
	f.lastCutoff = cutoffHz
	return f
}

// Inputs implements patch.Node.
func (f *OnePole) Inputs() int { return 1 }

// Outputs implements patch.Node.
func (f *OnePole) Outputs() int { return 1 }

// Params implements patch.Node.
func (f *OnePole) Params() *param.Set { return f.params }

// Process implements patch.Node.
func (f *OnePole) Process(inputs, outputs []*signal.Buffer, _ int64) {
	in, out := inputs[0], outputs[0]
	if f.cutoff.Ramping() {
		// advance the ramp across the block, refresh coefficients once
		for i := 0; i < in.Size(); i++ {
			f.cutoff.Next()
		}
	}
	if cutoff := f.cutoff.Current(); cutoff != f.lastCutoff {
		f.coeff = onePole(f.mode, cutoff, f.sampleRateRecip)
		f.lastCutoff = cutoff
	}
	c := f.coeff
	for ch := 0; ch < in.NumChannels(); ch++ {
		src, dst := in.Channel(ch), out.Channel(ch)
		z1 := f.z1[ch]
		for i := range src {
			z1 = c.a0*src[i] + c.b1*z1
			dst[i] = c.m0*src[i] + c.m1*z1
		}
		f.z1[ch] = z1
	}
}
