package filter

import (
	"math"

	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Resonance is the name of the SVF resonance (Q) parameter.
const Resonance = "resonance"

// QButterworth is the Q of a 2nd order Butterworth response.
const QButterworth = 0.70710678118654752440

// svfCoeff holds the coefficients of the trapezoidal SVF model.
type svfCoeff struct {
	a1, a2, a3 float64
	m0, m1, m2 float64
}

func svf(mode Mode, cutoffHz, q, sampleRateRecip float64) svfCoeff {
	g := math.Tan(math.Pi * cutoffHz * sampleRateRecip)
	k := 1.0 / q
	var m0, m1, m2 float64
	switch mode {
	case Highpass:
		m0, m1, m2 = 1, -k, -1
	case Bandpass:
		m0, m1, m2 = 0, 1, 0
	default:
		m0, m1, m2 = 0, 0, 1
	}
	a1 := 1.0 / (1.0 + g*(g+k))
	a2 := g * a1
	a3 := g * a2
	return svfCoeff{a1: a1, a2: a2, a3: a3, m0: m0, m1: m1, m2: m2}
}

// svfState is the filter history of one channel.
type svfState struct {
	ic1eq, ic2eq float64
}

func (s *svfState) tick(input float64, c *svfCoeff) float64 {
	v3 := input - s.ic2eq
	v1 := c.a1*s.ic1eq + c.a2*v3
	v2 := s.ic2eq + c.a2*s.ic1eq + c.a3*v3
	s.ic1eq = 2.0*v1 - s.ic1eq
	s.ic2eq = 2.0*v2 - s.ic2eq
	return c.m0*input + c.m1*v1 + c.m2*v2
}

// SVF is a 2nd order state variable filter node with smoothed cutoff
// and resonance.
type SVF struct {
	mode            Mode
	sampleRateRecip float64
	coeff           svfCoeff
	lastCutoff      float64
	lastQ           float64
	state           []svfState
	params          *param.Set
	cutoff          *param.Value
	resonance       *param.Value
}

// NewSVF returns an SVF node.
func NewSVF(mode Mode, sampleRate, numChannels int, cutoffHz, q float64) *SVF {
	params := param.NewSet(sampleRate,
		param.Descriptor{
			Name:     Cutoff,
			Min:      1,
			Max:      float64(sampleRate) / 2,
			Default:  cutoffHz,
			Smooth:   param.Exponential,
			SmoothMs: 20,
		},
		param.Descriptor{
			Name:     Resonance,
			Min:      0.1,
			Max:      20,
			Default:  q,
			Smooth:   param.Exponential,
			SmoothMs: 20,
		},
	)
	f := &SVF{
		mode:            mode,
		sampleRateRecip: 1.0 / float64(sampleRate),
		state:           make([]svfState, numChannels),
		params:          params,
		cutoff:          params.Get(Cutoff),
		resonance:       params.Get(Resonance),
	}
	f.coeff = svf(mode, cutoffHz, q, f.sampleRateRecip)
	f.lastCutoff, f.lastQ = cutoffHz, q
	return f
}

// Inputs implements patch.Node.
func (f *SVF) Inputs() int { return 1 }

// Outputs implements patch.Node.
func (f *SVF) Outputs() int { return 1 }

// Params implements patch.Node.
func (f *SVF) Params() *param.Set { return f.params }

// Process implements patch.Node.
func (f *SVF) Process(inputs, outputs []*signal.Buffer, _ int64) {
	in, out := inputs[0], outputs[0]
	if f.cutoff.Ramping() || f.resonance.Ramping() {
		for i := 0; i < in.Size(); i++ {
			f.cutoff.Next()
			f.resonance.Next()
		}
	}
	if cutoff, q := f.cutoff.Current(), f.resonance.Current(); cutoff != f.lastCutoff || q != f.lastQ {
		f.coeff = svf(f.mode, cutoff, q, f.sampleRateRecip)
		f.lastCutoff, f.lastQ = cutoff, q
	}
	c := f.coeff
	for ch := 0; ch < in.NumChannels(); ch++ {
		src, dst := in.Channel(ch), out.Channel(ch)
		state := &f.state[ch]
		for i := range src {
			dst[i] = state.tick(src[i], &c)
		}
	}
}
