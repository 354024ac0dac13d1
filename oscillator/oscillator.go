// Package oscillator provides band-limited-enough waveform sources for
// a patch: sine, sawtooth, square and triangle. The same signal is
// written to every channel of the output block.
package oscillator

import (
	"math"

	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Shape selects the generated waveform.
type Shape uint8

const (
	// Sine is a pure sine wave.
	Sine Shape = iota
	// Saw is a rising sawtooth.
	Saw
	// Square is a square wave with 50% duty cycle.
	Square
	// Triangle is a triangle wave.
	Triangle
)

// Parameter names.
const (
	Frequency = "frequency"
	Amplitude = "amplitude"
)

// Oscillator is a source node with smoothed frequency and amplitude.
type Oscillator struct {
	shape      Shape
	sampleRate float64
	phase      float64
	params     *param.Set
	freq       *param.Value
	amp        *param.Value
}

// New returns an oscillator for the given shape and initial frequency.
func New(shape Shape, sampleRate int, frequency float64) *Oscillator {
	params := param.NewSet(sampleRate,
		param.Descriptor{
			Name:     Frequency,
			Min:      0,
			Max:      float64(sampleRate) / 2,
			Default:  frequency,
			Smooth:   param.Exponential,
			SmoothMs: 20,
		},
		param.Descriptor{
			Name:     Amplitude,
			Min:      0,
			Max:      1,
			Default:  1,
			Smooth:   param.Exponential,
			SmoothMs: 10,
		},
	)
	return &Oscillator{
		shape:      shape,
		sampleRate: float64(sampleRate),
		params:     params,
		freq:       params.Get(Frequency),
		amp:        params.Get(Amplitude),
	}
}

// Inputs implements patch.Node.
func (o *Oscillator) Inputs() int { return 0 }

// Outputs implements patch.Node.
func (o *Oscillator) Outputs() int { return 1 }

// Params implements patch.Node.
func (o *Oscillator) Params() *param.Set { return o.params }

// Process implements patch.Node.
func (o *Oscillator) Process(_, outputs []*signal.Buffer, _ int64) {
	out := outputs[0]
	first := out.Channel(0)
	for i := range first {
		freq := o.freq.Next()
		amp := o.amp.Next()
		first[i] = amp * o.sample()
		o.phase += freq / o.sampleRate
		if o.phase >= 1 {
			o.phase -= 1
		}
	}
	for c := 1; c < out.NumChannels(); c++ {
		copy(out.Channel(c), first)
	}
}

// sample evaluates the waveform at the current phase, in [0, 1).
func (o *Oscillator) sample() float64 {
	switch o.shape {
	case Saw:
		return 2*o.phase - 1
	case Square:
		if o.phase < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		if o.phase < 0.5 {
			return 4*o.phase - 1
		}
		return 3 - 4*o.phase
	default:
		return math.Sin(2 * math.Pi * o.phase)
	}
}
