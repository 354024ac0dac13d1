// Package gain provides a node scaling its input by a smoothed linear
// level.
package gain

import (
	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Level is the name of the linear gain parameter.
const Level = "level"

// Gain scales one input block by a smoothed factor.
type Gain struct {
	params *param.Set
	level  *param.Value
}

// New returns a gain node with the initial linear level.
func New(sampleRate int, level float64) *Gain {
	params := param.NewSet(sampleRate,
		param.Descriptor{
			Name:     Level,
			Min:      0,
			Max:      4,
			Default:  level,
			Smooth:   param.Exponential,
			SmoothMs: 10,
		},
	)
	return &Gain{
		params: params,
		level:  params.Get(Level),
	}
}

// NewDB returns a gain node with the initial level in decibel.
func NewDB(sampleRate int, db float64) *Gain {
	return New(sampleRate, param.DBToAmp(db))
}

// Inputs implements patch.Node.
func (g *Gain) Inputs() int { return 1 }

// Outputs implements patch.Node.
func (g *Gain) Outputs() int { return 1 }

// Params implements patch.Node.
func (g *Gain) Params() *param.Set { return g.params }

// Process implements patch.Node.
func (g *Gain) Process(inputs, outputs []*signal.Buffer, _ int64) {
	in, out := inputs[0], outputs[0]
	first := out.Channel(0)
	src := in.Channel(0)
	// the ramp is advanced once per sample and reused for all channels
	for i := range first {
		level := g.level.Next()
		first[i] = src[i] * level
		for c := 1; c < out.NumChannels(); c++ {
			out.Channel(c)[i] = in.Channel(c)[i] * level
		}
	}
}
