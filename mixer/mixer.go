// Package mixer provides a node summing several inputs into a single
// output. Each input has its own smoothed level; unconnected inputs
// carry silence and do not color the mix.
package mixer

import (
	"fmt"

	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// LevelName returns the parameter name of the level of the input.
func LevelName(input int) string {
	return fmt.Sprintf("level.%d", input)
}

// Mixer sums inputs blocks into one output block.
type Mixer struct {
	inputs int
	params *param.Set
	levels []*param.Value
}

// New returns a mixer with the given number of inputs, all at unity
// level.
func New(sampleRate, inputs int) *Mixer {
	descriptors := make([]param.Descriptor, inputs)
	for i := range descriptors {
		descriptors[i] = param.Descriptor{
			Name:     LevelName(i),
			Min:      0,
			Max:      4,
			Default:  1,
			Smooth:   param.Exponential,
			SmoothMs: 10,
		}
	}
	params := param.NewSet(sampleRate, descriptors...)
	levels := make([]*param.Value, inputs)
	for i := range levels {
		levels[i] = params.Get(LevelName(i))
	}
	return &Mixer{
		inputs: inputs,
		params: params,
		levels: levels,
	}
}

// Inputs implements patch.Node.
func (m *Mixer) Inputs() int { return m.inputs }

// Outputs implements patch.Node.
func (m *Mixer) Outputs() int { return 1 }

// Params implements patch.Node.
func (m *Mixer) Params() *param.Set { return m.params }

// Process implements patch.Node.
func (m *Mixer) Process(inputs, outputs []*signal.Buffer, _ int64) {
	out := outputs[0]
	out.Silence()
	for i, in := range inputs {
		level := m.levels[i]
		if !level.Ramping() && level.Current() == 0 {
			continue
		}
		first := out.Channel(0)
		for s := range first {
			// the ramp is advanced once per sample and reused for all
			// channels
			lv := level.Next()
			for c := 0; c < out.NumChannels(); c++ {
				out.Channel(c)[s] += in.Channel(c)[s] * lv
			}
		}
	}
}
