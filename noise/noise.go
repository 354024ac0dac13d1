// Package noise provides a deterministic white noise source.
package noise

import (
	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Amplitude is the name of the output level parameter.
const Amplitude = "amplitude"

// Noise is a white noise source node. The generator is a 64 bit
// xorshift seeded at construction, so a given seed always produces the
// same signal.
type Noise struct {
	state  uint64
	params *param.Set
	amp    *param.Value
}

// New returns a noise source with the given seed.
func New(sampleRate int, seed uint64) *Noise {
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	params := param.NewSet(sampleRate,
		param.Descriptor{
			Name:     Amplitude,
			Min:      0,
			Max:      1,
			Default:  1,
			Smooth:   param.Exponential,
			SmoothMs: 10,
		},
	)
	return &Noise{
		state:  seed,
		params: params,
		amp:    params.Get(Amplitude),
	}
}

// Inputs implements patch.Node.
func (n *Noise) Inputs() int { return 0 }

// Outputs implements patch.Node.
func (n *Noise) Outputs() int { return 1 }

// Params implements patch.Node.
func (n *Noise) Params() *param.Set { return n.params }

// Process implements patch.Node.
func (n *Noise) Process(_, outputs []*signal.Buffer, _ int64) {
	out := outputs[0]
	first := out.Channel(0)
	for i := range first {
		n.state ^= n.state << 13
		n.state ^= n.state >> 7
		n.state ^= n.state << 17
		// map to [-1, 1)
		first[i] = n.amp.Next() * (float64(int64(n.state)) / float64(1<<63))
	}
	for c := 1; c < out.NumChannels(); c++ {
		copy(out.Channel(c), first)
	}
}
