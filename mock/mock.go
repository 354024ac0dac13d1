// Package mock provides configurable nodes for testing the engine.
package mock

import (
	"math"

	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Value is the name of the mock source parameter.
const Value = "value"

// Source outputs a constant value on every sample. Used to assert
// scheduling and mixing without real DSP.
type Source struct {
	Calls  int
	Clocks []int64 // clock of each Process call when Record is set
	Record bool

	params *param.Set
	value  *param.Value
}

// NewSource returns a source emitting the value.
func NewSource(sampleRate int, value float64, smooth param.Smoothing, smoothMs float64) *Source {
	params := param.NewSet(sampleRate,
		param.Descriptor{
			Name:     Value,
			Default:  value,
			Smooth:   smooth,
			SmoothMs: smoothMs,
		},
	)
	return &Source{
		params: params,
		value:  params.Get(Value),
	}
}

// Inputs implements patch.Node.
func (s *Source) Inputs() int { return 0 }

// Outputs implements patch.Node.
func (s *Source) Outputs() int { return 1 }

// Params implements patch.Node.
func (s *Source) Params() *param.Set { return s.params }

// Process implements patch.Node.
func (s *Source) Process(_, outputs []*signal.Buffer, clock int64) {
	s.Calls++
	if s.Record {
		s.Clocks = append(s.Clocks, clock)
	}
	out := outputs[0]
	first := out.Channel(0)
	for i := range first {
		first[i] = s.value.Next()
	}
	for c := 1; c < out.NumChannels(); c++ {
		copy(out.Channel(c), first)
	}
}

// Pass copies its input to its output and counts calls. Faulty makes it
// emit a NaN in the first sample instead, to exercise fault containment.
type Pass struct {
	Calls  int
	Faulty bool
}

// NewPass returns a pass-through node.
func NewPass() *Pass {
	return &Pass{}
}

// Inputs implements patch.Node.
func (p *Pass) Inputs() int { return 1 }

// Outputs implements patch.Node.
func (p *Pass) Outputs() int { return 1 }

// Params implements patch.Node.
func (p *Pass) Params() *param.Set { return nil }

// Process implements patch.Node.
func (p *Pass) Process(inputs, outputs []*signal.Buffer, _ int64) {
	p.Calls++
	outputs[0].Copy(inputs[0])
	if p.Faulty {
		outputs[0].Channel(0)[0] = math.NaN()
	}
}

// Sink consumes its input and remembers the last block it saw. It has
// no outputs.
type Sink struct {
	Calls int
	Last  *signal.Buffer
}

// NewSink returns a sink node capturing blocks of the given dimensions.
func NewSink(numChannels, blockSize int) *Sink {
	return &Sink{
		Last: signal.Alloc(numChannels, blockSize),
	}
}

// Inputs implements patch.Node.
func (s *Sink) Inputs() int { return 1 }

// Outputs implements patch.Node.
func (s *Sink) Outputs() int { return 0 }

// Params implements patch.Node.
func (s *Sink) Params() *param.Set { return nil }

// Process implements patch.Node.
func (s *Sink) Process(inputs, _ []*signal.Buffer, _ int64) {
	s.Calls++
	s.Last.Copy(inputs[0])
}
