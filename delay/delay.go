// Package delay provides a node delaying its input by a whole number of
// blocks. It is the structural cycle breaker of a patch: a feedback
// connection is legal only when it passes through a delaying node, and
// the delay line is the node state that makes the cycle computable.
package delay

import (
	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Delay holds back its input signal by a fixed number of blocks. The
// delay line and the held output block are owned by the node and
// allocated once, at construction.
type Delay struct {
	blocks int
	line   []*signal.Buffer // past input blocks, oldest at pos
	pos    int
	held   *signal.Buffer
}

// New returns a delay of the given number of blocks, at least one.
func New(numChannels, blockSize, blocks int) *Delay {
	if blocks < 1 {
		blocks = 1
	}
	d := &Delay{
		blocks: blocks,
		line:   make([]*signal.Buffer, blocks),
		held:   signal.Alloc(numChannels, blockSize),
	}
	for i := range d.line {
		d.line[i] = signal.Alloc(numChannels, blockSize)
	}
	return d
}

// Inputs implements patch.Node.
func (d *Delay) Inputs() int { return 1 }

// Outputs implements patch.Node.
func (d *Delay) Outputs() int { return 1 }

// Params implements patch.Node.
func (d *Delay) Params() *param.Set { return nil }

// BlockLatency implements patch.Latent.
func (d *Delay) BlockLatency() int { return d.blocks }

// Held implements patch.Latent.
func (d *Delay) Held(int) *signal.Buffer { return d.held }

// Process implements patch.Node. outputs[0] is the held buffer lent
// back by the engine.
func (d *Delay) Process(inputs, outputs []*signal.Buffer, _ int64) {
	oldest := d.line[d.pos]
	outputs[0].Copy(oldest)
	oldest.Copy(inputs[0])
	d.pos++
	if d.pos == d.blocks {
		d.pos = 0
	}
}
