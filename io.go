package patch

import (
	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// inNode exposes the driver-provided input block as a source inside the
// patch. The engine points it at the driver buffer before every block.
type inNode struct {
	src *signal.Buffer
}

func (n *inNode) Inputs() int        { return 0 }
func (n *inNode) Outputs() int       { return 1 }
func (n *inNode) Params() *param.Set { return nil }

func (n *inNode) Process(_, outputs []*signal.Buffer, _ int64) {
	if n.src == nil {
		outputs[0].Silence()
		return
	}
	outputs[0].Copy(n.src)
}

// outNode delivers its input to the driver-provided output block. When
// nothing is connected to it the driver receives silence.
type outNode struct {
	dst *signal.Buffer
}

func (n *outNode) Inputs() int        { return 1 }
func (n *outNode) Outputs() int       { return 0 }
func (n *outNode) Params() *param.Set { return nil }

func (n *outNode) Process(inputs, _ []*signal.Buffer, _ int64) {
	if n.dst == nil {
		return
	}
	n.dst.Copy(inputs[0])
}
