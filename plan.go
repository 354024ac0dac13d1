package patch

import (
	"pipelined.dev/patch/signal"
)

type srcKind uint8

const (
	// srcSilence feeds an unconnected input with the shared silence
	// buffer.
	srcSilence srcKind = iota
	// srcProduced feeds an input with a buffer produced by an upstream
	// step earlier this block.
	srcProduced
	// srcHeld feeds an input with the persistent buffer of a Latent
	// node. The buffer is valid regardless of step order, which is what
	// makes feedback connections legal.
	srcHeld
)

type inputRef struct {
	kind srcKind
	step int32
	port int32
}

// step is one node of the compiled schedule together with its resolved
// buffer plumbing. The inBufs/outBufs slices are pre-sized scratch
// reused every block.
type step struct {
	id      NodeID
	node    Node
	latent  Latent
	inputs  []inputRef
	inBufs  []*signal.Buffer
	outBufs []*signal.Buffer
	outOff  int32
}

// plan is a compiled execution schedule for one committed topology. It
// is built at commit and read-only afterwards except for the per-block
// scratch state (bufs, refs, inBufs, outBufs), which only the audio
// goroutine touches.
type plan struct {
	steps []step
	// bufs and refs form the block-wide table of pool-produced outputs:
	// one slot per output port of every non-latent step.
	bufs    []*signal.Buffer
	refs    []int32
	refTmpl []int32
	// maxLive is the worst-case number of concurrently lent pool
	// buffers for this schedule. Commit rejects the topology when it
	// exceeds the pool capacity.
	maxLive int
}

// buildPlan compiles a topological order and connection set into an
// executable schedule.
func buildPlan(order []NodeID, nodes []Node, edges []edge) *plan {
	p := &plan{
		steps: make([]step, len(order)),
	}
	stepOf := make(map[NodeID]int32, len(order))

	outputs := 0
	for i, id := range order {
		n := nodes[id]
		st := &p.steps[i]
		st.id = id
		st.node = n
		st.latent, _ = n.(Latent)
		st.inputs = make([]inputRef, n.Inputs())
		st.inBufs = make([]*signal.Buffer, n.Inputs())
		st.outBufs = make([]*signal.Buffer, n.Outputs())
		st.outOff = int32(outputs)
		if st.latent == nil {
			outputs += n.Outputs()
		}
		stepOf[id] = int32(i)
	}
	p.bufs = make([]*signal.Buffer, outputs)
	p.refs = make([]int32, outputs)
	p.refTmpl = make([]int32, outputs)

	for _, e := range edges {
		producer := p.steps[stepOf[e.from]]
		consumer := &p.steps[stepOf[e.to]]
		if producer.latent != nil {
			consumer.inputs[e.toPort] = inputRef{
				kind: srcHeld,
				step: stepOf[e.from],
				port: int32(e.fromPort),
			}
			continue
		}
		consumer.inputs[e.toPort] = inputRef{
			kind: srcProduced,
			step: stepOf[e.from],
			port: int32(e.fromPort),
		}
		p.refTmpl[producer.outOff+int32(e.fromPort)]++
	}

	p.maxLive = p.simulate()
	return p
}

// simulate walks the schedule the same way execute does and returns the
// worst-case number of concurrently lent buffers.
func (p *plan) simulate() int {
	refs := make([]int32, len(p.refTmpl))
	copy(refs, p.refTmpl)
	live, maxLive := 0, 0
	for i := range p.steps {
		st := &p.steps[i]
		if st.latent == nil {
			live += len(st.outBufs)
			if live > maxLive {
				maxLive = live
			}
			// unconnected outputs are returned right away
			for o := range st.outBufs {
				if refs[st.outOff+int32(o)] == 0 {
					live--
				}
			}
		}
		for _, ref := range st.inputs {
			if ref.kind != srcProduced {
				continue
			}
			idx := p.steps[ref.step].outOff + ref.port
			refs[idx]--
			if refs[idx] == 0 {
				live--
			}
		}
	}
	return maxLive
}
