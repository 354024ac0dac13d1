package patch

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"pipelined.dev/patch/log"
	"pipelined.dev/patch/metric"
	"pipelined.dev/patch/pool"
	"pipelined.dev/patch/ring"
	"pipelined.dev/patch/signal"
)

// nodeState is the control-side view of a node id.
type nodeState struct {
	live    bool
	inputs  int
	outputs int
}

// Engine schedules a patch once per block. An external driver calls
// ProcessBlock on its real-time goroutine; everything else happens on
// the control plane and reaches the audio path only through the bounded
// command queue.
type Engine struct {
	uid string
	cfg Config
	log log.Logger

	// control plane; the mutex serializes control callers, it is never
	// taken by the audio goroutine.
	mu       sync.Mutex
	commands *ring.Queue[command]
	nextID   NodeID
	shadow   []nodeState

	// audio plane, owned by the audio goroutine
	graph   *graph
	pool    *pool.Pool
	silence *signal.Buffer
	in      NodeID
	out     NodeID
	inImpl  *inNode
	outImpl *outNode
	measure metric.MeasureFunc

	// diagnostics, audio side produces, control side consumes
	events  *ring.Queue[Event]
	dropped atomic.Int64
	clock   atomic.Int64
}

// New builds an engine for the configuration. The input and output
// endpoints of the patch are created here and stay for the engine
// lifetime; everything else is added through the control API.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	uid := xid.New().String()
	e := &Engine{
		uid:      uid,
		cfg:      cfg,
		log:      log.GetLogger(),
		commands: ring.New[command](cfg.QueueSize),
		shadow:   make([]nodeState, cfg.MaxNodes+1),
		graph:    newGraph(cfg.MaxNodes),
		pool:     pool.New(cfg.PoolSize, cfg.NumChannels, cfg.BlockSize),
		silence:  signal.Alloc(cfg.NumChannels, cfg.BlockSize),
		inImpl:   &inNode{},
		outImpl:  &outNode{},
		events:   ring.New[Event](cfg.EventQueueSize),
		measure:  metric.Meter(uid),
	}
	e.nextID = 1
	e.in = e.register(e.inImpl)
	e.out = e.register(e.outImpl)

	// commit the empty patch so the engine is schedulable immediately
	t := e.graph.stage()
	if err := e.graph.commit(t, e.pool); err != nil {
		return nil, err
	}
	e.log.Debug("engine ", e.uid, " created: ", cfg.SampleRate, "Hz block ", cfg.BlockSize)
	return e, nil
}

// register inserts an engine-owned node directly into the arena. Only
// used during construction, before the audio goroutine exists.
func (e *Engine) register(n Node) NodeID {
	id := e.nextID
	e.nextID++
	e.graph.nodes[id] = n
	e.graph.live[id] = true
	e.shadow[id] = nodeState{live: true, inputs: n.Inputs(), outputs: n.Outputs()}
	return id
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// In returns the id of the patch input endpoint. Its single output
// carries the block passed by the driver to ProcessBlock.
func (e *Engine) In() NodeID {
	return e.in
}

// Out returns the id of the patch output endpoint. Whatever is connected
// to its single input is delivered to the driver.
func (e *Engine) Out() NodeID {
	return e.out
}

// UID returns the engine identity used in diagnostics and metrics.
func (e *Engine) UID() string {
	return e.uid
}

// Clock returns the engine sample clock: the time of the first sample of
// the next block.
func (e *Engine) Clock() int64 {
	return e.clock.Load()
}

// Add enqueues a node addition and returns the id the node will have.
// The node instance is handed over to the engine: after a successful Add
// the caller must not touch it.
func (e *Engine) Add(n Node) (NodeID, error) {
	if n == nil {
		return 0, fmt.Errorf("%w: nil node", ErrInvalidNodeReference)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if int(e.nextID) > e.cfg.MaxNodes {
		return 0, ErrTooManyNodes
	}
	id := e.nextID
	if !e.commands.Push(command{op: opAdd, node: id, impl: n}) {
		return 0, ErrQueueFull
	}
	e.nextID++
	e.shadow[id] = nodeState{live: true, inputs: n.Inputs(), outputs: n.Outputs()}
	return id, nil
}

// Remove enqueues a node removal. Connections touching the node are
// removed with it. The engine endpoints cannot be removed.
func (e *Engine) Remove(id NodeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.known(id); err != nil {
		return err
	}
	if id == e.in || id == e.out {
		return fmt.Errorf("%w: node %d is an engine endpoint", ErrInvalidNodeReference, id)
	}
	if !e.commands.Push(command{op: opRemove, node: id}) {
		return ErrQueueFull
	}
	e.shadow[id].live = false
	return nil
}

// Connect enqueues a connection from an output port to an input port.
func (e *Engine) Connect(from NodeID, fromPort int, to NodeID, toPort int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.known(from); err != nil {
		return err
	}
	if err := e.known(to); err != nil {
		return err
	}
	if fromPort < 0 || fromPort >= e.shadow[from].outputs {
		return fmt.Errorf("%w: output %d of node %d", ErrInvalidPort, fromPort, from)
	}
	if toPort < 0 || toPort >= e.shadow[to].inputs {
		return fmt.Errorf("%w: input %d of node %d", ErrInvalidPort, toPort, to)
	}
	if !e.commands.Push(command{op: opConnect, node: from, fromPort: fromPort, peer: to, toPort: toPort}) {
		return ErrQueueFull
	}
	return nil
}

// Disconnect enqueues removal of a connection.
func (e *Engine) Disconnect(from NodeID, fromPort int, to NodeID, toPort int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.known(from); err != nil {
		return err
	}
	if err := e.known(to); err != nil {
		return err
	}
	if !e.commands.Push(command{op: opDisconnect, node: from, fromPort: fromPort, peer: to, toPort: toPort}) {
		return ErrQueueFull
	}
	return nil
}

// SetParam enqueues a smoothed parameter change: the live value ramps
// toward the target according to the parameter descriptor.
func (e *Engine) SetParam(id NodeID, name string, value float64) error {
	return e.setParam(opSetParam, id, name, value)
}

// SetParamNow enqueues an immediate parameter change, bypassing the
// ramp. Intended for initial patch load, not for live tweaking.
func (e *Engine) SetParamNow(id NodeID, name string, value float64) error {
	return e.setParam(opSetParamNow, id, name, value)
}

func (e *Engine) setParam(op opCode, id NodeID, name string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.known(id); err != nil {
		return err
	}
	if !e.commands.Push(command{op: op, node: id, name: name, value: value}) {
		return ErrQueueFull
	}
	return nil
}

// known reports whether the id addresses a live node from the control
// plane point of view. Callers hold e.mu.
func (e *Engine) known(id NodeID) error {
	if id <= 0 || id >= e.nextID || !e.shadow[id].live {
		return fmt.Errorf("%w: node %d", ErrInvalidNodeReference, id)
	}
	return nil
}

// Events drains pending diagnostic events into dst and returns the
// number written. Called from the control plane; callers are
// serialized on the control mutex like every other control method,
// the diagnostics queue itself only supports a single consumer.
func (e *Engine) Events(dst []Event) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for n < len(dst) {
		ev, ok := e.events.Pop()
		if !ok {
			break
		}
		dst[n] = ev
		n++
	}
	return n
}

// DroppedEvents returns the total number of diagnostic events dropped
// because the diagnostics queue was full.
func (e *Engine) DroppedEvents() int64 {
	return e.dropped.Load()
}

// emit publishes a diagnostic event without blocking. Audio side only.
func (e *Engine) emit(ev Event) {
	if !e.events.Push(ev) {
		e.dropped.Add(1)
	}
}

// drain applies every pending command in enqueue order. Topology
// commands mutate a staged copy which is committed as a single batch
// afterwards; a rejected batch leaves the active topology untouched.
// Runs on the audio goroutine at the start of every block.
func (e *Engine) drain() {
	var (
		staged *topology
		clock  = e.clock.Load()
		limit  = e.commands.Cap()
	)
	for i := 0; i < limit; i++ {
		cmd, ok := e.commands.Pop()
		if !ok {
			break
		}
		switch cmd.op {
		case opSetParam, opSetParamNow:
			node := e.graph.nodes[cmd.node]
			if node == nil || !e.nodeCommitted(staged, cmd.node) {
				e.emit(Event{Kind: EventBadCommand, Node: cmd.node, Clock: clock})
				continue
			}
			v := node.Params().Get(cmd.name)
			if v == nil {
				e.emit(Event{Kind: EventBadCommand, Node: cmd.node, Clock: clock})
				continue
			}
			if cmd.op == opSetParam {
				v.SetTarget(cmd.value)
			} else {
				v.SetImmediate(cmd.value)
			}
		default:
			if staged == nil {
				staged = e.graph.stage()
			}
			if err := e.graph.apply(staged, cmd); err != nil {
				e.emit(Event{Kind: EventBadCommand, Node: cmd.node, Clock: clock, Err: err})
			}
		}
	}
	if staged != nil {
		if err := e.graph.commit(staged, e.pool); err != nil {
			e.emit(Event{Kind: EventRejectedCommit, Clock: clock, Err: err})
		}
	}
}

// nodeCommitted reports whether the node is scheduled, preferring the
// staged view when a topology batch is in progress.
func (e *Engine) nodeCommitted(staged *topology, id NodeID) bool {
	if staged != nil {
		return staged.live[id]
	}
	return e.graph.live[id]
}

// ProcessBlock processes a single block of audio. The driver calls it
// once per block period on its real-time goroutine. in carries the
// driver input and may be nil; out receives the patch output and must
// match the engine channel count and block size. The block is always
// delivered: faults inside nodes are contained as silence.
func (e *Engine) ProcessBlock(in, out *signal.Buffer) {
	e.drain()

	clock := e.clock.Load()
	droppedBefore := e.dropped.Load()
	e.inImpl.src = in
	e.outImpl.dst = out

	p := e.graph.plan
	copy(p.refs, p.refTmpl)

	var faults int64
	for i := range p.steps {
		st := &p.steps[i]
		// resolve inputs
		for pi := range st.inputs {
			ref := st.inputs[pi]
			switch ref.kind {
			case srcProduced:
				st.inBufs[pi] = p.bufs[p.steps[ref.step].outOff+ref.port]
			case srcHeld:
				st.inBufs[pi] = p.steps[ref.step].latent.Held(int(ref.port))
			default:
				st.inBufs[pi] = e.silence
			}
		}
		// lend outputs
		if st.latent != nil {
			for o := range st.outBufs {
				st.outBufs[o] = st.latent.Held(o)
			}
		} else {
			for o := range st.outBufs {
				b, err := e.pool.Acquire()
				if err != nil {
					// commit guarantees capacity for every accepted
					// topology, running dry is a bug in the engine
					panic(fmt.Sprintf("patch: %v at node %d", err, st.id))
				}
				st.outBufs[o] = b
				p.bufs[st.outOff+int32(o)] = b
			}
		}

		st.node.Process(st.inBufs, st.outBufs, clock)

		// contain non-finite output instead of letting it spread
		for o := range st.outBufs {
			if !st.outBufs[o].Finite() {
				st.outBufs[o].Silence()
				faults++
				e.emit(Event{Kind: EventFault, Node: st.id, Clock: clock})
			}
		}

		// return buffers nobody will read
		if st.latent == nil {
			for o := range st.outBufs {
				if p.refs[st.outOff+int32(o)] == 0 {
					if err := e.pool.Release(st.outBufs[o]); err != nil {
						// a rejected release means the refcounting is
						// broken, leaking here would hide it
						panic(fmt.Sprintf("patch: %v at node %d", err, st.id))
					}
				}
			}
		}
		// return inputs after their last consumer
		for _, ref := range st.inputs {
			if ref.kind != srcProduced {
				continue
			}
			idx := p.steps[ref.step].outOff + ref.port
			p.refs[idx]--
			if p.refs[idx] == 0 {
				if err := e.pool.Release(p.bufs[idx]); err != nil {
					panic(fmt.Sprintf("patch: %v at node %d", err, st.id))
				}
			}
		}
	}

	e.inImpl.src = nil
	e.outImpl.dst = nil
	e.clock.Store(clock + int64(e.cfg.BlockSize))
	e.measure(int64(e.cfg.BlockSize), faults, e.dropped.Load()-droppedBefore)
}
