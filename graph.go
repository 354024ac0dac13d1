package patch

import (
	"fmt"

	"pipelined.dev/patch/pool"
)

// edge is a directed connection between an output port and an input port.
type edge struct {
	from     NodeID
	fromPort int
	to       NodeID
	toPort   int
}

// graph owns the node arena and the committed topology. The arena is
// pre-sized and node ids are never reused, so removing a node cannot
// invalidate an id held elsewhere. All graph state is owned by the audio
// goroutine after the engine is started.
type graph struct {
	nodes []Node // arena indexed by NodeID, nil when absent
	live  []bool // committed scheduled set
	edges []edge // committed connections, insertion ordered
	plan  *plan
}

func newGraph(maxNodes int) *graph {
	return &graph{
		nodes: make([]Node, maxNodes+1),
		live:  make([]bool, maxNodes+1),
	}
}

// topology is a staged copy of the scheduled set and connections.
// Commands of one drained batch mutate the stage, then commit validates
// it as a whole. A rejected batch leaves the committed state untouched.
type topology struct {
	live  []bool
	edges []edge
}

func (g *graph) stage() *topology {
	t := &topology{
		live:  make([]bool, len(g.live)),
		edges: make([]edge, len(g.edges)),
	}
	copy(t.live, g.live)
	copy(t.edges, g.edges)
	return t
}

// apply mutates the staged topology with a single topology command.
// A failed command is dropped without touching the stage.
func (g *graph) apply(t *topology, cmd command) error {
	switch cmd.op {
	case opAdd:
		if g.nodes[cmd.node] != nil {
			return fmt.Errorf("%w: node %d already added", ErrInvalidNodeReference, cmd.node)
		}
		g.nodes[cmd.node] = cmd.impl
		t.live[cmd.node] = true
	case opRemove:
		if !t.live[cmd.node] {
			return fmt.Errorf("%w: node %d", ErrInvalidNodeReference, cmd.node)
		}
		t.live[cmd.node] = false
		// drop all touching connections
		kept := t.edges[:0]
		for _, e := range t.edges {
			if e.from != cmd.node && e.to != cmd.node {
				kept = append(kept, e)
			}
		}
		t.edges = kept
	case opConnect:
		from, to := cmd.node, cmd.peer
		if !t.live[from] {
			return fmt.Errorf("%w: node %d", ErrInvalidNodeReference, from)
		}
		if !t.live[to] {
			return fmt.Errorf("%w: node %d", ErrInvalidNodeReference, to)
		}
		if cmd.fromPort < 0 || cmd.fromPort >= g.nodes[from].Outputs() {
			return fmt.Errorf("%w: output %d of node %d", ErrInvalidPort, cmd.fromPort, from)
		}
		if cmd.toPort < 0 || cmd.toPort >= g.nodes[to].Inputs() {
			return fmt.Errorf("%w: input %d of node %d", ErrInvalidPort, cmd.toPort, to)
		}
		for _, e := range t.edges {
			if e.to == to && e.toPort == cmd.toPort {
				return fmt.Errorf("%w: input %d of node %d", ErrPortConnected, cmd.toPort, to)
			}
		}
		t.edges = append(t.edges, edge{from: from, fromPort: cmd.fromPort, to: to, toPort: cmd.toPort})
	case opDisconnect:
		for i, e := range t.edges {
			if e.from == cmd.node && e.fromPort == cmd.fromPort && e.to == cmd.peer && e.toPort == cmd.toPort {
				t.edges = append(t.edges[:i], t.edges[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %d:%d -> %d:%d", ErrNotConnected, cmd.node, cmd.fromPort, cmd.peer, cmd.toPort)
	}
	return nil
}

// commit validates the staged topology, builds a new execution plan and
// swaps it in. On error the previously committed topology stays active
// and schedulable.
func (g *graph) commit(t *topology, p *pool.Pool) error {
	order, err := g.sort(t)
	if err != nil {
		return err
	}
	plan := buildPlan(order, g.nodes, t.edges)
	if plan.maxLive > p.Capacity() {
		return fmt.Errorf("%w: topology needs %d buffers, pool holds %d",
			ErrInsufficientCapacity, plan.maxLive, p.Capacity())
	}
	g.live = t.live
	g.edges = t.edges
	g.plan = plan
	return nil
}

// sort returns a topological order of the staged topology. Connections
// leaving Latent nodes do not constrain the order, which is what permits
// feedback through an explicit delay. Ties between independent nodes are
// broken by ascending id, i.e. insertion order, keeping the schedule
// deterministic across runs.
func (g *graph) sort(t *topology) ([]NodeID, error) {
	inDegree := make([]int, len(t.live))
	adjacent := make([][]NodeID, len(t.live))
	liveCount := 0
	for id := range t.live {
		if t.live[id] {
			liveCount++
		}
	}
	// index edges per source node up front, so the loop below visits
	// each edge exactly once and commit stays O(nodes + edges)
	for _, e := range t.edges {
		if _, ok := g.nodes[e.from].(Latent); ok {
			continue
		}
		inDegree[e.to]++
		adjacent[e.from] = append(adjacent[e.from], e.to)
	}

	ready := newIDHeap(liveCount)
	for id := range t.live {
		if t.live[id] && inDegree[id] == 0 {
			ready.push(NodeID(id))
		}
	}

	order := make([]NodeID, 0, liveCount)
	for ready.len() > 0 {
		id := ready.pop()
		order = append(order, id)
		for _, to := range adjacent[id] {
			inDegree[to]--
			if inDegree[to] == 0 {
				ready.push(to)
			}
		}
	}
	if len(order) != liveCount {
		return nil, fmt.Errorf("%w: %d of %d nodes unreachable from a root",
			ErrCyclicGraph, liveCount-len(order), liveCount)
	}
	return order, nil
}

// idHeap is a binary min-heap of node ids used to break scheduling ties
// deterministically.
type idHeap struct {
	ids []NodeID
}

func newIDHeap(capacity int) *idHeap {
	return &idHeap{ids: make([]NodeID, 0, capacity)}
}

func (h *idHeap) len() int {
	return len(h.ids)
}

func (h *idHeap) push(id NodeID) {
	h.ids = append(h.ids, id)
	i := len(h.ids) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.ids[parent] <= h.ids[i] {
			break
		}
		h.ids[parent], h.ids[i] = h.ids[i], h.ids[parent]
		i = parent
	}
}

func (h *idHeap) pop() NodeID {
	top := h.ids[0]
	last := len(h.ids) - 1
	h.ids[0] = h.ids[last]
	h.ids = h.ids[:last]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		least := i
		if left < len(h.ids) && h.ids[left] < h.ids[least] {
			least = left
		}
		if right < len(h.ids) && h.ids[right] < h.ids[least] {
			least = right
		}
		if least == i {
			break
		}
		h.ids[i], h.ids[least] = h.ids[least], h.ids[i]
		i = least
	}
	return top
}
