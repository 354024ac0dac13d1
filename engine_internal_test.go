package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/patch/mock"
	"pipelined.dev/patch/param"
	"pipelined.dev/patch/pool"
	"pipelined.dev/patch/signal"
)

// Every pooled buffer acquired during a block must be released by the
// end of it, no matter how the topology fans out.
func TestPoolBalanced(t *testing.T) {
	e, err := New(Config{SampleRate: 44100, BlockSize: 16, NumChannels: 2})
	require.NoError(t, err)

	src, err := e.Add(mock.NewSource(44100, 0.5, param.None, 0))
	require.NoError(t, err)
	a, err := e.Add(mock.NewPass())
	require.NoError(t, err)
	b, err := e.Add(mock.NewPass())
	require.NoError(t, err)
	sink, err := e.Add(mock.NewSink(2, 16))
	require.NoError(t, err)

	// fan-out from the source, one branch into a sink, the other into
	// the engine output
	require.NoError(t, e.Connect(src, 0, a, 0))
	require.NoError(t, e.Connect(src, 0, b, 0))
	require.NoError(t, e.Connect(a, 0, sink, 0))
	require.NoError(t, e.Connect(b, 0, e.Out(), 0))

	capacity := e.pool.Capacity()
	out := signal.Alloc(2, 16)
	for i := 0; i < 10; i++ {
		e.ProcessBlock(nil, out)
		assert.Equal(t, capacity, e.pool.Free(), "block %d leaked buffers", i)
	}
}

// rogueNode violates the lending contract by returning its output
// buffer to the pool inside Process.
type rogueNode struct {
	pool *pool.Pool
}

func (n *rogueNode) Inputs() int        { return 0 }
func (n *rogueNode) Outputs() int       { return 1 }
func (n *rogueNode) Params() *param.Set { return nil }
func (n *rogueNode) Process(_, outputs []*signal.Buffer, _ int64) {
	n.pool.Release(outputs[0])
}

// A buffer returned behind the engine's back makes the engine's own
// release fail; that is a broken invariant and must surface instead of
// silently leaking buffers.
func TestContractViolationPanics(t *testing.T) {
	e, err := New(Config{SampleRate: 44100, BlockSize: 8, NumChannels: 1})
	require.NoError(t, err)

	id, err := e.Add(&rogueNode{pool: e.pool})
	require.NoError(t, err)
	require.NoError(t, e.Connect(id, 0, e.Out(), 0))

	out := signal.Alloc(1, 8)
	assert.Panics(t, func() { e.ProcessBlock(nil, out) })
}

// A removed node frees its plan resources on the next commit.
func TestPoolBalancedAfterRemove(t *testing.T) {
	e, err := New(Config{SampleRate: 44100, BlockSize: 16, NumChannels: 1})
	require.NoError(t, err)

	src, err := e.Add(mock.NewSource(44100, 0.5, param.None, 0))
	require.NoError(t, err)
	require.NoError(t, e.Connect(src, 0, e.Out(), 0))

	out := signal.Alloc(1, 16)
	e.ProcessBlock(nil, out)
	require.NoError(t, e.Remove(src))
	e.ProcessBlock(nil, out)
	assert.Equal(t, e.pool.Capacity(), e.pool.Free())
}
