package patch

import (
	"fmt"

	"pipelined.dev/patch/param"
	"pipelined.dev/patch/signal"
)

// Node is a single processing unit of the patch. Implementations declare
// a fixed number of input and output ports and process one block at a
// time.
//
// Process is invoked on the audio goroutine once per block with the
// buffers lent by the engine: inputs are read-only and outputs must be
// fully written. Implementations must not allocate, block or retain the
// lent buffers past the call. The clock argument is the engine sample
// clock of the first sample in the block.
type Node interface {
	Inputs() int
	Outputs() int
	Params() *param.Set
	Process(inputs, outputs []*signal.Buffer, clock int64)
}

// Latent is a Node whose output is delayed by one or more whole blocks.
// Edges leaving a Latent node are allowed to close a cycle, because its
// consumers read the block it produced previously, not the current one.
//
// A Latent node owns its output buffers: Held returns the buffer of the
// given output port, valid across blocks. The engine passes the held
// buffers back as the outputs argument of Process.
type Latent interface {
	Node
	BlockLatency() int
	Held(port int) *signal.Buffer
}

// NodeID is a stable identity of a node within an engine. IDs are
// assigned once and never reused, so a stale id can be detected instead
// of silently addressing another node.
type NodeID int32

// Config is the immutable engine configuration. SampleRate, BlockSize
// and NumChannels are fixed for the engine lifetime: changing them means
// building a new engine while audio is stopped.
type Config struct {
	SampleRate  int
	BlockSize   int
	NumChannels int

	// MaxNodes bounds the node arena. Default 256.
	MaxNodes int
	// PoolSize is the number of buffers owned by the pool. Topologies
	// that need more concurrent buffers are rejected at commit.
	// Default 64.
	PoolSize int
	// QueueSize bounds the control command queue. Default 128.
	QueueSize int
	// EventQueueSize bounds the diagnostics queue. Default 128.
	EventQueueSize int
}

const (
	defaultMaxNodes       = 256
	defaultPoolSize       = 64
	defaultQueueSize      = 128
	defaultEventQueueSize = 128
)

func (c *Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrConfiguration, c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block size %d", ErrConfiguration, c.BlockSize)
	}
	if c.NumChannels <= 0 {
		return fmt.Errorf("%w: channels %d", ErrConfiguration, c.NumChannels)
	}
	if c.MaxNodes == 0 {
		c.MaxNodes = defaultMaxNodes
	}
	if c.PoolSize == 0 {
		c.PoolSize = defaultPoolSize
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.EventQueueSize == 0 {
		c.EventQueueSize = defaultEventQueueSize
	}
	return nil
}

// EventKind tags diagnostic events.
type EventKind uint8

const (
	// EventFault reports a node that produced non-finite samples. Its
	// output was silenced for that block.
	EventFault EventKind = iota + 1
	// EventBadCommand reports a command that referenced a missing node,
	// port or parameter and was dropped.
	EventBadCommand
	// EventRejectedCommit reports a topology batch that failed to
	// commit. The previous topology stays active.
	EventRejectedCommit
)

// Event is a diagnostic notification emitted by the audio goroutine.
// Delivery is best effort: when the diagnostics queue is full the event
// is dropped and counted.
type Event struct {
	Kind  EventKind
	Node  NodeID
	Clock int64
	Err   error
}

type opCode uint8

const (
	opAdd opCode = iota + 1
	opRemove
	opConnect
	opDisconnect
	opSetParam
	opSetParamNow
)

// command is a control message carried from the control goroutine to the
// audio goroutine. Commands are created and validated on the control
// side and applied exactly once at a block boundary.
type command struct {
	op       opCode
	node     NodeID
	peer     NodeID
	fromPort int
	toPort   int
	name     string
	value    float64
	impl     Node
}
