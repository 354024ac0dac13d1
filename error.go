package patch

import (
	"errors"
)

var (
	// ErrConfiguration is returned when the engine is built with an
	// invalid sample rate, block size or channel count.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrCyclicGraph is returned when a committed topology contains a
	// cycle that is not broken by a delaying node.
	ErrCyclicGraph = errors.New("cyclic graph")

	// ErrInsufficientCapacity is returned when the committed topology
	// needs more concurrent buffers than the pool owns.
	ErrInsufficientCapacity = errors.New("insufficient buffer capacity")

	// ErrInvalidNodeReference is returned when a command references a
	// node that was never added or is already removed.
	ErrInvalidNodeReference = errors.New("invalid node reference")

	// ErrInvalidPort is returned when a connection references a port
	// outside the node's declared range.
	ErrInvalidPort = errors.New("invalid port")

	// ErrPortConnected is returned when an input port already has an
	// incoming connection.
	ErrPortConnected = errors.New("input port already connected")

	// ErrNotConnected is returned when disconnecting ports that have no
	// connection between them.
	ErrNotConnected = errors.New("ports are not connected")

	// ErrQueueFull is returned when the control queue has no room for
	// another command. The caller decides the retry policy.
	ErrQueueFull = errors.New("control queue full")

	// ErrTooManyNodes is returned when the node arena is exhausted.
	ErrTooManyNodes = errors.New("too many nodes")
)
