/*
Package pool provides a fixed-size pool of sample buffers.

All buffers are allocated when the pool is created. Acquire and Release
operate on a pre-sized index stack and never allocate or block, which
makes them safe to call from the audio goroutine.
*/
package pool

import (
	"errors"

	"pipelined.dev/patch/signal"
)

// ErrExhausted is returned when no free buffers remain. The pool is sized
// from the worst case of the committed topology, so in a correctly
// configured engine this is a programming error, not a runtime condition.
var ErrExhausted = errors.New("pool exhausted")

// ErrForeignBuffer is returned when a released buffer does not belong to
// the pool or is not currently lent.
var ErrForeignBuffer = errors.New("buffer does not belong to pool")

// Pool owns a fixed set of equally sized buffers and lends them out.
// It is not safe for concurrent use: a pool belongs to a single goroutine.
type Pool struct {
	buffers []*signal.Buffer
	free    []int // index stack of free buffers
	lent    []bool
}

// New allocates a pool of capacity buffers, each with numChannels
// channels of size samples.
func New(capacity, numChannels, size int) *Pool {
	p := &Pool{
		buffers: make([]*signal.Buffer, capacity),
		free:    make([]int, capacity),
		lent:    make([]bool, capacity),
	}
	for i := range p.buffers {
		b := signal.Alloc(numChannels, size)
		b.Tag = i
		p.buffers[i] = b
		// stack is filled in reverse so buffer 0 is lent first
		p.free[i] = capacity - 1 - i
	}
	return p
}

// Capacity returns the total number of buffers owned by the pool.
func (p *Pool) Capacity() int {
	return len(p.buffers)
}

// Free returns the number of buffers currently available.
func (p *Pool) Free() int {
	return len(p.free)
}

// Acquire lends a free buffer. The buffer content is undefined, callers
// overwrite or Silence it.
func (p *Pool) Acquire() (*signal.Buffer, error) {
	if len(p.free) == 0 {
		return nil, ErrExhausted
	}
	i := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.lent[i] = true
	return p.buffers[i], nil
}

// Release returns a lent buffer to the free set.
func (p *Pool) Release(b *signal.Buffer) error {
	i := b.Tag
	if i < 0 || i >= len(p.buffers) || p.buffers[i] != b || !p.lent[i] {
		return ErrForeignBuffer
	}
	p.lent[i] = false
	p.free = append(p.free, i)
	return nil
}
