/*
Package ring provides a bounded lock-free single-producer single-consumer
queue. It backs the control channel (control goroutine to audio goroutine)
and the diagnostics channel (audio goroutine to control goroutine).

Each slot carries a sequence tag used for synchronization between the two
sides. Push and Pop never block and never allocate, so either end may sit
on the audio goroutine.
*/
package ring

import (
	"sync/atomic"
)

type slot[T any] struct {
	seq atomic.Uint64
	val T
}

// Queue is a bounded SPSC queue. Head is written only by the consumer,
// tail only by the producer. The cursors are padded apart so the two
// sides never share a cache line.
type Queue[T any] struct {
	_    [64]byte
	head uint64 // consumer cursor
	_    [64]byte
	tail uint64 // producer cursor
	_    [64]byte

	mask  uint64
	slots []slot[T]
}

// New returns an empty queue with the given number of slots, rounded up
// to the next power of two.
func New[T any](size int) *Queue[T] {
	n := 1
	for n < size {
		n <<= 1
	}
	q := &Queue[T]{
		mask:  uint64(n - 1),
		slots: make([]slot[T], n),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q
}

// Cap returns the number of slots.
func (q *Queue[T]) Cap() int {
	return len(q.slots)
}

// Push inserts a value. It returns false when the queue is full.
func (q *Queue[T]) Push(val T) bool {
	t := q.tail
	s := &q.slots[t&q.mask]
	if s.seq.Load() != t {
		return false // full
	}
	s.val = val
	s.seq.Store(t + 1)
	q.tail = t + 1
	return true
}

// Pop removes the oldest value. It returns false when the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	h := q.head
	s := &q.slots[h&q.mask]
	if s.seq.Load() != h+1 {
		var zero T
		return zero, false // empty
	}
	val := s.val
	var zero T
	s.val = zero // drop reference for GC
	s.seq.Store(h + q.mask + 1)
	q.head = h + 1
	return val, true
}
