// Package queue implements the lock-free transport primitives between
// venue adapters and the engine's consumer goroutine: a bounded SPSC
// queue for events, and a ring buffer for fixed-size telemetry snapshots.
package queue

import (
	"sync/atomic"
)

// SPSC is a bounded single-producer single-consumer queue. The backing
// array is a power of two in size; one slot is sacrificed so that
// head == tail unambiguously means empty. try_push/try_pop never block
// and never allocate after construction.
type SPSC[T any] struct {
	mask uint64
	buf  []T
	// head is advanced by the consumer, tail by the producer. Both are
	// published with atomic release stores and observed with atomic
	// acquire loads so a consumer never reads a slot the producer has
	// not finished writing.
	head uint64
	_    [56]byte // pad to avoid false sharing between head and tail
	tail uint64
	_    [56]byte
}

// NewSPSC creates a queue whose backing array is the next power of two
// greater than or equal to capacity+1; usable capacity is that size minus
// the one reserved slot, so it is never less than capacity.
func NewSPSC[T any](capacity int) *SPSC[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := nextPowerOfTwo(capacity + 1)
	return &SPSC[T]{
		mask: uint64(size - 1),
		buf:  make([]T, size),
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// TryPush attempts to enqueue x. It returns false ("full") without
// blocking if the queue has no free slot.
func (q *SPSC[T]) TryPush(x T) bool {
	tail := atomic.LoadUint64(&q.tail)
	head := atomic.LoadUint64(&q.head)
	nextTail := (tail + 1) & q.mask
	if nextTail == head&q.mask {
		return false
	}
	q.buf[tail&q.mask] = x
	atomic.StoreUint64(&q.tail, tail+1)
	return true
}

// TryPop attempts to dequeue the oldest element. It returns the zero
// value and false ("empty") without blocking if the queue has nothing
// to return.
func (q *SPSC[T]) TryPop() (T, bool) {
	var zero T
	head := atomic.LoadUint64(&q.head)
	tail := atomic.LoadUint64(&q.tail)
	if head == tail {
		return zero, false
	}
	v := q.buf[head&q.mask]
	q.buf[head&q.mask] = zero
	atomic.StoreUint64(&q.head, head+1)
	return v, true
}

// Len returns a best-effort length snapshot; it may be stale the instant
// it is read when the opposite end is concurrently active.
func (q *SPSC[T]) Len() int {
	tail := atomic.LoadUint64(&q.tail)
	head := atomic.LoadUint64(&q.head)
	return int((tail - head) & q.mask)
}

// Cap returns the usable capacity (one less than the backing array,
// since one slot distinguishes full from empty).
func (q *SPSC[T]) Cap() int {
	return int(q.mask)
}
