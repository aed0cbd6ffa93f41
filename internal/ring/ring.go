// Package ring provides a fixed-capacity FIFO ring buffer.
//
// The swap chain uses it to bound the history of outstanding fence values:
// the history never grows, and the oldest entry is waited on before a new
// one would exceed the in-flight limit.
package ring

// Ring is a FIFO of at most Cap elements. The zero value has capacity zero.
//
// Ring is not safe for concurrent use.
type Ring[T any] struct {
	buf  []T
	head int
	n    int
}

// New creates a ring with room for capacity elements.
func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Len returns the number of queued elements.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Full reports whether Push would fail.
func (r *Ring[T]) Full() bool { return r.n == len(r.buf) }

// Push appends v at the back. It returns false when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	if r.Full() {
		return false
	}
	r.buf[(r.head+r.n)%len(r.buf)] = v
	r.n++
	return true
}

// Pop removes and returns the front element.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return v, true
}

// Front returns the front element without removing it.
func (r *Ring[T]) Front() (T, bool) {
	if r.n == 0 {
		var zero T
		return zero, false
	}
	return r.buf[r.head], true
}

// Back returns the most recently pushed element.
func (r *Ring[T]) Back() (T, bool) {
	if r.n == 0 {
		var zero T
		return zero, false
	}
	return r.buf[(r.head+r.n-1)%len(r.buf)], true
}

// Clear drops all elements.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.n = 0, 0
}
