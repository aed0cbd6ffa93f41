// Package handshake implements a post-and-wait rendezvous between a caller
// that requests work on another goroutine and the goroutine that performs it.
//
// A Slot holds at most one outstanding request. The requester calls Begin,
// posts the work with the returned id, and blocks in Wait. The worker calls
// Complete with the same id. Completions carrying an id other than the
// current one are stale and rejected, so the worker can undo whatever it
// produced for a requester that already gave up.
//
// All methods must be called with the Slot's locker held. Wait releases it
// while blocked.
package handshake

import (
	"errors"
	"sync"
)

// Errors returned by Slot methods.
var (
	// ErrBusy is returned by Begin while another request is outstanding.
	ErrBusy = errors.New("handshake: request already in flight")

	// ErrStale is returned by Wait for an id that is no longer current.
	ErrStale = errors.New("handshake: stale request")
)

// ID identifies one request. Zero is never issued.
type ID uint64

// Slot is a single-request rendezvous guarded by an external locker.
type Slot[T any] struct {
	cond *sync.Cond

	next    ID
	current ID
	done    bool
	value   T
	err     error
}

// New returns a slot guarded by l.
func New[T any](l sync.Locker) *Slot[T] {
	return &Slot[T]{cond: sync.NewCond(l)}
}

// Begin starts a request and returns its id.
func (s *Slot[T]) Begin() (ID, error) {
	if s.current != 0 {
		return 0, ErrBusy
	}
	s.next++
	s.current = s.next
	s.done = false
	var zero T
	s.value, s.err = zero, nil
	return s.current, nil
}

// Pending reports whether a request is outstanding.
func (s *Slot[T]) Pending() bool {
	return s.current != 0
}

// Complete delivers the result of request id and wakes the requester. It
// returns false if id is not the current request; the result is then
// discarded and the caller owns whatever v refers to.
func (s *Slot[T]) Complete(id ID, v T, err error) bool {
	if id == 0 || id != s.current || s.done {
		return false
	}
	s.value, s.err = v, err
	s.done = true
	s.cond.Broadcast()
	return true
}

// Wait blocks until request id completes or abort returns a non-nil error.
// abort is evaluated with the locker held, before blocking and after every
// wake-up. Either way the request ends: a later Complete for id is stale.
func (s *Slot[T]) Wait(id ID, abort func() error) (T, error) {
	var zero T
	if id == 0 || id != s.current {
		return zero, ErrStale
	}
	for !s.done {
		if abort != nil {
			if err := abort(); err != nil {
				s.current = 0
				return zero, err
			}
		}
		s.cond.Wait()
	}
	v, err := s.value, s.err
	s.current = 0
	s.done = false
	s.value = zero
	s.err = nil
	return v, err
}

// Abandon cancels request id without waiting. It is a no-op for any other
// id.
func (s *Slot[T]) Abandon(id ID) {
	if id != 0 && id == s.current {
		s.current = 0
		s.done = false
		s.cond.Broadcast()
	}
}

// Wake rouses a blocked Wait so that it re-evaluates its abort condition.
func (s *Slot[T]) Wake() {
	s.cond.Broadcast()
}
