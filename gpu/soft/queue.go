// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/vsink/gpu"
)

// op is one unit of queued work. A non-zero fence completes after run.
type op struct {
	run   func()
	fence uint64
}

type waiter struct {
	value uint64
	ch    chan struct{}
}

type notify struct {
	value uint64
	fn    func()
}

// Queue is the software command queue. A single worker goroutine executes
// operations in submission order.
type Queue struct {
	dev *Device

	mu        sync.Mutex
	cond      *sync.Cond
	ops       []op
	signaled  uint64
	waiters   []waiter
	notifies  []notify
	suspended int
	closed    bool

	completed atomic.Uint64
	done      chan struct{}
}

func newQueue(d *Device) *Queue {
	q := &Queue{dev: d, done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.worker()
	return q
}

// Ensure Queue implements gpu.CommandQueue.
var _ gpu.CommandQueue = (*Queue)(nil)

func (q *Queue) worker() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for (len(q.ops) == 0 || q.suspended > 0) && !(q.closed && len(q.ops) == 0) {
			q.cond.Wait()
		}
		if len(q.ops) == 0 {
			q.mu.Unlock()
			return
		}
		next := q.ops[0]
		q.ops[0] = op{}
		q.ops = q.ops[1:]
		q.mu.Unlock()

		if d := q.dev.opts.latency; d > 0 {
			time.Sleep(d)
		}
		if next.run != nil && q.dev.Removed() == nil {
			next.run()
		}
		if next.fence != 0 {
			q.complete(next.fence)
		}
	}
}

func (q *Queue) complete(value uint64) {
	q.completed.Store(value)

	q.mu.Lock()
	var ready []func()
	keptN := q.notifies[:0]
	for _, n := range q.notifies {
		if n.value <= value {
			ready = append(ready, n.fn)
		} else {
			keptN = append(keptN, n)
		}
	}
	q.notifies = keptN

	keptW := q.waiters[:0]
	for _, w := range q.waiters {
		if w.value <= value {
			close(w.ch)
		} else {
			keptW = append(keptW, w)
		}
	}
	q.waiters = keptW
	q.mu.Unlock()

	for _, fn := range ready {
		fn()
	}
}

func (q *Queue) enqueue(o op) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("%w: queue closed", gpu.ErrInvalidCall)
	}
	q.ops = append(q.ops, o)
	q.cond.Signal()
	return nil
}

// Execute submits closed command lists.
func (q *Queue) Execute(lists ...gpu.CommandList) error {
	if err := q.dev.Removed(); err != nil {
		return err
	}
	for _, l := range lists {
		cl, ok := l.(*CommandList)
		if !ok || cl.dev != q.dev {
			return fmt.Errorf("%w: command list from another device", gpu.ErrInvalidCall)
		}
		if !cl.closed {
			return fmt.Errorf("%w: command list not closed", gpu.ErrInvalidCall)
		}
		cmds := make([]func(), len(cl.cmds))
		copy(cmds, cl.cmds)
		alloc := cl.alloc
		alloc.busy.Add(1)
		err := q.enqueue(op{run: func() {
			defer alloc.busy.Add(-1)
			for _, c := range cmds {
				c()
			}
		}})
		if err != nil {
			alloc.busy.Add(-1)
			return err
		}
	}
	return nil
}

// Signal enqueues a fence signal and returns its value.
func (q *Queue) Signal() (uint64, error) {
	if err := q.dev.Removed(); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, fmt.Errorf("%w: queue closed", gpu.ErrInvalidCall)
	}
	q.signaled++
	v := q.signaled
	q.ops = append(q.ops, op{fence: v})
	q.cond.Signal()
	return v, nil
}

// Completed returns the highest completed fence value.
func (q *Queue) Completed() uint64 {
	return q.completed.Load()
}

func (q *Queue) lastSignaled() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.signaled
}

// Wait blocks until value completes, ctx ends, or the queue stops.
func (q *Queue) Wait(ctx context.Context, value uint64) error {
	if q.Completed() >= value {
		return nil
	}

	q.mu.Lock()
	if q.completed.Load() >= value {
		q.mu.Unlock()
		return nil
	}
	if value > q.signaled {
		q.mu.Unlock()
		return fmt.Errorf("%w: fence %d never signaled", gpu.ErrInvalidCall, value)
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, waiter{value: value, ch: ch})
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		if q.Completed() >= value {
			return nil
		}
		return fmt.Errorf("%w: queue stopped", gpu.ErrInvalidCall)
	}
}

// OnComplete runs fn on the worker once value completes.
func (q *Queue) OnComplete(value uint64, fn func()) {
	q.mu.Lock()
	if q.completed.Load() >= value {
		q.mu.Unlock()
		fn()
		return
	}
	q.notifies = append(q.notifies, notify{value: value, fn: fn})
	q.mu.Unlock()
}

// Pending returns the number of queued operations not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

func (q *Queue) suspend() func() {
	q.mu.Lock()
	q.suspended++
	q.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			q.suspended--
			q.cond.Broadcast()
			q.mu.Unlock()
		})
	}
}

func (q *Queue) close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.suspended = 0
		q.cond.Broadcast()
	}
	q.mu.Unlock()
	<-q.done
}
