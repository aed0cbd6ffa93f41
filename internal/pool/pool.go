// Package pool provides the GPU resource pools used by the swap chain:
// leased command allocators and fence-tracked cleanup data.
//
// Usage:
//
//	lease, err := allocators.Acquire()
//	// record with lease.Allocator() ...
//	fence, _ := queue.Signal()
//	data := pool.NewFenceData()
//	data.PushRelease(lease)
//	pool.Attach(queue, fence, data)
//
// The allocator returns to the pool only once the GPU reports the fence as
// completed.
package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/vsink/gpu"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("pool: closed")

// AllocatorPool recycles command allocators of one device.
//
// Thread safety: all methods are safe for concurrent use.
type AllocatorPool struct {
	device gpu.Device

	mu      sync.Mutex
	free    []gpu.CommandAllocator
	created int
	leased  int
	closed  bool
}

// NewAllocatorPool creates an empty pool for device.
func NewAllocatorPool(device gpu.Device) *AllocatorPool {
	return &AllocatorPool{device: device}
}

// Acquire returns a lease on an idle allocator, creating one if none is
// idle. Reused allocators are reset before they are handed out.
func (p *AllocatorPool) Acquire() (*Lease, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	var alloc gpu.CommandAllocator
	if n := len(p.free); n > 0 {
		alloc = p.free[n-1]
		p.free = p.free[:n-1]
	}
	p.leased++
	p.mu.Unlock()

	if alloc != nil {
		if err := alloc.Reset(); err != nil {
			alloc.Release()
			p.unlease()
			return nil, fmt.Errorf("pool: reset allocator: %w", err)
		}
	} else {
		var err error
		alloc, err = p.device.CreateCommandAllocator()
		if err != nil {
			p.unlease()
			return nil, fmt.Errorf("pool: create allocator: %w", err)
		}
		p.mu.Lock()
		p.created++
		p.mu.Unlock()
	}

	return &Lease{pool: p, alloc: alloc}, nil
}

func (p *AllocatorPool) unlease() {
	p.mu.Lock()
	p.leased--
	p.mu.Unlock()
}

func (p *AllocatorPool) put(alloc gpu.CommandAllocator) {
	p.mu.Lock()
	p.leased--
	if p.closed {
		p.mu.Unlock()
		alloc.Release()
		return
	}
	p.free = append(p.free, alloc)
	p.mu.Unlock()
}

// Created returns how many allocators the pool has created.
func (p *AllocatorPool) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// Idle returns how many allocators are waiting for reuse.
func (p *AllocatorPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Leased returns how many leases are outstanding.
func (p *AllocatorPool) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}

// Close releases idle allocators. Outstanding leases release their
// allocator instead of returning it.
func (p *AllocatorPool) Close() {
	p.mu.Lock()
	free := p.free
	p.free = nil
	p.closed = true
	p.mu.Unlock()

	for _, a := range free {
		a.Release()
	}
}

// Lease is exclusive use of one allocator until Release.
type Lease struct {
	pool  *AllocatorPool
	alloc gpu.CommandAllocator
	once  sync.Once
}

// Allocator returns the leased allocator.
func (l *Lease) Allocator() gpu.CommandAllocator {
	return l.alloc
}

// Release returns the allocator to its pool. Release is idempotent.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.put(l.alloc)
	})
}
