package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/gogpu/vsink/gpu/soft"
)

func TestAcquireReuses(t *testing.T) {
	dev := soft.New()
	defer dev.Close()
	p := NewAllocatorPool(dev)

	first, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	alloc := first.Allocator()
	first.Release()
	first.Release()

	if p.Idle() != 1 || p.Leased() != 0 {
		t.Fatalf("after release: idle=%d leased=%d, want 1/0", p.Idle(), p.Leased())
	}

	second, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer second.Release()
	if second.Allocator() != alloc {
		t.Error("idle allocator was not reused")
	}
	if got := second.Allocator().(*soft.Allocator).Resets(); got != 1 {
		t.Errorf("reused allocator resets = %d, want 1", got)
	}
	if p.Created() != 1 {
		t.Errorf("Created() = %d, want 1", p.Created())
	}
}

func TestAcquireConcurrentLeases(t *testing.T) {
	dev := soft.New()
	defer dev.Close()
	p := NewAllocatorPool(dev)

	a, _ := p.Acquire()
	b, _ := p.Acquire()
	if a.Allocator() == b.Allocator() {
		t.Fatal("two leases share an allocator")
	}
	if p.Created() != 2 || p.Leased() != 2 {
		t.Errorf("created=%d leased=%d, want 2/2", p.Created(), p.Leased())
	}
	a.Release()
	b.Release()
}

func TestClose(t *testing.T) {
	dev := soft.New()
	defer dev.Close()
	p := NewAllocatorPool(dev)

	l, _ := p.Acquire()
	p.Close()
	if _, err := p.Acquire(); !errors.Is(err, ErrClosed) {
		t.Errorf("Acquire after Close = %v, want ErrClosed", err)
	}
	l.Release()
	if p.Idle() != 0 {
		t.Errorf("Idle() after Close = %d, want 0", p.Idle())
	}
}

func TestFenceDataOrder(t *testing.T) {
	d := NewFenceData()
	var got []int
	d.Push(func() { got = append(got, 1) })
	d.Push(nil)
	d.Push(func() { got = append(got, 2) })
	d.PushRelease(nil)

	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	d.Release()
	if len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Errorf("release order = %v, want [2 1]", got)
	}
}

func TestAttachReleasesOnCompletion(t *testing.T) {
	dev := soft.New()
	defer dev.Close()
	q := dev.CommandQueue()
	p := NewAllocatorPool(dev)

	resume := dev.Suspend()
	lease, _ := p.Acquire()
	v, err := q.Signal()
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}

	var released atomic.Bool
	d := NewFenceData()
	d.PushRelease(lease)
	d.Push(func() { released.Store(true) })
	Attach(q, v, d)

	if released.Load() || p.Leased() != 1 {
		t.Fatal("fence data released before the fence completed")
	}
	resume()
	if err := q.Wait(context.Background(), v); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	// The cleanup runs on the queue worker after the fence value is
	// published; a second fence orders the check after it.
	v2, _ := q.Signal()
	_ = q.Wait(context.Background(), v2)

	if !released.Load() {
		t.Error("cleanup did not run")
	}
	if p.Leased() != 0 || p.Idle() != 1 {
		t.Errorf("leased=%d idle=%d, want 0/1", p.Leased(), p.Idle())
	}
}
