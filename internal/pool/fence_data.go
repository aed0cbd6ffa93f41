package pool

import (
	"sync"

	"github.com/gogpu/vsink/gpu"
)

// Releaser is anything holding GPU memory until a fence completes.
type Releaser interface {
	Release()
}

// FenceData collects the objects a submission keeps alive. Release runs
// their cleanups in reverse order of registration and recycles the value.
type FenceData struct {
	mu    sync.Mutex
	items []func()
}

var fenceDataPool = sync.Pool{
	New: func() any { return &FenceData{items: make([]func(), 0, 4)} },
}

// NewFenceData returns an empty FenceData from a shared pool.
func NewFenceData() *FenceData {
	return fenceDataPool.Get().(*FenceData)
}

// Push registers fn to run on Release.
func (d *FenceData) Push(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.items = append(d.items, fn)
	d.mu.Unlock()
}

// PushRelease registers r.Release to run on Release.
func (d *FenceData) PushRelease(r Releaser) {
	if r == nil {
		return
	}
	d.Push(r.Release)
}

// Len returns the number of pending cleanups.
func (d *FenceData) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// Release runs the cleanups and returns d to the shared pool. d must not be
// used afterwards.
func (d *FenceData) Release() {
	d.mu.Lock()
	items := d.items
	d.items = nil
	d.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i]()
	}

	clear(items)
	d.mu.Lock()
	d.items = items[:0]
	d.mu.Unlock()
	fenceDataPool.Put(d)
}

// Attach releases d once queue has completed value.
func Attach(queue gpu.CommandQueue, value uint64, d *FenceData) {
	queue.OnComplete(value, d.Release)
}
