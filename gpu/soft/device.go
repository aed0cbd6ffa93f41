// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/platform"
)

// Option configures a Device.
type Option func(*options)

type options struct {
	label   string
	format  gputypes.TextureFormat
	quality map[int]uint32
	latency time.Duration
}

func defaultOptions() options {
	return options{
		label:   "soft",
		format:  gputypes.TextureFormatBGRA8Unorm,
		quality: map[int]uint32{1: 1, 2: 1, 4: 1, 8: 1},
	}
}

// WithLabel names the device in logs and adapter info.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

// WithSurfaceFormat sets the preferred surface format reported to hosts.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) { o.format = f }
}

// WithQualityLevels replaces the MSAA quality table. Sample counts missing
// from the table report zero quality levels.
func WithQualityLevels(levels map[int]uint32) Option {
	return func(o *options) {
		o.quality = make(map[int]uint32, len(levels))
		for k, v := range levels {
			o.quality[k] = v
		}
	}
}

// WithLatency delays every queued operation, emulating a busy GPU.
func WithLatency(d time.Duration) Option {
	return func(o *options) { o.latency = d }
}

// Device is a software GPU device.
type Device struct {
	opts  options
	queue *Queue
	host  *hostDevice

	mu      sync.Mutex
	removed error

	allocators  atomic.Int64
	lists       atomic.Int64
	validations atomic.Int64
}

// New creates a device and starts its queue worker.
func New(opts ...Option) *Device {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{opts: o}
	d.host = &hostDevice{d: d}
	d.queue = newQueue(d)
	return d
}

// Ensure Device implements gpu.Device.
var _ gpu.Device = (*Device)(nil)

// Device returns the gpucontext view of the device. Its identity is stable.
func (d *Device) Device() gpucontext.Device { return d.host }

// Queue returns the gpucontext view of the command queue.
func (d *Device) Queue() gpucontext.Queue { return d.queue }

// Adapter returns adapter information.
func (d *Device) Adapter() gpucontext.Adapter { return adapter{name: d.opts.label} }

// SurfaceFormat returns the preferred surface format.
func (d *Device) SurfaceFormat() gputypes.TextureFormat { return d.opts.format }

// CommandQueue returns the device's only queue.
func (d *Device) CommandQueue() gpu.CommandQueue { return d.queue }

// Label returns the device label.
func (d *Device) Label() string { return d.opts.label }

// Removed returns the removal reason, if any.
func (d *Device) Removed() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.removed
}

// Remove simulates device loss. Subsequent submissions fail with an error
// wrapping gpu.ErrDeviceRemoved; already queued work is discarded, but
// fences still complete so that waiters are released.
func (d *Device) Remove(reason string) {
	d.mu.Lock()
	if d.removed == nil {
		d.removed = fmt.Errorf("%w: %s", gpu.ErrDeviceRemoved, reason)
	}
	d.mu.Unlock()
}

// Suspend stops the queue worker before its next operation and returns a
// function resuming it.
func (d *Device) Suspend() (resume func()) {
	return d.queue.suspend()
}

// Close drains the queue and stops its worker.
func (d *Device) Close() {
	d.queue.close()
}

// ValidationErrors counts misuse detected while executing commands, such as
// barriers whose before-state does not match the texture state.
func (d *Device) ValidationErrors() int64 { return d.validations.Load() }

// AllocatorsCreated returns the number of command allocators created.
func (d *Device) AllocatorsCreated() int64 { return d.allocators.Load() }

// CommandListsCreated returns the number of command lists created.
func (d *Device) CommandListsCreated() int64 { return d.lists.Load() }

// CreateCommandAllocator creates an allocator.
func (d *Device) CreateCommandAllocator() (gpu.CommandAllocator, error) {
	if err := d.Removed(); err != nil {
		return nil, err
	}
	d.allocators.Add(1)
	return &Allocator{dev: d}, nil
}

// CreateCommandList creates a command list open for recording against alloc.
func (d *Device) CreateCommandList(alloc gpu.CommandAllocator) (gpu.CommandList, error) {
	if err := d.Removed(); err != nil {
		return nil, err
	}
	a, ok := alloc.(*Allocator)
	if !ok || a.dev != d {
		return nil, fmt.Errorf("%w: allocator from another device", gpu.ErrInvalidCall)
	}
	d.lists.Add(1)
	return &CommandList{dev: d, alloc: a}, nil
}

// CreateTexture creates a texture. Multisampled textures are stored at
// single-sample resolution; resolving copies.
func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := d.Removed(); err != nil {
		return nil, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("%w: texture %dx%d", gpu.ErrInvalidCall, desc.Width, desc.Height)
	}
	if desc.SampleCount <= 0 {
		desc.SampleCount = 1
	}
	if desc.SampleCount > 1 && d.MultisampleQualityLevels(desc.Format, desc.SampleCount) == 0 {
		return nil, fmt.Errorf("%w: %d samples unsupported", gpu.ErrInvalidCall, desc.SampleCount)
	}
	return newTexture(d, desc, gpu.StateCommon), nil
}

// MultisampleQualityLevels reports the quality levels configured for samples.
func (d *Device) MultisampleQualityLevels(_ gputypes.TextureFormat, samples int) uint32 {
	return d.opts.quality[samples]
}

// CreateSwapChain creates a swap chain presenting to surface.
func (d *Device) CreateSwapChain(surface platform.Surface, desc gpu.SwapChainDesc) (gpu.SwapChain, error) {
	if err := d.Removed(); err != nil {
		return nil, err
	}
	if surface == nil {
		return nil, fmt.Errorf("%w: nil surface", gpu.ErrInvalidCall)
	}
	if desc.BufferCount < 2 {
		return nil, fmt.Errorf("%w: %d buffers", gpu.ErrInvalidCall, desc.BufferCount)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		w, h, err := surface.Size()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", gpu.ErrSurfaceLost, err)
		}
		desc.Width, desc.Height = max(w, 1), max(h, 1)
	}
	sc := &SwapChain{dev: d, surface: surface, desc: desc}
	sc.allocBuffers()
	return sc, nil
}

// hostDevice implements gpucontext.Device.
type hostDevice struct {
	d *Device
}

// Poll processes completed work. With wait it blocks until the queue is idle.
func (h *hostDevice) Poll(wait bool) {
	if !wait {
		return
	}
	q := h.d.queue
	_ = q.Wait(context.Background(), q.lastSignaled())
}

// Destroy stops the device.
func (h *hostDevice) Destroy() { h.d.Close() }

// adapter implements gpucontext.Adapter.
type adapter struct {
	name string
}

func (a adapter) String() string { return a.name }

// Texture is a software texture backed by an RGBA image.
type Texture struct {
	dev  *Device
	desc gpu.TextureDesc

	// img and state are touched by the queue worker while commands using
	// the texture are in flight.
	img   *image.RGBA
	state gpu.ResourceState

	refs     atomic.Int32
	released atomic.Bool
}

func newTexture(d *Device, desc gpu.TextureDesc, state gpu.ResourceState) *Texture {
	return &Texture{
		dev:   d,
		desc:  desc,
		img:   image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height)),
		state: state,
	}
}

// Ensure Texture implements gpu.Texture.
var _ gpu.Texture = (*Texture)(nil)

func (t *Texture) Width() int                     { return t.desc.Width }
func (t *Texture) Height() int                    { return t.desc.Height }
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }
func (t *Texture) SampleCount() int               { return t.desc.SampleCount }

// Image returns the backing image. Reading it is only meaningful once the
// queue is idle.
func (t *Texture) Image() *image.RGBA { return t.img }

// Release drops a reference. Standalone textures have no references and are
// simply marked released.
func (t *Texture) Release() {
	for {
		n := t.refs.Load()
		if n <= 0 {
			t.released.Store(true)
			return
		}
		if t.refs.CompareAndSwap(n, n-1) {
			return
		}
	}
}
