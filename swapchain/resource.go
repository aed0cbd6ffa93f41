// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/internal/logging"
	"github.com/gogpu/vsink/internal/pool"
	"github.com/gogpu/vsink/internal/ring"
	"github.com/gogpu/vsink/platform"
)

// Resource is one generation of GPU objects for a swap chain: the device
// swap chain, its back buffers, the optional MSAA target, pooled command
// allocators, reusable command lists and the history of in-flight fences.
//
// Resource is not safe for concurrent use; SwapChain serializes access.
type Resource struct {
	device      gpu.Device
	queue       gpu.CommandQueue
	bufferCount int

	chain     gpu.SwapChain
	buffers   []gpu.Texture
	msaa      gpu.Texture
	msaaState gpu.ResourceState

	allocators *pool.AllocatorPool
	list       gpu.CommandList
	finish     gpu.CommandList

	fences *ring.Ring[uint64]
}

// NewResource creates an empty resource for dev with a fixed number of back
// buffers. The fence history holds bufferCount+2 values.
func NewResource(dev gpu.Device, bufferCount int) *Resource {
	return &Resource{
		device:      dev,
		queue:       dev.CommandQueue(),
		bufferCount: bufferCount,
		allocators:  pool.NewAllocatorPool(dev),
		fences:      ring.New[uint64](bufferCount + 2),
	}
}

// Device returns the device the resource was created on.
func (r *Resource) Device() gpu.Device { return r.device }

// BufferCount returns the fixed back buffer count.
func (r *Resource) BufferCount() int { return r.bufferCount }

// Chain returns the device swap chain, or nil before Init.
func (r *Resource) Chain() gpu.SwapChain { return r.chain }

// Outstanding returns the number of tracked fences not yet waited for.
func (r *Resource) Outstanding() int { return r.fences.Len() }

// Init creates the device swap chain for surface.
func (r *Resource) Init(surface platform.Surface, width, height int, format gputypes.TextureFormat) error {
	if r.chain != nil {
		return nil
	}
	chain, err := r.device.CreateSwapChain(surface, gpu.SwapChainDesc{
		Width:       width,
		Height:      height,
		Format:      format,
		BufferCount: r.bufferCount,
	})
	if err != nil {
		return fmt.Errorf("create swap chain: %w", err)
	}
	r.chain = chain
	return nil
}

// acquire obtains every back buffer of the current chain generation.
func (r *Resource) acquire() error {
	r.buffers = r.buffers[:0]
	for i := range r.bufferCount {
		b, err := r.chain.Buffer(i)
		if err != nil {
			r.ClearResources()
			return fmt.Errorf("get back buffer %d: %w", i, err)
		}
		r.buffers = append(r.buffers, b)
	}
	return nil
}

// ensureMSAA creates the multisampled target with the highest sample count
// not above samples that the device supports. It returns the count in use;
// 1 means no MSAA target.
func (r *Resource) ensureMSAA(samples, width, height int, format gputypes.TextureFormat) (int, error) {
	for samples > 1 && r.device.MultisampleQualityLevels(format, samples) == 0 {
		logging.Logger().Debug("swapchain: msaa level unsupported, degrading",
			"samples", samples, "format", format)
		samples /= 2
	}
	if samples <= 1 {
		return 1, nil
	}
	tex, err := r.device.CreateTexture(gpu.TextureDesc{
		Label:       "msaa-target",
		Width:       width,
		Height:      height,
		Format:      format,
		SampleCount: samples,
	})
	if err != nil {
		return 1, fmt.Errorf("create msaa target: %w", err)
	}
	r.msaa = tex
	r.msaaState = gpu.StateCommon
	return samples, nil
}

// ClearResources releases the back buffer references and the MSAA target.
// Outstanding GPU work must have been drained.
func (r *Resource) ClearResources() {
	for _, b := range r.buffers {
		b.Release()
	}
	clear(r.buffers)
	r.buffers = r.buffers[:0]
	if r.msaa != nil {
		r.msaa.Release()
		r.msaa = nil
	}
}

// WaitIdle blocks until all work submitted so far has completed and
// forgets the fence history.
func (r *Resource) WaitIdle(ctx context.Context) error {
	v, err := r.queue.Signal()
	if err != nil {
		r.fences.Clear()
		return err
	}
	err = r.queue.Wait(ctx, v)
	r.fences.Clear()
	return err
}

// TrackFence records a presented fence value. Once more than
// bufferCount+1 values are outstanding it waits for the oldest.
func (r *Resource) TrackFence(ctx context.Context, v uint64) error {
	completed := r.queue.Completed()
	for {
		front, ok := r.fences.Front()
		if !ok || front > completed {
			break
		}
		r.fences.Pop()
	}
	if !r.fences.Push(v) {
		oldest, _ := r.fences.Pop()
		if err := r.queue.Wait(ctx, oldest); err != nil {
			return err
		}
		r.fences.Push(v)
	}
	for r.fences.Len() > r.bufferCount+1 {
		oldest, _ := r.fences.Pop()
		logging.Logger().Debug("swapchain: waiting for in-flight frame", "fence", oldest)
		if err := r.queue.Wait(ctx, oldest); err != nil {
			return err
		}
	}
	return nil
}

// commandList returns the reusable command list reset against alloc.
func (r *Resource) commandList(alloc gpu.CommandAllocator) (gpu.CommandList, error) {
	if r.list == nil {
		l, err := r.device.CreateCommandList(alloc)
		if err != nil {
			return nil, err
		}
		r.list = l
		return l, nil
	}
	if err := r.list.Reset(alloc); err != nil {
		return nil, err
	}
	return r.list, nil
}

// finishList returns the second command list used to record the final
// back buffer transition after overlay listeners ran.
func (r *Resource) finishList(alloc gpu.CommandAllocator) (gpu.CommandList, error) {
	if r.finish == nil {
		l, err := r.device.CreateCommandList(alloc)
		if err != nil {
			return nil, err
		}
		r.finish = l
		return l, nil
	}
	if err := r.finish.Reset(alloc); err != nil {
		return nil, err
	}
	return r.finish, nil
}

// Close drains the queue and releases every object of the generation.
func (r *Resource) Close() {
	if err := r.WaitIdle(context.Background()); err != nil {
		logging.Logger().Warn("swapchain: drain before release failed", "err", err)
	}
	r.ClearResources()
	if r.list != nil {
		r.list.Release()
		r.list = nil
	}
	if r.finish != nil {
		r.finish.Release()
		r.finish = nil
	}
	r.allocators.Close()
	if r.chain != nil {
		r.chain.Release()
		r.chain = nil
	}
}
