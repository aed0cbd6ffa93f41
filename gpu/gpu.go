// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/platform"
)

// Device errors. Present and resize map them onto sink status codes.
var (
	// ErrDeviceRemoved is returned once the device is lost. It is fatal for
	// every object created from that device.
	ErrDeviceRemoved = errors.New("gpu: device removed")

	// ErrOutOfMemory is returned when a resource cannot be allocated.
	ErrOutOfMemory = errors.New("gpu: out of memory")

	// ErrSurfaceLost is returned by swap chain operations after the window
	// backing the surface has been destroyed.
	ErrSurfaceLost = errors.New("gpu: surface lost")

	// ErrInvalidCall is returned for calls the driver rejects in the current
	// state, typically while the window is being torn down.
	ErrInvalidCall = errors.New("gpu: invalid call")

	// ErrOccluded is returned by Present when the surface is not visible.
	// The frame is dropped and presentation may continue.
	ErrOccluded = errors.New("gpu: surface occluded")

	// ErrAllocatorInUse is returned by CommandAllocator.Reset while the GPU
	// still executes commands recorded with it.
	ErrAllocatorInUse = errors.New("gpu: command allocator in use")
)

// ResourceState is the GPU-visibility state of a texture.
type ResourceState uint8

const (
	StateCommon ResourceState = iota
	StatePresent
	StateRenderTarget
	StateResolveSource
	StateResolveDest
	StateShaderResource
)

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label       string
	Width       int
	Height      int
	Format      gputypes.TextureFormat
	SampleCount int
}

// Texture is a GPU image. Back buffers obtained from a SwapChain must be
// released before the swap chain can be resized.
type Texture interface {
	Width() int
	Height() int
	Format() gputypes.TextureFormat
	SampleCount() int
	Release()
}

// CommandAllocator backs the memory of recorded commands. It may only be
// reset once the GPU has finished executing everything recorded with it.
type CommandAllocator interface {
	Reset() error
	Release()
}

// DrawPass is executed on the GPU timeline against the memory of a target
// texture. Software frame converters and overlay compositors record their
// work as draw passes.
type DrawPass func(dst draw.Image)

// CommandList records GPU work. A list is reset against an allocator,
// recorded, closed and then executed on the queue.
type CommandList interface {
	Reset(alloc CommandAllocator) error
	ClearRenderTarget(t Texture, c color.Color, rects ...image.Rectangle)
	Barrier(t Texture, before, after ResourceState)
	Resolve(dst, src Texture)
	Draw(t Texture, pass DrawPass)
	Close() error
	Release()
}

// CommandQueue executes command lists in submission order and exposes a
// fence whose values complete in order.
type CommandQueue interface {
	// Execute submits closed command lists.
	Execute(lists ...CommandList) error

	// Signal enqueues a fence signal after all previously submitted work
	// and returns its value.
	Signal() (uint64, error)

	// Completed returns the highest completed fence value.
	Completed() uint64

	// Wait blocks until value has completed or ctx is done.
	Wait(ctx context.Context, value uint64) error

	// OnComplete runs fn once value has completed. If it already has, fn
	// runs before OnComplete returns.
	OnComplete(value uint64, fn func())
}

// SwapChainDesc describes a swap chain.
type SwapChainDesc struct {
	Width       int
	Height      int
	Format      gputypes.TextureFormat
	BufferCount int
}

// PresentParams controls a single present. Full requests a full-surface
// update; otherwise only Dirty rectangles are guaranteed to be refreshed.
type PresentParams struct {
	Full  bool
	Dirty []image.Rectangle
}

// SwapChain is a ring of presentable back buffers bound to a surface.
type SwapChain interface {
	Desc() SwapChainDesc

	// Buffer returns back buffer i. Each returned texture holds a reference
	// that must be released.
	Buffer(i int) (Texture, error)

	// CurrentBackBufferIndex returns the buffer the next frame renders into.
	CurrentBackBufferIndex() int

	// ResizeBuffers resets the buffers to a new size. A zero count keeps the
	// current count. All buffer references must have been released.
	ResizeBuffers(count, width, height int, format gputypes.TextureFormat) error

	// Present queues the current back buffer for display after all work
	// submitted so far, and advances the back buffer index.
	Present(p PresentParams) error

	// DisableFullscreenShortcut stops the driver from handling the platform
	// default fullscreen gesture on the bound window.
	DisableFullscreenShortcut() error

	Release()
}

// Device creates GPU objects and owns the single command queue used for
// presentation.
type Device interface {
	gpucontext.DeviceProvider

	CommandQueue() CommandQueue
	CreateCommandAllocator() (CommandAllocator, error)
	CreateCommandList(alloc CommandAllocator) (CommandList, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateSwapChain(surface platform.Surface, desc SwapChainDesc) (SwapChain, error)

	// MultisampleQualityLevels returns the number of quality levels for a
	// render target of the given format and sample count; zero means the
	// combination is unsupported.
	MultisampleQualityLevels(format gputypes.TextureFormat, samples int) uint32

	// Removed returns the removal reason, or nil while the device is alive.
	Removed() error
}

// SameDevice reports whether a and b wrap the same underlying device.
func SameDevice(a, b Device) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Device() == b.Device()
}
