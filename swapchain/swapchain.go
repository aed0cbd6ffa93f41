// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package swapchain keeps a GPU swap chain in sync with a window surface and
// renders video frames into it.
//
// A SwapChain holds exactly one live Resource generation. Setup binds it to
// a device, input format and converter configuration; ResizeBuffer follows
// the surface size; SetBuffer renders a frame into the current back buffer;
// Present queues it for display. Presentation is paced by a bounded fence
// history so that at most BufferCount+1 frames are in flight.
//
// All methods are safe for concurrent use. Operations on one SwapChain
// serialize on its own lock.
package swapchain

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/internal/logging"
	"github.com/gogpu/vsink/internal/pool"
	"github.com/gogpu/vsink/overlay"
	"github.com/gogpu/vsink/platform"
	"github.com/gogpu/vsink/status"
	"github.com/gogpu/vsink/video"
)

// DefaultBufferCount is the number of back buffers of a swap chain.
const DefaultBufferCount = 3

// Option configures a SwapChain.
type Option func(*SwapChain)

// WithBufferCount sets the back buffer count. It is fixed once the device
// swap chain exists.
func WithBufferCount(n int) Option {
	return func(s *SwapChain) {
		if n >= 2 {
			s.bufferCount = n
		}
	}
}

// WithConverterFactory replaces the software frame converter.
func WithConverterFactory(f convert.Factory) Option {
	return func(s *SwapChain) {
		if f != nil {
			s.newConverter = f
		}
	}
}

// WithCompositorFactory replaces the software overlay compositor.
func WithCompositorFactory(f overlay.Factory) Option {
	return func(s *SwapChain) {
		if f != nil {
			s.newCompositor = f
		}
	}
}

// WithOverlayFunc sets the listener notified when the overlay mode is not
// OverlayNone.
func WithOverlayFunc(fn OverlayFunc) Option {
	return func(s *SwapChain) { s.overlayFn = fn }
}

// SwapChain presents video frames to one surface.
type SwapChain struct {
	surface       platform.Surface
	bufferCount   int
	newConverter  convert.Factory
	newCompositor overlay.Factory
	overlayFn     OverlayFunc

	mu     sync.Mutex
	res    *Resource
	format gputypes.TextureFormat
	conv   convert.Converter
	comp   overlay.Compositor
	in     video.Info
	cfg    convert.Config

	width, height int
	samples       int

	cached     *video.Frame
	crop       image.Rectangle
	output     image.Rectangle
	renderRect image.Rectangle

	forceAspect bool
	orient      video.Orientation
	msaa        MSAAMode
	overlayMode OverlayMode

	fullPresent bool
	needClear   bool
	rendered    bool
	fatal       error
	closed      bool
}

// New returns an unconfigured swap chain presenting to surface.
func New(surface platform.Surface, opts ...Option) *SwapChain {
	s := &SwapChain{
		surface:       surface,
		bufferCount:   DefaultBufferCount,
		newConverter:  convert.NewSoft,
		newCompositor: overlay.NewSoft,
		forceAspect:   true,
		orient:        video.DefaultOrientation(),
		cfg:           convert.DefaultConfig(),
		samples:       1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup binds the swap chain to dev and the input stream description. It
// reports whether a new device swap chain was created.
//
// A device change drains and replaces the current Resource. The converter
// is recreated only when the input format or cfg changed; otherwise its
// source rectangle is adjusted. The compositor is always rebuilt.
func (s *SwapChain) Setup(dev gpu.Device, in video.Info, format gputypes.TextureFormat, cfg convert.Config) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, fmt.Errorf("%w: swap chain closed", status.ErrClosed)
	}
	if dev == nil || !in.Valid() {
		return false, fmt.Errorf("%w: invalid setup", status.ErrFatal)
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	log := logging.Logger()

	if s.res != nil && !gpu.SameDevice(s.res.Device(), dev) {
		log.Info("swapchain: device changed, replacing resources")
		s.res.Close()
		s.res = nil
		s.conv = nil
	}
	s.fatal = nil

	created := false
	reformat := false
	if s.res == nil {
		w, h, err := s.surface.Size()
		if err != nil {
			return false, s.fail("setup", err)
		}
		res := NewResource(dev, s.bufferCount)
		if err := res.Init(s.surface, w, h, format); err != nil {
			res.Close()
			return false, s.fail("setup", err)
		}
		s.res = res
		s.format = format
		s.width, s.height = 0, 0
		created = true
		log.Info("swapchain: created", "buffers", s.bufferCount, "width", w, "height", h, "format", format)
	} else if format != s.format {
		s.format = format
		reformat = true
	}

	if s.conv == nil || s.in.Format != in.Format || s.cfg != cfg {
		conv, err := s.newConverter(dev, in, s.format, cfg)
		if err != nil {
			return created, fmt.Errorf("%w: create converter: %v", status.ErrFatal, err)
		}
		s.conv = conv
		s.cfg = cfg
		log.Debug("swapchain: converter created", "format", in.Format, "filter", cfg.Filter)
	}
	comp, err := s.newCompositor(dev, in, s.format)
	if err != nil {
		return created, fmt.Errorf("%w: create compositor: %v", status.ErrFatal, err)
	}
	s.comp = comp

	s.in = in
	s.crop = in.Rect()
	s.conv.SetSourceRect(s.crop)
	s.cached = nil
	s.rendered = false

	if created || reformat {
		return created, s.resizeLocked()
	}
	s.updateOutputLocked()
	return created, nil
}

// usable returns the error a frame operation reports for a closed or
// failed swap chain.
func (s *SwapChain) usable() error {
	if s.closed {
		return fmt.Errorf("%w: swap chain closed", status.ErrClosed)
	}
	return s.fatal
}

// ResizeBuffer resizes the back buffers to the surface size and re-presents
// the cached frame.
func (s *SwapChain) ResizeBuffer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if s.res == nil {
		return nil
	}
	return s.resizeLocked()
}

func (s *SwapChain) resizeLocked() error {
	if s.fatal != nil {
		return s.fatal
	}
	res := s.res
	w, h, err := s.surface.Size()
	if err != nil {
		return s.fail("resize", err)
	}
	w, h = max(w, 1), max(h, 1)

	if err := res.WaitIdle(context.Background()); err != nil {
		return s.fail("resize", err)
	}
	res.ClearResources()

	if err := res.Chain().ResizeBuffers(0, w, h, s.format); err != nil {
		return s.fail("resize", err)
	}
	if err := res.acquire(); err != nil {
		return s.fail("resize", err)
	}

	s.samples = 1
	if want := s.msaa.Samples(); want > 1 {
		got, err := res.ensureMSAA(want, w, h, s.format)
		if err != nil {
			logging.Logger().Warn("swapchain: msaa disabled", "err", err)
			got = 1
		}
		s.samples = got
	}

	s.width, s.height = w, h
	s.fullPresent = true
	s.needClear = true
	s.updateOutputLocked()
	logging.Logger().Debug("swapchain: buffers resized", "width", w, "height", h, "samples", s.samples)

	if s.cached == nil {
		return nil
	}
	if err := s.renderLocked(s.cached); err != nil {
		return err
	}
	return s.presentLocked()
}

// SetBuffer caches frame and renders it. A nil frame re-renders the cached
// one. Before Setup the frame is only cached.
func (s *SwapChain) SetBuffer(frame *video.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if frame != nil {
		s.cached = frame
		if s.conv != nil {
			crop := frame.CropRect(s.in.Rect())
			if crop != s.crop {
				s.crop = crop
				s.conv.SetSourceRect(crop)
				s.updateOutputLocked()
			}
		}
	}
	if s.cached == nil || s.res == nil {
		return nil
	}
	return s.renderLocked(s.cached)
}

// Present queues the rendered frame. Without a render since the last
// present it does nothing.
func (s *SwapChain) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	return s.presentLocked()
}

// Expose re-renders and presents the cached frame.
func (s *SwapChain) Expose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if s.cached == nil || s.res == nil {
		return nil
	}
	if err := s.renderLocked(s.cached); err != nil {
		return err
	}
	return s.presentLocked()
}

func (s *SwapChain) presentLocked() error {
	if !s.rendered || s.res == nil {
		return nil
	}
	res := s.res

	params := gpu.PresentParams{Full: true}
	if !s.fullPresent && !s.output.Empty() && s.overlayMode == OverlayNone {
		params = gpu.PresentParams{Dirty: []image.Rectangle{s.output}}
	}
	err := res.Chain().Present(params)
	s.rendered = false
	if errors.Is(err, gpu.ErrOccluded) {
		logging.Logger().Debug("swapchain: surface occluded")
		err = nil
	}
	if err != nil {
		return s.fail("present", err)
	}
	s.fullPresent = false

	fence, err := res.queue.Signal()
	if err != nil {
		return s.fail("present", err)
	}
	if err := res.TrackFence(context.Background(), fence); err != nil {
		return s.fail("present", err)
	}
	return nil
}

// renderLocked records and submits the commands drawing frame into the
// current back buffer.
func (s *SwapChain) renderLocked(frame *video.Frame) error {
	res := s.res
	if len(res.buffers) == 0 {
		return nil
	}
	if _, _, err := s.surface.Size(); err != nil {
		return s.fail("render", err)
	}

	lease, err := res.allocators.Acquire()
	if err != nil {
		return s.fail("render", err)
	}
	alloc := lease.Allocator()
	cl, err := res.commandList(alloc)
	if err != nil {
		lease.Release()
		return s.fail("render", err)
	}

	back := res.buffers[res.Chain().CurrentBackBufferIndex()]
	target := back
	if res.msaa != nil {
		target = res.msaa
		if res.msaaState != gpu.StateRenderTarget {
			cl.Barrier(res.msaa, res.msaaState, gpu.StateRenderTarget)
		}
	} else {
		cl.Barrier(back, gpu.StatePresent, gpu.StateRenderTarget)
	}

	if s.needClear || s.overlayMode != OverlayNone {
		cl.ClearRenderTarget(target, s.clearColor())
		s.fullPresent = true
	}
	s.conv.SetDestRect(s.output)
	s.conv.SetOrientation(s.orient)
	if err := s.conv.Convert(cl, frame, target); err != nil {
		_ = cl.Close()
		lease.Release()
		return fmt.Errorf("%w: convert: %v", status.ErrFatal, err)
	}
	s.comp.SetViewport(s.output, s.crop, s.orient)
	if err := s.comp.Draw(cl, frame, target); err != nil {
		_ = cl.Close()
		lease.Release()
		return fmt.Errorf("%w: overlay: %v", status.ErrFatal, err)
	}

	if res.msaa != nil {
		cl.Barrier(res.msaa, gpu.StateRenderTarget, gpu.StateResolveSource)
		cl.Barrier(back, gpu.StatePresent, gpu.StateResolveDest)
		cl.Resolve(back, res.msaa)
		cl.Barrier(back, gpu.StateResolveDest, gpu.StateRenderTarget)
		res.msaaState = gpu.StateResolveSource
	}

	lists := []gpu.CommandList{cl}
	if s.overlayMode != OverlayNone && s.overlayFn != nil {
		ctx := s.overlayContext(back)
		if s.overlayMode&OverlayDrawContext != 0 {
			ctx.DrawContext = cl
			s.overlayFn(ctx)
		} else {
			if err := s.submit(cl); err != nil {
				lease.Release()
				return err
			}
			s.overlayFn(ctx)
			if cl, err = res.finishList(alloc); err != nil {
				lease.Release()
				return s.fail("render", err)
			}
			lists = []gpu.CommandList{cl}
		}
	}
	cl.Barrier(back, gpu.StateRenderTarget, gpu.StatePresent)

	if err := s.submit(lists...); err != nil {
		lease.Release()
		return err
	}
	fence, err := res.queue.Signal()
	if err != nil {
		lease.Release()
		return s.fail("render", err)
	}
	data := pool.NewFenceData()
	data.PushRelease(lease)
	pool.Attach(res.queue, fence, data)

	s.needClear = false
	s.rendered = true
	return nil
}

func (s *SwapChain) submit(lists ...gpu.CommandList) error {
	for _, l := range lists {
		if err := l.Close(); err != nil {
			return s.fail("render", err)
		}
	}
	if err := s.res.queue.Execute(lists...); err != nil {
		return s.fail("render", err)
	}
	return nil
}

func (s *SwapChain) overlayContext(back gpu.Texture) OverlayContext {
	ctx := OverlayContext{Viewport: s.output}
	if s.overlayMode&OverlayGPU != 0 {
		ctx.Queue = s.res.queue
		ctx.Target = back
	}
	if s.overlayMode&OverlayInterop != 0 {
		ctx.InteropDevice = s.res.Device()
		ctx.InteropTarget = back
	}
	return ctx
}

func (s *SwapChain) clearColor() color.Color {
	if s.cfg.FillBorder {
		return s.cfg.BorderColor
	}
	return color.RGBA{A: 0xff}
}

// fail maps err to a status error. Surface loss and calls rejected while
// the window is torn down mean the window is closing. Device loss and
// memory exhaustion are fatal for this swap chain.
func (s *SwapChain) fail(op string, err error) error {
	log := logging.Logger()
	switch {
	case errors.Is(err, gpu.ErrDeviceRemoved), errors.Is(err, gpu.ErrOutOfMemory):
		log.Error("swapchain: device failure", "op", op, "err", err)
		s.fatal = fmt.Errorf("%w: %s: %v", status.ErrFatal, op, err)
		return s.fatal
	case errors.Is(err, gpu.ErrSurfaceLost), errors.Is(err, gpu.ErrInvalidCall),
		errors.Is(err, platform.ErrNoWindow), errors.Is(err, pool.ErrClosed):
		log.Warn("swapchain: window closing", "op", op, "err", err)
		return fmt.Errorf("%w: %s: %v", status.ErrClosed, op, err)
	default:
		log.Error("swapchain: operation failed", "op", op, "err", err)
		return fmt.Errorf("%w: %s: %v", status.ErrFatal, op, err)
	}
}

// updateOutputLocked recomputes the output rectangle inside the back
// buffer from the crop, pixel aspect ratio, orientation and render rect.
func (s *SwapChain) updateOutputLocked() {
	area := image.Rect(0, 0, s.width, s.height)
	if !s.renderRect.Empty() {
		area = s.renderRect.Intersect(area)
	}
	if area.Empty() || s.crop.Empty() {
		s.output = area
		return
	}
	info := s.in
	info.Width, info.Height = s.crop.Dx(), s.crop.Dy()
	dw, dh := info.DisplaySize()
	ow, oh := s.orient.OutputSize(dw, dh)
	s.output = area
	if s.forceAspect {
		s.output = video.CenterRect(image.Rect(0, 0, ow, oh), area, true)
	}
}

// SetRenderRect restricts the output to r inside the surface. An empty r
// uses the whole surface.
func (s *SwapChain) SetRenderRect(r image.Rectangle) {
	s.mu.Lock()
	s.renderRect = r
	s.needClear = true
	s.updateOutputLocked()
	s.mu.Unlock()
}

// SetForceAspectRatio keeps the video aspect ratio when enabled.
func (s *SwapChain) SetForceAspectRatio(on bool) {
	s.mu.Lock()
	s.forceAspect = on
	s.needClear = true
	s.updateOutputLocked()
	s.mu.Unlock()
}

// SetOrientation sets the output orientation.
func (s *SwapChain) SetOrientation(o video.Orientation) {
	s.mu.Lock()
	s.orient = o
	s.needClear = true
	s.updateOutputLocked()
	s.mu.Unlock()
}

// SetMSAA selects the MSAA mode. A change recreates the render targets.
func (s *SwapChain) SetMSAA(m MSAAMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == s.msaa {
		return nil
	}
	s.msaa = m
	if s.res == nil || s.width == 0 {
		return nil
	}
	return s.resizeLocked()
}

// SetOverlayMode selects the overlay notification mode.
func (s *SwapChain) SetOverlayMode(m OverlayMode) {
	s.mu.Lock()
	s.overlayMode = m
	s.mu.Unlock()
}

// OutputRect returns the rectangle the video occupies in the back buffer.
func (s *SwapChain) OutputRect() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// CropRect returns the source rectangle of the video.
func (s *SwapChain) CropRect() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crop
}

// Orientation returns the output orientation.
func (s *SwapChain) Orientation() video.Orientation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orient
}

// Size returns the back buffer size.
func (s *SwapChain) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// SampleCount returns the MSAA sample count in use; 1 without MSAA.
func (s *SwapChain) SampleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// BufferCount returns the back buffer count of the device swap chain, or
// the configured count before Setup.
func (s *SwapChain) BufferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res != nil && s.res.Chain() != nil {
		return s.res.Chain().Desc().BufferCount
	}
	return s.bufferCount
}

// Device returns the device of the current resource, or nil.
func (s *SwapChain) Device() gpu.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return nil
	}
	return s.res.Device()
}

// Chain returns the device swap chain, or nil before Setup.
func (s *SwapChain) Chain() gpu.SwapChain {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res == nil {
		return nil
	}
	return s.res.Chain()
}

// Close drains outstanding work and releases the resources.
func (s *SwapChain) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.res != nil {
		s.res.Close()
		s.res = nil
	}
	s.cached = nil
	s.conv = nil
	s.comp = nil
}
