// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/gpu/soft"
	"github.com/gogpu/vsink/platform"
	"github.com/gogpu/vsink/platform/headless"
	"github.com/gogpu/vsink/status"
	"github.com/gogpu/vsink/video"
)

type fixture struct {
	display *headless.Display
	window  platform.Handle
	surface *headless.Surface
	dev     *soft.Device
}

func newFixture(t *testing.T, w, h int, opts ...soft.Option) *fixture {
	t.Helper()
	d := headless.New()
	win, err := d.CreateWindow(platform.WindowConfig{Width: w, Height: h}, nil)
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	dev := soft.New(opts...)
	t.Cleanup(dev.Close)
	return &fixture{display: d, window: win, surface: d.SurfaceOf(win), dev: dev}
}

func (f *fixture) resize(t *testing.T, w, h int) {
	t.Helper()
	if err := f.display.SetPlacement(f.window, platform.Placement{Rect: image.Rect(0, 0, w, h)}); err != nil {
		t.Fatalf("SetPlacement: %v", err)
	}
}

// idle waits for all queued GPU work, including presentation blits.
func (f *fixture) idle(t *testing.T) {
	t.Helper()
	q := f.dev.CommandQueue()
	v, err := q.Signal()
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := q.Wait(context.Background(), v); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func solid(w, h int, c color.RGBA) *video.Frame {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &video.Frame{Image: img}
}

func setup(t *testing.T, s *SwapChain, dev gpu.Device, in video.Info) {
	t.Helper()
	if _, err := s.Setup(dev, in, gputypes.TextureFormatBGRA8Unorm, convert.DefaultConfig()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
}

func TestBufferCountFixed(t *testing.T) {
	f := newFixture(t, 64, 48)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 32, 24))

	sizes := [][2]int{{100, 50}, {20, 20}, {64, 48}, {1, 1}, {200, 120}}
	for _, sz := range sizes {
		f.resize(t, sz[0], sz[1])
		if err := s.ResizeBuffer(); err != nil {
			t.Fatalf("ResizeBuffer(%v): %v", sz, err)
		}
		if err := s.SetBuffer(solid(32, 24, color.RGBA{R: 0xff, A: 0xff})); err != nil {
			t.Fatalf("SetBuffer: %v", err)
		}
		if err := s.Present(); err != nil {
			t.Fatalf("Present: %v", err)
		}
		if n := s.BufferCount(); n != DefaultBufferCount {
			t.Errorf("after resize to %v: BufferCount() = %d, want %d", sz, n, DefaultBufferCount)
		}
		if w, h := s.Size(); w != sz[0] || h != sz[1] {
			t.Errorf("Size() = %dx%d, want %v", w, h, sz)
		}
	}
	f.idle(t)
	if n := f.dev.ValidationErrors(); n != 0 {
		t.Errorf("ValidationErrors() = %d", n)
	}
}

func TestPresentIdempotent(t *testing.T) {
	f := newFixture(t, 32, 32)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))

	if err := s.Present(); err != nil {
		t.Fatalf("Present before any frame: %v", err)
	}
	_ = s.SetBuffer(solid(16, 16, color.RGBA{G: 0xff, A: 0xff}))
	if err := s.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	chain := s.Chain().(*soft.SwapChain)
	n := chain.Presents()
	if err := s.Present(); err != nil {
		t.Fatalf("second Present: %v", err)
	}
	if chain.Presents() != n {
		t.Errorf("second Present presented again: %d -> %d", n, chain.Presents())
	}
}

func TestFullThenDirtyPresent(t *testing.T) {
	f := newFixture(t, 32, 32)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))

	frame := solid(16, 16, color.RGBA{B: 0xff, A: 0xff})
	_ = s.SetBuffer(frame)
	_ = s.Present()
	f.idle(t)
	if d := f.surface.LastDirty(); d != nil {
		t.Errorf("first present dirty = %v, want full update", d)
	}

	_ = s.SetBuffer(frame)
	_ = s.Present()
	f.idle(t)
	if d := f.surface.LastDirty(); len(d) != 1 || d[0] != s.OutputRect() {
		t.Errorf("second present dirty = %v, want [%v]", d, s.OutputRect())
	}
}

func TestMSAADegrade(t *testing.T) {
	tests := []struct {
		name    string
		levels  map[int]uint32
		mode    MSAAMode
		samples int
	}{
		{"all supported", map[int]uint32{1: 1, 2: 1, 4: 1, 8: 1}, MSAA8x, 8},
		{"degrade to 4x", map[int]uint32{1: 1, 2: 1, 4: 1}, MSAA8x, 4},
		{"degrade to 2x", map[int]uint32{1: 1, 2: 1}, MSAA8x, 2},
		{"none supported", map[int]uint32{1: 1}, MSAA8x, 1},
		{"disabled", map[int]uint32{1: 1, 2: 1, 4: 1, 8: 1}, MSAADisabled, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 32, 32, soft.WithQualityLevels(tt.levels))
			s := New(f.surface)
			defer s.Close()
			setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))

			if err := s.SetMSAA(tt.mode); err != nil {
				t.Fatalf("SetMSAA: %v", err)
			}
			if got := s.SampleCount(); got != tt.samples {
				t.Errorf("SampleCount() = %d, want %d", got, tt.samples)
			}
			if err := s.SetBuffer(solid(16, 16, color.RGBA{R: 0xff, A: 0xff})); err != nil {
				t.Fatalf("SetBuffer: %v", err)
			}
			if err := s.Present(); err != nil {
				t.Fatalf("Present: %v", err)
			}
			f.idle(t)
			if n := f.dev.ValidationErrors(); n != 0 {
				t.Errorf("ValidationErrors() = %d", n)
			}
			if got := f.surface.Last().RGBAAt(16, 16); got.R != 0xff {
				t.Errorf("resolved pixel = %v, want red", got)
			}
		})
	}
}

func TestExposeRepresents(t *testing.T) {
	f := newFixture(t, 64, 32)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))

	_ = s.SetBuffer(solid(16, 16, color.RGBA{R: 0x80, G: 0x40, A: 0xff}))
	if err := s.Present(); err != nil {
		t.Fatalf("Present: %v", err)
	}
	f.idle(t)
	rect := s.OutputRect()
	first := f.surface.Last()
	presents := f.surface.Presents()

	if err := s.Expose(); err != nil {
		t.Fatalf("Expose: %v", err)
	}
	f.idle(t)
	if got := s.OutputRect(); got != rect {
		t.Errorf("OutputRect after Expose = %v, want %v", got, rect)
	}
	if f.surface.Presents() != presents+1 {
		t.Errorf("Expose presented %d times", f.surface.Presents()-presents)
	}
	if got := f.surface.Last(); string(got.Pix) != string(first.Pix) {
		t.Error("Expose showed different content")
	}
}

func TestResizeRepresentsCached(t *testing.T) {
	f := newFixture(t, 32, 32)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))

	_ = s.SetBuffer(solid(16, 16, color.RGBA{G: 0xff, A: 0xff}))
	_ = s.Present()
	f.idle(t)
	before := f.surface.Presents()

	f.resize(t, 48, 48)
	if err := s.ResizeBuffer(); err != nil {
		t.Fatalf("ResizeBuffer: %v", err)
	}
	f.idle(t)
	if f.surface.Presents() != before+1 {
		t.Error("resize did not re-present the cached frame")
	}
	if b := f.surface.Last().Bounds(); b.Dx() != 48 {
		t.Errorf("re-presented size = %v, want 48 wide", b)
	}
}

// countingFactory counts converter creations and source rect updates.
type countingFactory struct {
	created atomic.Int32
	setSrc  atomic.Int32
}

type countingConverter struct {
	convert.Converter
	f *countingFactory
}

func (c countingConverter) SetSourceRect(r image.Rectangle) {
	c.f.setSrc.Add(1)
	c.Converter.SetSourceRect(r)
}

func (f *countingFactory) New(dev gpu.Device, in video.Info, format gputypes.TextureFormat, cfg convert.Config) (convert.Converter, error) {
	f.created.Add(1)
	c, err := convert.NewSoft(dev, in, format, cfg)
	if err != nil {
		return nil, err
	}
	return countingConverter{Converter: c, f: f}, nil
}

func TestConverterReusedAcrossSetup(t *testing.T) {
	f := newFixture(t, 32, 32)
	var cf countingFactory
	s := New(f.surface, WithConverterFactory(cf.New))
	defer s.Close()

	in := video.NewInfo(video.FormatRGBA, 16, 16)
	cfg := convert.DefaultConfig()
	if _, err := s.Setup(f.dev, in, gputypes.TextureFormatBGRA8Unorm, cfg); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	created, err := s.Setup(f.dev, in, gputypes.TextureFormatBGRA8Unorm, cfg)
	if err != nil {
		t.Fatalf("second Setup: %v", err)
	}
	if created {
		t.Error("second Setup created a new device swap chain")
	}
	if n := cf.created.Load(); n != 1 {
		t.Errorf("converter created %d times, want 1", n)
	}
	if n := cf.setSrc.Load(); n != 2 {
		t.Errorf("SetSourceRect called %d times, want 2", n)
	}

	cfg.Filter = convert.FilterNearest
	_, _ = s.Setup(f.dev, in, gputypes.TextureFormatBGRA8Unorm, cfg)
	if n := cf.created.Load(); n != 2 {
		t.Errorf("config change: converter created %d times, want 2", n)
	}
}

func TestCropHintPropagatesOnChange(t *testing.T) {
	f := newFixture(t, 32, 32)
	var cf countingFactory
	s := New(f.surface, WithConverterFactory(cf.New))
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))
	base := cf.setSrc.Load()

	crop := image.Rect(0, 0, 8, 16)
	frame := solid(16, 16, color.RGBA{R: 0xff, A: 0xff})
	frame.Crop = &crop
	_ = s.SetBuffer(frame)
	_ = s.SetBuffer(frame)
	if n := cf.setSrc.Load() - base; n != 1 {
		t.Errorf("SetSourceRect calls for one crop change = %d, want 1", n)
	}
	if got := s.CropRect(); got != crop {
		t.Errorf("CropRect() = %v, want %v", got, crop)
	}
	// 8x16 content in a 32x32 surface is pillarboxed.
	if got, want := s.OutputRect(), image.Rect(8, 0, 24, 32); got != want {
		t.Errorf("OutputRect() = %v, want %v", got, want)
	}
}

func TestLetterbox(t *testing.T) {
	tests := []struct {
		name        string
		in          [2]int
		out         [2]int
		forceAspect bool
		want        image.Rectangle
	}{
		{"same aspect", [2]int{1920, 1080}, [2]int{1280, 720}, true, image.Rect(0, 0, 1280, 720)},
		{"letterbox", [2]int{1920, 1080}, [2]int{1280, 1024}, true, image.Rect(0, 152, 1280, 872)},
		{"pillarbox", [2]int{640, 480}, [2]int{1280, 720}, true, image.Rect(160, 0, 1120, 720)},
		{"stretch", [2]int{640, 480}, [2]int{1280, 720}, false, image.Rect(0, 0, 1280, 720)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.out[0], tt.out[1])
			s := New(f.surface)
			defer s.Close()
			s.SetForceAspectRatio(tt.forceAspect)
			setup(t, s, f.dev, video.NewInfo(video.FormatI420, tt.in[0], tt.in[1]))

			if got := s.OutputRect(); got != tt.want {
				t.Errorf("OutputRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrientationSwapsOutput(t *testing.T) {
	f := newFixture(t, 100, 100)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 100, 50))

	if got, want := s.OutputRect(), image.Rect(0, 25, 100, 75); got != want {
		t.Errorf("identity OutputRect() = %v, want %v", got, want)
	}
	s.SetOrientation(video.Orientation{Method: video.MethodRotate90R})
	if got, want := s.OutputRect(), image.Rect(25, 0, 75, 100); got != want {
		t.Errorf("90r OutputRect() = %v, want %v", got, want)
	}
}

func TestRenderRect(t *testing.T) {
	f := newFixture(t, 100, 100)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 50, 50))

	s.SetRenderRect(image.Rect(10, 10, 60, 40))
	if got, want := s.OutputRect(), image.Rect(20, 10, 50, 40); got != want {
		t.Errorf("OutputRect() = %v, want %v", got, want)
	}
}

func TestWindowDestroyedIsClosed(t *testing.T) {
	f := newFixture(t, 32, 32)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))

	_ = s.SetBuffer(solid(16, 16, color.RGBA{A: 0xff}))
	if err := f.display.Destroy(f.window); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if code := status.Of(s.Present()); code != status.Closed {
		t.Errorf("Present after destroy = %v, want closed", code)
	}
	if code := status.Of(s.SetBuffer(solid(16, 16, color.RGBA{A: 0xff}))); code != status.Closed {
		t.Errorf("SetBuffer after destroy = %v, want closed", code)
	}
	if code := status.Of(s.ResizeBuffer()); code != status.Closed {
		t.Errorf("ResizeBuffer after destroy = %v, want closed", code)
	}
}

func TestDeviceRemovedIsFatal(t *testing.T) {
	f := newFixture(t, 32, 32)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))

	f.dev.Remove("test")
	if code := status.Of(s.SetBuffer(solid(16, 16, color.RGBA{A: 0xff}))); code != status.Error {
		t.Errorf("SetBuffer after removal = %v, want error", code)
	}
	if code := status.Of(s.Present()); code != status.Error {
		t.Errorf("Present after fatal error = %v, want error", code)
	}
}

func TestDeviceChangeReplacesResource(t *testing.T) {
	f := newFixture(t, 32, 32)
	other := soft.New()
	defer other.Close()
	s := New(f.surface)
	defer s.Close()

	in := video.NewInfo(video.FormatRGBA, 16, 16)
	setup(t, s, f.dev, in)
	created, err := s.Setup(other, in, gputypes.TextureFormatBGRA8Unorm, convert.DefaultConfig())
	if err != nil {
		t.Fatalf("Setup on new device: %v", err)
	}
	if !created {
		t.Error("device change did not create a new swap chain")
	}
	if !gpu.SameDevice(s.Device(), other) {
		t.Error("resource still bound to the old device")
	}
}

func TestFencePacing(t *testing.T) {
	f := newFixture(t, 16, 16)
	s := New(f.surface)
	defer s.Close()
	setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 8, 8))

	resume := f.dev.Suspend()
	frame := solid(8, 8, color.RGBA{A: 0xff})
	for i := range DefaultBufferCount + 1 {
		_ = s.SetBuffer(frame)
		if err := s.Present(); err != nil {
			t.Fatalf("Present %d: %v", i, err)
		}
	}
	s.mu.Lock()
	outstanding := s.res.Outstanding()
	s.mu.Unlock()
	if outstanding != DefaultBufferCount+1 {
		t.Errorf("outstanding fences = %d, want %d", outstanding, DefaultBufferCount+1)
	}

	// The next present must wait for the oldest frame.
	done := make(chan error, 1)
	go func() {
		_ = s.SetBuffer(frame)
		done <- s.Present()
	}()
	select {
	case <-done:
		t.Fatal("present did not wait with the queue suspended")
	default:
	}
	resume()
	if err := <-done; err != nil {
		t.Fatalf("Present: %v", err)
	}
	s.mu.Lock()
	outstanding = s.res.Outstanding()
	s.mu.Unlock()
	if outstanding > DefaultBufferCount+1 {
		t.Errorf("outstanding fences = %d, want at most %d", outstanding, DefaultBufferCount+1)
	}
}

func TestOverlayPassthrough(t *testing.T) {
	tests := []struct {
		name string
		mode OverlayMode
	}{
		{"gpu", OverlayGPU},
		{"interop", OverlayInterop},
		{"draw context", OverlayDrawContext | OverlayGPU},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 32, 32)
			var got []OverlayContext
			s := New(f.surface, WithOverlayFunc(func(ctx OverlayContext) {
				got = append(got, ctx)
				if ctx.DrawContext != nil {
					ctx.DrawContext.ClearRenderTarget(ctx.Target, color.RGBA{G: 0xff, A: 0xff}, image.Rect(0, 0, 4, 4))
				}
			}))
			defer s.Close()
			setup(t, s, f.dev, video.NewInfo(video.FormatRGBA, 16, 16))
			s.SetOverlayMode(tt.mode)

			_ = s.SetBuffer(solid(16, 16, color.RGBA{R: 0xff, A: 0xff}))
			if err := s.Present(); err != nil {
				t.Fatalf("Present: %v", err)
			}
			f.idle(t)

			if len(got) != 1 {
				t.Fatalf("overlay called %d times, want 1", len(got))
			}
			ctx := got[0]
			if (ctx.Queue != nil) != (tt.mode&OverlayGPU != 0) {
				t.Errorf("Queue set = %v for mode %v", ctx.Queue != nil, tt.mode)
			}
			if (ctx.InteropDevice != nil) != (tt.mode&OverlayInterop != 0) {
				t.Errorf("InteropDevice set = %v for mode %v", ctx.InteropDevice != nil, tt.mode)
			}
			if (ctx.DrawContext != nil) != (tt.mode&OverlayDrawContext != 0) {
				t.Errorf("DrawContext set = %v for mode %v", ctx.DrawContext != nil, tt.mode)
			}
			if ctx.Viewport != s.OutputRect() {
				t.Errorf("Viewport = %v, want %v", ctx.Viewport, s.OutputRect())
			}
			if n := f.dev.ValidationErrors(); n != 0 {
				t.Errorf("ValidationErrors() = %d", n)
			}
			if tt.mode&OverlayDrawContext != 0 {
				if px := f.surface.Last().RGBAAt(1, 1); px.G != 0xff {
					t.Errorf("listener drawing lost: %v", px)
				}
			}
		})
	}
}

func TestModeStrings(t *testing.T) {
	for _, m := range []MSAAMode{MSAADisabled, MSAA2x, MSAA4x, MSAA8x} {
		if got, err := ParseMSAAMode(m.String()); err != nil || got != m {
			t.Errorf("ParseMSAAMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	for _, m := range []OverlayMode{OverlayNone, OverlayGPU, OverlayGPU | OverlayDrawContext, OverlayInterop} {
		if got, err := ParseOverlayMode(m.String()); err != nil || got != m {
			t.Errorf("ParseOverlayMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseOverlayMode("gpu+bogus"); err == nil {
		t.Error("ParseOverlayMode accepted an unknown flag")
	}
}
