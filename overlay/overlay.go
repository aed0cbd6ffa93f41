// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package overlay defines the overlay compositor capability and a software
// compositor that draws the overlay rectangles a frame carries (bitmaps and
// text labels) on top of the converted picture.
package overlay

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/video"
)

// ErrUnsupportedFormat is returned by a Factory for target formats it
// cannot draw into.
var ErrUnsupportedFormat = errors.New("overlay: unsupported format")

// Compositor draws frame overlays into a texture.
type Compositor interface {
	// SetViewport maps the source rectangle of the video, after
	// orientation, onto viewport in the destination texture.
	SetViewport(viewport, src image.Rectangle, o video.Orientation)

	// Draw records the overlays of frame on cl. It records nothing for a
	// frame without overlays.
	Draw(cl gpu.CommandList, frame *video.Frame, dst gpu.Texture) error
}

// Factory creates a compositor for video described by in.
type Factory func(dev gpu.Device, in video.Info, format gputypes.TextureFormat) (Compositor, error)

// Soft composites overlays on the CPU.
type Soft struct {
	mu       sync.Mutex
	viewport image.Rectangle
	src      image.Rectangle
	orient   video.Orientation

	faces map[int]font.Face
}

// Ensure Soft implements Compositor.
var _ Compositor = (*Soft)(nil)

var (
	regularOnce sync.Once
	regular     *opentype.Font
	regularErr  error
)

func regularFont() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// NewSoft is the default Factory.
func NewSoft(_ gpu.Device, in video.Info, format gputypes.TextureFormat) (Compositor, error) {
	switch format {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, ErrUnsupportedFormat
	}
	if _, err := regularFont(); err != nil {
		return nil, err
	}
	return &Soft{
		src:    in.Rect(),
		orient: video.DefaultOrientation(),
		faces:  make(map[int]font.Face),
	}, nil
}

func (s *Soft) SetViewport(viewport, src image.Rectangle, o video.Orientation) {
	s.mu.Lock()
	s.viewport, s.src, s.orient = viewport, src, o
	s.mu.Unlock()
}

// face returns the regular face at px pixels, caching one face per size.
func (s *Soft) face(px int) (font.Face, error) {
	px = max(px, 6)
	if f, ok := s.faces[px]; ok {
		return f, nil
	}
	regular, err := regularFont()
	if err != nil {
		return nil, err
	}
	f, err := opentype.NewFace(regular, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	s.faces[px] = f
	return f, nil
}

// Draw records one pass drawing every overlay of frame.
func (s *Soft) Draw(cl gpu.CommandList, frame *video.Frame, dst gpu.Texture) error {
	if frame == nil || len(frame.Overlays) == 0 {
		return nil
	}

	s.mu.Lock()
	viewport, src, orient := s.viewport, s.src, s.orient
	if viewport.Empty() {
		viewport = image.Rect(0, 0, dst.Width(), dst.Height())
	}
	m := convert.SourceToDest(src, viewport, orient)

	type item struct {
		ov   video.Overlay
		rect image.Rectangle
		m    f64.Aff3
		face font.Face
	}
	items := make([]item, 0, len(frame.Overlays))
	for _, ov := range frame.Overlays {
		it := item{ov: ov, rect: mapRect(m, ov.Rect)}
		if it.rect.Empty() {
			continue
		}
		if ov.Image != nil {
			b := ov.Image.Bounds()
			sx := float64(ov.Rect.Dx()) / float64(max(b.Dx(), 1))
			sy := float64(ov.Rect.Dy()) / float64(max(b.Dy(), 1))
			fit := f64.Aff3{
				sx, 0, float64(ov.Rect.Min.X) - sx*float64(b.Min.X),
				0, sy, float64(ov.Rect.Min.Y) - sy*float64(b.Min.Y),
			}
			it.m = video.Multiply(m, fit)
		}
		if ov.Text != "" {
			f, err := s.face(it.rect.Dy() * 3 / 4)
			if err != nil {
				s.mu.Unlock()
				return err
			}
			it.face = f
		}
		items = append(items, it)
	}
	s.mu.Unlock()

	if len(items) == 0 {
		return nil
	}
	cl.Draw(dst, func(img draw.Image) {
		for _, it := range items {
			if it.ov.Image != nil {
				draw.ApproxBiLinear.Transform(img, it.m, it.ov.Image, it.ov.Image.Bounds(), draw.Over, nil)
			}
			if it.face != nil {
				drawText(img, it.rect, it.face, it.ov.Text, it.ov.Color)
			}
		}
	})
	return nil
}

func drawText(img draw.Image, r image.Rectangle, face font.Face, text string, c color.Color) {
	if c == nil {
		c = color.White
	}
	metrics := face.Metrics()
	clip, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	dst := img
	if ok {
		if sub, ok := clip.SubImage(r).(draw.Image); ok {
			dst = sub
		}
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(r.Min.X), Y: fixed.I(r.Min.Y) + metrics.Ascent},
	}
	d.DrawString(text)
}

// mapRect returns the bounding box of r transformed by m.
func mapRect(m f64.Aff3, r image.Rectangle) image.Rectangle {
	pts := [4][2]float64{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
	}
	var out image.Rectangle
	for i, p := range pts {
		x := m[0]*p[0] + m[1]*p[1] + m[2]
		y := m[3]*p[0] + m[4]*p[1] + m[5]
		pt := image.Pt(int(x+0.5), int(y+0.5))
		if i == 0 {
			out = image.Rectangle{Min: pt, Max: pt}
			continue
		}
		out.Min.X = min(out.Min.X, pt.X)
		out.Min.Y = min(out.Min.Y, pt.Y)
		out.Max.X = max(out.Max.X, pt.X)
		out.Max.Y = max(out.Max.Y, pt.Y)
	}
	return out
}
