// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package convert

import (
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/video"
)

// Soft converts frames on the CPU with an x/image/draw interpolator.
type Soft struct {
	in     video.Info
	format gputypes.TextureFormat
	cfg    Config
	interp draw.Interpolator

	mu     sync.Mutex
	src    image.Rectangle
	dst    image.Rectangle
	orient video.Orientation
}

// Ensure Soft implements Converter.
var _ Converter = (*Soft)(nil)

// NewSoft is the default Factory.
func NewSoft(_ gpu.Device, in video.Info, format gputypes.TextureFormat, cfg Config) (Converter, error) {
	if !in.Valid() {
		return nil, ErrUnsupportedFormat
	}
	switch format {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, ErrUnsupportedFormat
	}
	return &Soft{
		in:     in,
		format: format,
		cfg:    cfg,
		interp: interpolator(cfg.Filter),
		src:    in.Rect(),
		orient: video.DefaultOrientation(),
	}, nil
}

func interpolator(f Filter) draw.Interpolator {
	switch f {
	case FilterNearest:
		return draw.NearestNeighbor
	case FilterCatmullRom:
		return draw.CatmullRom
	default:
		return draw.ApproxBiLinear
	}
}

// Info returns the input description the converter was created for.
func (c *Soft) Info() video.Info { return c.in }

// Config returns the configuration the converter was created with.
func (c *Soft) Config() Config { return c.cfg }

func (c *Soft) SetSourceRect(r image.Rectangle) {
	c.mu.Lock()
	c.src = r
	c.mu.Unlock()
}

func (c *Soft) SetDestRect(r image.Rectangle) {
	c.mu.Lock()
	c.dst = r
	c.mu.Unlock()
}

func (c *Soft) SetOrientation(o video.Orientation) {
	c.mu.Lock()
	c.orient = o
	c.mu.Unlock()
}

// SourceRect returns the current source rectangle.
func (c *Soft) SourceRect() image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src
}

// DestRect returns the current destination rectangle.
func (c *Soft) DestRect() image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dst
}

// Convert records a draw pass scaling the source rectangle of frame into the
// destination rectangle of dst. An empty destination rectangle means the
// whole texture.
func (c *Soft) Convert(cl gpu.CommandList, frame *video.Frame, dst gpu.Texture) error {
	if frame == nil || frame.Image == nil {
		return ErrNoImage
	}

	c.mu.Lock()
	sr := c.src.Intersect(frame.Image.Bounds())
	dr := c.dst
	orient := c.orient
	c.mu.Unlock()

	full := image.Rect(0, 0, dst.Width(), dst.Height())
	if dr.Empty() {
		dr = full
	}
	if sr.Empty() {
		sr = frame.Image.Bounds()
	}
	s2d := SourceToDest(sr, dr, orient)
	src := frame.Image
	interp := c.interp
	cfg := c.cfg

	cl.Draw(dst, func(img draw.Image) {
		if cfg.FillBorder {
			fillBorder(img, img.Bounds(), dr, cfg.BorderColor)
		}
		interp.Transform(img, s2d, src, sr, draw.Src, nil)
	})
	return nil
}

// SourceToDest returns the matrix mapping points of src, in frame
// coordinates, onto dst after orientation.
func SourceToDest(src, dst image.Rectangle, o video.Orientation) f64.Aff3 {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	ow, oh := o.OutputSize(src.Dx(), src.Dy())

	toOrigin := f64.Aff3{1, 0, -float64(src.Min.X), 0, 1, -float64(src.Min.Y)}
	orient := o.Transform(sw, sh)
	scale := f64.Aff3{
		float64(dst.Dx()) / float64(max(ow, 1)), 0, float64(dst.Min.X),
		0, float64(dst.Dy()) / float64(max(oh, 1)), float64(dst.Min.Y),
	}
	return video.Multiply(scale, video.Multiply(orient, toOrigin))
}

// fillBorder paints the four bands of bounds outside inner.
func fillBorder(img draw.Image, bounds, inner image.Rectangle, c color.Color) {
	inner = inner.Intersect(bounds)
	u := image.NewUniform(c)
	if inner.Empty() {
		draw.Draw(img, bounds, u, image.Point{}, draw.Src)
		return
	}
	bands := [...]image.Rectangle{
		image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, inner.Min.Y),
		image.Rect(bounds.Min.X, inner.Max.Y, bounds.Max.X, bounds.Max.Y),
		image.Rect(bounds.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y),
		image.Rect(inner.Max.X, inner.Min.Y, bounds.Max.X, inner.Max.Y),
	}
	for _, r := range bands {
		if !r.Empty() {
			draw.Draw(img, r, u, image.Point{}, draw.Src)
		}
	}
}
