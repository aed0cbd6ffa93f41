// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package convert defines the frame converter capability used by the swap
// chain and provides a software implementation built on x/image/draw.
//
// A Converter writes one input frame into a destination texture, applying
// the source crop, the output viewport and an orientation. It is created for
// a fixed input format and Config; rectangles and orientation are adjusted
// in place between frames.
package convert

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/video"
)

// Errors returned by converters.
var (
	// ErrUnsupportedFormat is returned by a Factory for input formats it
	// cannot convert.
	ErrUnsupportedFormat = errors.New("convert: unsupported format")

	// ErrNoImage is returned by Convert for frames without pixel data.
	ErrNoImage = errors.New("convert: frame has no image")
)

// Filter selects the resampling kernel.
type Filter uint8

const (
	FilterBilinear Filter = iota
	FilterNearest
	FilterCatmullRom
)

var filterNames = [...]string{
	FilterBilinear:   "bilinear",
	FilterNearest:    "nearest",
	FilterCatmullRom: "catmull-rom",
}

func (f Filter) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return fmt.Sprintf("Filter(%d)", f)
}

// ParseFilter returns the filter with the given name.
func ParseFilter(s string) (Filter, error) {
	for i, name := range filterNames {
		if name == s {
			return Filter(i), nil
		}
	}
	return FilterBilinear, fmt.Errorf("convert: unknown filter %q", s)
}

// Config holds converter parameters that require a new converter when
// changed. Config is comparable.
type Config struct {
	Filter Filter

	// FillBorder paints the area outside the destination rectangle with
	// BorderColor on every conversion.
	FillBorder  bool
	BorderColor color.RGBA

	// GammaMode and PrimariesMode are passed through to converters that
	// implement color management. The software converter ignores them.
	GammaMode     string
	PrimariesMode string
}

// DefaultConfig returns bilinear filtering with an opaque black border.
func DefaultConfig() Config {
	return Config{
		Filter:      FilterBilinear,
		FillBorder:  true,
		BorderColor: color.RGBA{A: 0xff},
		GammaMode:   "none",
	}
}

// Converter writes frames into textures.
type Converter interface {
	// SetSourceRect sets the region of the input frame to convert.
	SetSourceRect(r image.Rectangle)

	// SetDestRect sets the viewport inside the destination texture.
	SetDestRect(r image.Rectangle)

	// SetOrientation sets the transform applied between source and
	// viewport.
	SetOrientation(o video.Orientation)

	// Convert records the conversion of frame into dst on cl. dst must be in
	// the render-target state when the list executes.
	Convert(cl gpu.CommandList, frame *video.Frame, dst gpu.Texture) error
}

// Factory creates a converter for frames described by in, rendering into
// textures of the given format.
type Factory func(dev gpu.Device, in video.Info, format gputypes.TextureFormat, cfg Config) (Converter, error)
