// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package video

import (
	"fmt"
	"image"
	"image/color"
	"time"
)

// Format identifies the pixel layout of incoming frames.
type Format uint8

const (
	// FormatUnknown is the zero value.
	FormatUnknown Format = iota

	// FormatRGBA is packed 8-bit RGBA.
	FormatRGBA

	// FormatBGRA is packed 8-bit BGRA.
	FormatBGRA

	// FormatI420 is planar 4:2:0 YCbCr.
	FormatI420

	// FormatNV12 is semi-planar 4:2:0 YCbCr.
	FormatNV12

	// FormatY444 is planar 4:4:4 YCbCr.
	FormatY444
)

var formatNames = [...]string{
	FormatUnknown: "unknown",
	FormatRGBA:    "RGBA",
	FormatBGRA:    "BGRA",
	FormatI420:    "I420",
	FormatNV12:    "NV12",
	FormatY444:    "Y444",
}

// String returns the conventional name of the format.
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", f)
}

// ParseFormat returns the format with the given name.
func ParseFormat(s string) (Format, error) {
	for i, name := range formatNames {
		if i > 0 && name == s {
			return Format(i), nil
		}
	}
	return FormatUnknown, fmt.Errorf("video: unknown format %q", s)
}

// Info describes a video stream.
type Info struct {
	Format Format
	Width  int
	Height int

	// ParN/ParD is the pixel aspect ratio. Zero values mean 1/1.
	ParN int
	ParD int
}

// NewInfo returns an Info with square pixels.
func NewInfo(format Format, width, height int) Info {
	return Info{Format: format, Width: width, Height: height, ParN: 1, ParD: 1}
}

// Valid reports whether the info has a known format and positive size.
func (i Info) Valid() bool {
	return i.Format != FormatUnknown && i.Width > 0 && i.Height > 0
}

// Rect returns the full frame rectangle.
func (i Info) Rect() image.Rectangle {
	return image.Rect(0, 0, i.Width, i.Height)
}

// DisplaySize returns the frame size with the pixel aspect ratio applied
// to the width.
func (i Info) DisplaySize() (width, height int) {
	n, d := i.ParN, i.ParD
	if n <= 0 || d <= 0 || n == d {
		return i.Width, i.Height
	}
	return i.Width * n / d, i.Height
}

// Overlay is a composition rectangle carried by a frame, such as a subtitle
// bitmap or a text label. Rect is in video coordinates.
type Overlay struct {
	Rect  image.Rectangle
	Image image.Image
	Text  string
	Color color.Color
}

// Frame is one decoded picture handed to the sink.
type Frame struct {
	Image image.Image

	// Crop is an optional per-frame crop hint in video coordinates.
	Crop *image.Rectangle

	Overlays []Overlay
	PTS      time.Duration
}

// CropRect returns the crop hint clipped to bounds, or bounds when the
// frame has no hint or the hint does not intersect.
func (f *Frame) CropRect(bounds image.Rectangle) image.Rectangle {
	if f == nil || f.Crop == nil {
		return bounds
	}
	r := f.Crop.Intersect(bounds)
	if r.Empty() {
		return bounds
	}
	return r
}
