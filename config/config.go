// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config holds the persistent settings of a sink window and their
// YAML and TOML encodings.
package config

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/swapchain"
	"github.com/gogpu/vsink/video"
)

// Errors returned by this package.
var (
	// ErrInvalid is wrapped by every Validate failure.
	ErrInvalid = errors.New("config: invalid settings")

	// ErrUnknownFormat is returned for file extensions with no codec.
	ErrUnknownFormat = errors.New("config: unknown file format")
)

// Rect is a rectangle in window coordinates. The zero Rect means the whole
// window.
type Rect struct {
	X      int `yaml:"x" toml:"x" mapstructure:"x"`
	Y      int `yaml:"y" toml:"y" mapstructure:"y"`
	Width  int `yaml:"width" toml:"width" mapstructure:"width"`
	Height int `yaml:"height" toml:"height" mapstructure:"height"`
}

// Image returns r as an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Orientation mirrors video.Orientation with a textual method.
type Orientation struct {
	Method    string  `yaml:"method" toml:"method" mapstructure:"method"`
	FOV       float64 `yaml:"fov" toml:"fov" mapstructure:"fov"`
	Ortho     bool    `yaml:"ortho" toml:"ortho" mapstructure:"ortho"`
	RotationX float64 `yaml:"rotation_x" toml:"rotation_x" mapstructure:"rotation_x"`
	RotationY float64 `yaml:"rotation_y" toml:"rotation_y" mapstructure:"rotation_y"`
	RotationZ float64 `yaml:"rotation_z" toml:"rotation_z" mapstructure:"rotation_z"`
	ScaleX    float64 `yaml:"scale_x" toml:"scale_x" mapstructure:"scale_x"`
	ScaleY    float64 `yaml:"scale_y" toml:"scale_y" mapstructure:"scale_y"`
}

// Settings configures a window and its swap chain.
type Settings struct {
	Title                string      `yaml:"title" toml:"title" mapstructure:"title"`
	RenderRect           Rect        `yaml:"render_rect" toml:"render_rect" mapstructure:"render_rect"`
	ForceAspectRatio     bool        `yaml:"force_aspect_ratio" toml:"force_aspect_ratio" mapstructure:"force_aspect_ratio"`
	Orientation          Orientation `yaml:"orientation" toml:"orientation" mapstructure:"orientation"`
	MSAA                 string      `yaml:"msaa" toml:"msaa" mapstructure:"msaa"`
	Overlay              string      `yaml:"overlay" toml:"overlay" mapstructure:"overlay"`
	Fullscreen           bool        `yaml:"fullscreen" toml:"fullscreen" mapstructure:"fullscreen"`
	FullscreenOnAltEnter bool        `yaml:"fullscreen_on_alt_enter" toml:"fullscreen_on_alt_enter" mapstructure:"fullscreen_on_alt_enter"`
	DisplayFormat        string      `yaml:"display_format" toml:"display_format" mapstructure:"display_format"`
	Filter               string      `yaml:"filter" toml:"filter" mapstructure:"filter"`
	BorderColor          string      `yaml:"border_color" toml:"border_color" mapstructure:"border_color"`
	BufferCount          int         `yaml:"buffer_count" toml:"buffer_count" mapstructure:"buffer_count"`
}

// Default returns the settings of a freshly created window.
func Default() Settings {
	return Settings{
		Title:                "vsink",
		ForceAspectRatio:     true,
		Orientation:          Orientation{Method: video.MethodIdentity.String(), FOV: 90, ScaleX: 1, ScaleY: 1},
		MSAA:                 swapchain.MSAADisabled.String(),
		Overlay:              swapchain.OverlayNone.String(),
		FullscreenOnAltEnter: true,
		DisplayFormat:        "bgra8",
		Filter:               convert.FilterBilinear.String(),
		BorderColor:          "#000000",
		BufferCount:          swapchain.DefaultBufferCount,
	}
}

// Validate reports every invalid field, joined.
func (s Settings) Validate() error {
	var errs []error
	if s.RenderRect.Width < 0 || s.RenderRect.Height < 0 {
		errs = append(errs, fmt.Errorf("render_rect %dx%d is negative", s.RenderRect.Width, s.RenderRect.Height))
	}
	if _, ok := video.ParseMethod(s.Orientation.Method); !ok {
		errs = append(errs, fmt.Errorf("orientation method %q is unknown", s.Orientation.Method))
	}
	if _, err := swapchain.ParseMSAAMode(s.MSAA); err != nil {
		errs = append(errs, err)
	}
	if _, err := swapchain.ParseOverlayMode(s.Overlay); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDisplayFormat(s.DisplayFormat); err != nil {
		errs = append(errs, err)
	}
	if _, err := convert.ParseFilter(s.Filter); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseColor(s.BorderColor); err != nil {
		errs = append(errs, err)
	}
	if s.BufferCount < 2 {
		errs = append(errs, fmt.Errorf("buffer_count %d is below 2", s.BufferCount))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// VideoOrientation returns the orientation. Unknown methods are identity.
func (s Settings) VideoOrientation() video.Orientation {
	m, _ := video.ParseMethod(s.Orientation.Method)
	o := s.Orientation
	return video.Orientation{
		Method:    m,
		FOV:       o.FOV,
		Ortho:     o.Ortho,
		RotationX: o.RotationX,
		RotationY: o.RotationY,
		RotationZ: o.RotationZ,
		ScaleX:    o.ScaleX,
		ScaleY:    o.ScaleY,
	}
}

// MSAAMode returns the MSAA mode; unknown values disable MSAA.
func (s Settings) MSAAMode() swapchain.MSAAMode {
	m, _ := swapchain.ParseMSAAMode(s.MSAA)
	return m
}

// OverlayMode returns the overlay flags; unknown values disable overlays.
func (s Settings) OverlayMode() swapchain.OverlayMode {
	m, _ := swapchain.ParseOverlayMode(s.Overlay)
	return m
}

// TextureFormat returns the swap chain format.
func (s Settings) TextureFormat() gputypes.TextureFormat {
	f, err := ParseDisplayFormat(s.DisplayFormat)
	if err != nil {
		return gputypes.TextureFormatBGRA8Unorm
	}
	return f
}

// ConverterConfig returns the frame converter configuration.
func (s Settings) ConverterConfig() convert.Config {
	cfg := convert.DefaultConfig()
	if f, err := convert.ParseFilter(s.Filter); err == nil {
		cfg.Filter = f
	}
	if c, err := ParseColor(s.BorderColor); err == nil {
		cfg.BorderColor = c
	}
	return cfg
}

// ParseDisplayFormat parses "bgra8" or "rgba8".
func ParseDisplayFormat(s string) (gputypes.TextureFormat, error) {
	switch strings.ToLower(s) {
	case "", "bgra8":
		return gputypes.TextureFormatBGRA8Unorm, nil
	case "rgba8":
		return gputypes.TextureFormatRGBA8Unorm, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("display_format %q is not bgra8 or rgba8", s)
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q is not #rrggbb or #rrggbbaa", s)
	}
	var v [4]uint8
	v[3] = 0xff
	for i := 0; i < len(hex)/2; i++ {
		hi, ok1 := nibble(hex[2*i])
		lo, ok2 := nibble(hex[2*i+1])
		if !ok1 || !ok2 {
			return color.RGBA{}, fmt.Errorf("color %q has a non-hex digit", s)
		}
		v[i] = hi<<4 | lo
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}, nil
}

func nibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
