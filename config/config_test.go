// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/swapchain"
	"github.com/gogpu/vsink/video"
)

func TestDefaultValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if s.VideoOrientation() != video.DefaultOrientation() {
		t.Errorf("VideoOrientation() = %+v", s.VideoOrientation())
	}
	if s.ConverterConfig() != convert.DefaultConfig() {
		t.Errorf("ConverterConfig() = %+v", s.ConverterConfig())
	}
	if s.TextureFormat() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("TextureFormat() = %v", s.TextureFormat())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
		field  string
	}{
		{"method", func(s *Settings) { s.Orientation.Method = "sideways" }, "sideways"},
		{"msaa", func(s *Settings) { s.MSAA = "16x" }, "16x"},
		{"overlay", func(s *Settings) { s.Overlay = "gpu+paint" }, "paint"},
		{"display format", func(s *Settings) { s.DisplayFormat = "nv12" }, "nv12"},
		{"filter", func(s *Settings) { s.Filter = "lanczos" }, "lanczos"},
		{"border", func(s *Settings) { s.BorderColor = "#12345g" }, "#12345g"},
		{"buffers", func(s *Settings) { s.BufferCount = 1 }, "buffer_count"},
		{"render rect", func(s *Settings) { s.RenderRect.Width = -1 }, "render_rect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(&s)
			err := s.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %q", err, tt.field)
			}
		})
	}
}

func TestDecodeKeepsDefaults(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		in   string
	}{
		{"yaml", FormatYAML, "title: clip\nmsaa: 4x\nrender_rect:\n  x: 10\n  y: 20\n  width: 300\n  height: 200\n"},
		{"toml", FormatTOML, "title = \"clip\"\nmsaa = \"4x\"\n[render_rect]\nx = 10\ny = 20\nwidth = 300\nheight = 200\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode(strings.NewReader(tt.in), tt.f)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if s.Title != "clip" || s.MSAAMode() != swapchain.MSAA4x {
				t.Errorf("decoded title %q msaa %q", s.Title, s.MSAA)
			}
			if got := s.RenderRect.Image(); got != image.Rect(10, 20, 310, 220) {
				t.Errorf("RenderRect = %v", got)
			}
			if !s.ForceAspectRatio || s.BufferCount != swapchain.DefaultBufferCount {
				t.Error("defaults lost for fields absent from the input")
			}
		})
	}
}

func TestDecodeUnknownField(t *testing.T) {
	if _, err := Decode(strings.NewReader("colour: red\n"), FormatYAML); err == nil {
		t.Error("yaml: unknown field accepted")
	}
	if _, err := Decode(strings.NewReader("colour = \"red\"\n"), FormatTOML); err == nil {
		t.Error("toml: unknown field accepted")
	}
}

func TestDecodeEmptyYAML(t *testing.T) {
	s, err := Decode(strings.NewReader(""), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s != Default() {
		t.Errorf("empty input = %+v, want defaults", s)
	}
}

func TestEncodeDecode(t *testing.T) {
	s := Default()
	s.Title = "round trip"
	s.Overlay = "gpu+draw-context"
	s.Orientation.Method = "90l"
	s.BorderColor = "#10203040"
	for _, f := range []Format{FormatYAML, FormatTOML} {
		var buf bytes.Buffer
		if err := Encode(&buf, s, f); err != nil {
			t.Fatalf("Encode(%v): %v", f, err)
		}
		got, err := Decode(&buf, f)
		if err != nil {
			t.Fatalf("Decode(%v): %v", f, err)
		}
		if got != s {
			t.Errorf("%v: got %+v, want %+v", f, got, s)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "sink.yml")
	if err := os.WriteFile(good, []byte("overlay: interop\ndisplay_format: rgba8\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(good)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if s.OverlayMode() != swapchain.OverlayInterop || s.TextureFormat() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("loaded overlay %v format %v", s.OverlayMode(), s.TextureFormat())
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("msaa = \"3x\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); !errors.Is(err, ErrInvalid) {
		t.Errorf("LoadFile(bad) = %v, want ErrInvalid", err)
	}

	if _, err := LoadFile(filepath.Join(dir, "sink.ini")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("LoadFile(.ini) = %v, want ErrUnknownFormat", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#ff8000", color.RGBA{R: 0xff, G: 0x80, A: 0xff}, true},
		{"00000080", color.RGBA{A: 0x80}, true},
		{"#fff", color.RGBA{}, false},
		{"#zz0000", color.RGBA{}, false},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseColor(%q) = %v, %v", tt.in, got, err)
		}
	}
}
