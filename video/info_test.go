// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package video

import (
	"image"
	"testing"
)

func TestInfoDisplaySize(t *testing.T) {
	info := Info{Format: FormatI420, Width: 720, Height: 576, ParN: 16, ParD: 15}
	if w, h := info.DisplaySize(); w != 768 || h != 576 {
		t.Errorf("DisplaySize() = %dx%d, want 768x576", w, h)
	}
	if w, h := NewInfo(FormatRGBA, 64, 32).DisplaySize(); w != 64 || h != 32 {
		t.Errorf("square pixels DisplaySize() = %dx%d, want 64x32", w, h)
	}
}

func TestInfoValid(t *testing.T) {
	if (Info{Width: 10, Height: 10}).Valid() {
		t.Error("unknown format should be invalid")
	}
	if !NewInfo(FormatNV12, 2, 2).Valid() {
		t.Error("NV12 2x2 should be valid")
	}
}

func TestFrameCropRect(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	inside := image.Rect(10, 10, 50, 60)
	outside := image.Rect(200, 200, 300, 300)
	partial := image.Rect(90, 90, 120, 120)

	tests := []struct {
		name  string
		frame *Frame
		want  image.Rectangle
	}{
		{"nil frame", nil, bounds},
		{"no hint", &Frame{}, bounds},
		{"inside", &Frame{Crop: &inside}, inside},
		{"disjoint", &Frame{Crop: &outside}, bounds},
		{"clipped", &Frame{Crop: &partial}, image.Rect(90, 90, 100, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.CropRect(bounds); got != tt.want {
				t.Errorf("CropRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("NV12")
	if err != nil || f != FormatNV12 {
		t.Errorf("ParseFormat(NV12) = %v, %v", f, err)
	}
	if _, err := ParseFormat("unknown"); err == nil {
		t.Error("ParseFormat(unknown) should fail")
	}
}
