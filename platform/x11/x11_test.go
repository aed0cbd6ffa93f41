// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package x11

import (
	"image"
	"image/color"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/gogpu/vsink/platform"
)

func TestModifiers(t *testing.T) {
	state := uint16(xproto.KeyButMaskShift | xproto.KeyButMaskMod1 | xproto.KeyButMaskButton1)
	want := platform.ModShift | platform.ModAlt | platform.ModButton1
	if got := modifiers(state); got != want {
		t.Errorf("modifiers(%#x) = %v, want %v", state, got, want)
	}
	if got := modifiers(0); got != 0 {
		t.Errorf("modifiers(0) = %v", got)
	}
}

func TestButtonEvent(t *testing.T) {
	tests := []struct {
		detail xproto.Button
		press  bool
		ok     bool
		action platform.MouseAction
		dy     float64
	}{
		{1, true, true, platform.MouseButtonPress, 0},
		{3, false, true, platform.MouseButtonRelease, 0},
		{4, true, true, platform.MouseScroll, 1},
		{5, true, true, platform.MouseScroll, -1},
		{5, false, false, 0, 0},
	}
	for _, tt := range tests {
		ev, ok := buttonEvent(tt.detail, tt.press, 10, 20, 0)
		if ok != tt.ok {
			t.Errorf("button %d press %v: ok = %v", tt.detail, tt.press, ok)
			continue
		}
		if !ok {
			continue
		}
		if ev.Action != tt.action || ev.DeltaY != tt.dy || ev.X != 10 || ev.Y != 20 {
			t.Errorf("button %d press %v: %+v", tt.detail, tt.press, ev)
		}
	}
}

func TestDoubleClick(t *testing.T) {
	var c clickTracker
	if c.press(1, 1000) {
		t.Error("first press reported as double click")
	}
	if !c.press(1, 1200) {
		t.Error("second press within the interval not a double click")
	}
	if c.press(1, 1300) {
		t.Error("third press reported as double click")
	}
	if c.press(2, 1350) {
		t.Error("press of another button reported as double click")
	}
	if c.press(2, 2000) {
		t.Error("slow second press reported as double click")
	}
}

func TestBands(t *testing.T) {
	r := image.Rect(0, 0, 100, 25)
	got := bands(r, 100*4*10)
	if len(got) != 3 {
		t.Fatalf("bands = %v, want 3", got)
	}
	if got[0] != image.Rect(0, 0, 100, 10) || got[2] != image.Rect(0, 20, 100, 25) {
		t.Errorf("bands = %v", got)
	}
	if got := bands(image.Rect(0, 0, 1000, 2), 16); len(got) != 2 {
		t.Errorf("oversized rows: %v, want one row per band", got)
	}
	if bands(image.Rectangle{}, 1024) != nil {
		t.Error("bands of an empty rect")
	}
}

func TestBGRX(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(1, 1, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	got := bgrx(img, image.Rect(1, 1, 2, 2))
	if want := []byte{3, 2, 1, 0}; string(got) != string(want) {
		t.Errorf("bgrx = %v, want %v", got, want)
	}
}
