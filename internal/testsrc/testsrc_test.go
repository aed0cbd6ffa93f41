package testsrc

import (
	"image"
	"image/color"
	"testing"
	"time"
)

func TestBars(t *testing.T) {
	s := New(70, 40)
	f := s.Next()
	img := f.Image.(*image.RGBA)
	box := s.BoxRect(0)
	for i, want := range Bars {
		x := i*10 + 5
		pt := image.Pt(x, 2)
		if pt.In(box) {
			continue
		}
		if got := img.RGBAAt(pt.X, pt.Y); got != want {
			t.Errorf("bar %d = %v, want %v", i, got, want)
		}
	}
	c := box.Min.Add(image.Pt(1, 1))
	if got := img.RGBAAt(c.X, c.Y); got != BoxColor {
		t.Errorf("box pixel = %v, want %v", got, BoxColor)
	}
}

func TestBoxBounces(t *testing.T) {
	s := New(120, 40)
	for n := range 200 {
		r := s.BoxRect(n)
		if !r.In(image.Rect(0, 0, 120, 40)) {
			t.Fatalf("frame %d: box %v leaves the frame", n, r)
		}
	}
	if s.BoxRect(0) == s.BoxRect(1) {
		t.Error("box does not move")
	}
}

func TestCounterAndTimestamps(t *testing.T) {
	s := New(64, 64, WithRate(50), WithCounter())
	s.Next()
	f := s.Next()
	if f.PTS != 20*time.Millisecond {
		t.Errorf("PTS = %v, want 20ms", f.PTS)
	}
	if len(f.Overlays) != 1 || f.Overlays[0].Text != "frame 1" {
		t.Fatalf("Overlays = %+v", f.Overlays)
	}
	if f.Overlays[0].Color != color.White {
		t.Errorf("overlay colour = %v", f.Overlays[0].Color)
	}
}
