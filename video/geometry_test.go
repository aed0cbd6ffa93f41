// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package video

import (
	"image"
	"math"
	"testing"
)

func TestCenterRect(t *testing.T) {
	tests := []struct {
		name    string
		src     image.Rectangle
		dst     image.Rectangle
		scaling bool
		want    image.Rectangle
	}{
		{
			name:    "same aspect fills",
			src:     image.Rect(0, 0, 1920, 1080),
			dst:     image.Rect(0, 0, 1280, 720),
			scaling: true,
			want:    image.Rect(0, 0, 1280, 720),
		},
		{
			name:    "letterbox",
			src:     image.Rect(0, 0, 1920, 1080),
			dst:     image.Rect(0, 0, 1280, 1024),
			scaling: true,
			want:    image.Rect(0, 152, 1280, 872),
		},
		{
			name:    "pillarbox",
			src:     image.Rect(0, 0, 640, 480),
			dst:     image.Rect(0, 0, 1280, 720),
			scaling: true,
			want:    image.Rect(160, 0, 1120, 720),
		},
		{
			name:    "offset destination",
			src:     image.Rect(0, 0, 100, 100),
			dst:     image.Rect(10, 20, 210, 120),
			scaling: true,
			want:    image.Rect(60, 20, 160, 120),
		},
		{
			name:    "no scaling centers and clips",
			src:     image.Rect(0, 0, 400, 100),
			dst:     image.Rect(0, 0, 200, 200),
			scaling: false,
			want:    image.Rect(0, 50, 200, 150),
		},
		{
			name:    "empty source keeps destination",
			src:     image.Rectangle{},
			dst:     image.Rect(0, 0, 10, 10),
			scaling: true,
			want:    image.Rect(0, 0, 10, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CenterRect(tt.src, tt.dst, tt.scaling); got != tt.want {
				t.Errorf("CenterRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrientationOutputSize(t *testing.T) {
	for m := MethodIdentity; m <= MethodCustom; m++ {
		o := Orientation{Method: m}
		w, h := o.OutputSize(1920, 1080)
		if o.SwapsAxes() {
			if w != 1080 || h != 1920 {
				t.Errorf("%v: OutputSize = %dx%d, want 1080x1920", m, w, h)
			}
		} else if w != 1920 || h != 1080 {
			t.Errorf("%v: OutputSize = %dx%d, want 1920x1080", m, w, h)
		}
	}
}

func TestOrientationRoundTrip(t *testing.T) {
	const w, h = 320.0, 240.0
	pts := [][2]float64{{0, 0}, {10, 20}, {319, 1}, {160, 120}}

	for m := MethodIdentity; m <= MethodCustom; m++ {
		o := Orientation{Method: m, ScaleX: 1.5, ScaleY: 0.5, RotationZ: 30}
		tr := o.Transform(w, h)
		for _, p := range pts {
			dx := tr[0]*p[0] + tr[1]*p[1] + tr[2]
			dy := tr[3]*p[0] + tr[4]*p[1] + tr[5]
			sx, sy, ok := o.ToSource(dx, dy, w, h)
			if !ok {
				t.Fatalf("%v: ToSource reported degenerate transform", m)
			}
			if math.Abs(sx-p[0]) > 1e-9 || math.Abs(sy-p[1]) > 1e-9 {
				t.Errorf("%v: round trip %v -> (%g,%g) -> (%g,%g)", m, p, dx, dy, sx, sy)
			}
		}
	}
}

func TestRotate90RMapsCorners(t *testing.T) {
	o := Orientation{Method: MethodRotate90R}
	tr := o.Transform(4, 2)

	// Top-left of the source lands on the top-right of the rotated output.
	dx := tr[0]*0 + tr[1]*0 + tr[2]
	dy := tr[3]*0 + tr[4]*0 + tr[5]
	if dx != 2 || dy != 0 {
		t.Errorf("source (0,0) -> (%g,%g), want (2,0)", dx, dy)
	}
}

func TestInvertDegenerate(t *testing.T) {
	if _, ok := Invert([6]float64{0, 0, 1, 0, 0, 1}); ok {
		t.Error("Invert() of a singular matrix should fail")
	}
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod("90l")
	if !ok || m != MethodRotate90L {
		t.Errorf("ParseMethod(90l) = %v, %v", m, ok)
	}
	if _, ok := ParseMethod("sideways"); ok {
		t.Error("ParseMethod(sideways) should fail")
	}
}
