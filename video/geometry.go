// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package video

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"
)

// CenterRect places src inside dst.
//
// With scaling the result keeps the aspect ratio of src, fills one axis of
// dst and is centered on the other (letterbox or pillarbox). Without scaling
// src keeps its size, clipped to dst, and is centered.
func CenterRect(src, dst image.Rectangle, scaling bool) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return dst
	}

	if !scaling {
		w, h := min(sw, dw), min(sh, dh)
		x := dst.Min.X + (dw-w)/2
		y := dst.Min.Y + (dh-h)/2
		return image.Rect(x, y, x+w, y+h)
	}

	srcRatio := float64(sw) / float64(sh)
	dstRatio := float64(dw) / float64(dh)

	switch {
	case srcRatio > dstRatio:
		h := int(float64(dw) / srcRatio)
		y := dst.Min.Y + (dh-h)/2
		return image.Rect(dst.Min.X, y, dst.Max.X, y+h)
	case srcRatio < dstRatio:
		w := int(float64(dh) * srcRatio)
		x := dst.Min.X + (dw-w)/2
		return image.Rect(x, dst.Min.Y, x+w, dst.Max.Y)
	default:
		return dst
	}
}

// Method is a predefined output orientation.
type Method uint8

const (
	MethodIdentity Method = iota
	MethodRotate90R
	MethodRotate180
	MethodRotate90L
	MethodFlipHorizontal
	MethodFlipVertical
	MethodUpperLeftDiagonal
	MethodUpperRightDiagonal
	MethodCustom
)

var methodNames = [...]string{
	MethodIdentity:           "identity",
	MethodRotate90R:          "90r",
	MethodRotate180:          "180",
	MethodRotate90L:          "90l",
	MethodFlipHorizontal:     "horiz",
	MethodFlipVertical:       "vert",
	MethodUpperLeftDiagonal:  "ul-lr",
	MethodUpperRightDiagonal: "ur-ll",
	MethodCustom:             "custom",
}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return "invalid"
}

// ParseMethod returns the method with the given short name.
func ParseMethod(s string) (Method, bool) {
	for i, name := range methodNames {
		if name == s {
			return Method(i), true
		}
	}
	return MethodIdentity, false
}

// Orientation is the user-selected output transform. The FOV, Ortho,
// rotation and scale fields apply only to MethodCustom. Angles are degrees.
type Orientation struct {
	Method    Method
	FOV       float64
	Ortho     bool
	RotationX float64
	RotationY float64
	RotationZ float64
	ScaleX    float64
	ScaleY    float64
}

// DefaultOrientation returns the identity orientation with unit scale.
func DefaultOrientation() Orientation {
	return Orientation{Method: MethodIdentity, FOV: 90, ScaleX: 1, ScaleY: 1}
}

// SwapsAxes reports whether the orientation exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	switch o.Method {
	case MethodRotate90R, MethodRotate90L, MethodUpperLeftDiagonal, MethodUpperRightDiagonal:
		return true
	}
	return false
}

// OutputSize returns the size of a w×h source after orientation.
func (o Orientation) OutputSize(w, h int) (int, int) {
	if o.SwapsAxes() {
		return h, w
	}
	return w, h
}

// Transform returns the affine matrix mapping source coordinates of a w×h
// frame into the oriented space of size OutputSize(w, h).
//
// The custom method is reduced to an affine approximation: Z rotation and
// scale about the frame center, with X/Y rotation foreshortening the
// respective axis. Perspective from FOV is not representable and ignored.
func (o Orientation) Transform(w, h float64) f64.Aff3 {
	switch o.Method {
	case MethodRotate90R:
		return f64.Aff3{0, -1, h, 1, 0, 0}
	case MethodRotate180:
		return f64.Aff3{-1, 0, w, 0, -1, h}
	case MethodRotate90L:
		return f64.Aff3{0, 1, 0, -1, 0, w}
	case MethodFlipHorizontal:
		return f64.Aff3{-1, 0, w, 0, 1, 0}
	case MethodFlipVertical:
		return f64.Aff3{1, 0, 0, 0, -1, h}
	case MethodUpperLeftDiagonal:
		return f64.Aff3{0, 1, 0, 1, 0, 0}
	case MethodUpperRightDiagonal:
		return f64.Aff3{0, -1, h, -1, 0, w}
	case MethodCustom:
		return o.customTransform(w, h)
	default:
		return f64.Aff3{1, 0, 0, 0, 1, 0}
	}
}

func (o Orientation) customTransform(w, h float64) f64.Aff3 {
	sx, sy := o.ScaleX, o.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	sx *= math.Cos(o.RotationY * math.Pi / 180)
	sy *= math.Cos(o.RotationX * math.Pi / 180)

	theta := o.RotationZ * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	cx, cy := w/2, h/2

	// T(c) * R * S * T(-c)
	a, b := cos*sx, -sin*sy
	d, e := sin*sx, cos*sy
	return f64.Aff3{
		a, b, cx - a*cx - b*cy,
		d, e, cy - d*cx - e*cy,
	}
}

// ToSource maps a point in oriented space back into the coordinates of the
// w×h source frame. It returns false when the transform is degenerate.
func (o Orientation) ToSource(x, y, w, h float64) (float64, float64, bool) {
	inv, ok := Invert(o.Transform(w, h))
	if !ok {
		return 0, 0, false
	}
	return inv[0]*x + inv[1]*y + inv[2], inv[3]*x + inv[4]*y + inv[5], true
}

// Invert returns the inverse of an affine matrix.
func Invert(m f64.Aff3) (f64.Aff3, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if math.Abs(det) < 1e-12 {
		return f64.Aff3{}, false
	}
	inv := 1 / det
	a := m[4] * inv
	b := -m[1] * inv
	d := -m[3] * inv
	e := m[0] * inv
	return f64.Aff3{
		a, b, -(a*m[2] + b*m[5]),
		d, e, -(d*m[2] + e*m[5]),
	}, true
}

// Multiply returns the product m*n, applying n first.
func Multiply(m, n f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		m[0]*n[0] + m[1]*n[3], m[0]*n[1] + m[1]*n[4], m[0]*n[2] + m[1]*n[5] + m[2],
		m[3]*n[0] + m[4]*n[3], m[3]*n[1] + m[4]*n[4], m[3]*n[2] + m[4]*n[5] + m[5],
	}
}
