// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package x11

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/gogpu/vsink/platform"
)

// maxRequestBytes is the largest PutImage payload that fits the core
// protocol request size limit.
const maxRequestBytes = 65535*4 - 24

// Surface presents images to a window with PutImage.
type Surface struct {
	d  *Display
	w  *window
	gc xproto.Gcontext
}

var _ platform.Surface = (*Surface)(nil)

// Handle returns the window handle.
func (s *Surface) Handle() platform.Handle { return s.w.h }

// Size returns the last size reported by the server.
func (s *Surface) Size() (int, int, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.w.destroyed {
		return 0, 0, fmt.Errorf("%w: %#x", platform.ErrNoWindow, uintptr(s.w.h))
	}
	return s.w.width, s.w.height, nil
}

// Blit uploads the dirty regions of img, or all of it.
func (s *Surface) Blit(img *image.RGBA, dirty []image.Rectangle) error {
	s.d.mu.Lock()
	gone := s.w.destroyed
	s.d.mu.Unlock()
	if gone {
		return fmt.Errorf("%w: %#x", platform.ErrNoWindow, uintptr(s.w.h))
	}

	gc, err := s.context()
	if err != nil {
		return err
	}
	rects := dirty
	if len(rects) == 0 {
		rects = []image.Rectangle{img.Bounds()}
	}
	conn := s.d.xu.Conn()
	depth := s.d.xu.Screen().RootDepth
	for _, r := range rects {
		r = r.Intersect(img.Bounds())
		for _, band := range bands(r, maxRequestBytes) {
			xproto.PutImage(conn, xproto.ImageFormatZPixmap, xproto.Drawable(s.w.xw.Id), gc,
				uint16(band.Dx()), uint16(band.Dy()), int16(band.Min.X), int16(band.Min.Y),
				0, depth, bgrx(img, band))
		}
	}
	return nil
}

// context returns the graphics context, creating it on first use.
func (s *Surface) context() (xproto.Gcontext, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if s.gc != 0 {
		return s.gc, nil
	}
	conn := s.d.xu.Conn()
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, fmt.Errorf("x11: allocate gc: %w", err)
	}
	if err := xproto.CreateGCChecked(conn, gc, xproto.Drawable(s.w.xw.Id), 0, nil).Check(); err != nil {
		return 0, fmt.Errorf("x11: create gc: %w", err)
	}
	s.gc = gc
	return gc, nil
}

// bands splits r into horizontal bands of whole rows whose 32-bit pixel
// data fits in limit bytes.
func bands(r image.Rectangle, limit int) []image.Rectangle {
	if r.Empty() {
		return nil
	}
	rows := max(limit/(r.Dx()*4), 1)
	var out []image.Rectangle
	for y := r.Min.Y; y < r.Max.Y; y += rows {
		out = append(out, image.Rect(r.Min.X, y, r.Max.X, min(y+rows, r.Max.Y)))
	}
	return out
}

// bgrx packs r of img in the little-endian ZPixmap layout of 24-bit
// TrueColor visuals.
func bgrx(img *image.RGBA, r image.Rectangle) []byte {
	out := make([]byte, 0, r.Dx()*r.Dy()*4)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := img.Pix[img.PixOffset(r.Min.X, y):img.PixOffset(r.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			out = append(out, row[i+2], row[i+1], row[i], 0)
		}
	}
	return out
}
