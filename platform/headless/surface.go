// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"image"
	"image/draw"
	"sync"

	"github.com/gogpu/vsink/platform"
)

// Surface keeps a copy of the last presented image.
type Surface struct {
	d *Display
	h platform.Handle

	mu       sync.Mutex
	last     *image.RGBA
	dirty    []image.Rectangle
	presents int
}

// Ensure Surface implements platform.Surface.
var _ platform.Surface = (*Surface)(nil)

func (s *Surface) Handle() platform.Handle { return s.h }

func (s *Surface) Size() (int, int, error) {
	return s.d.ClientSize(s.h)
}

// Blit stores img. With dirty rectangles only those regions are copied over
// the previous image.
func (s *Surface) Blit(img *image.RGBA, dirty []image.Rectangle) error {
	if _, _, err := s.Size(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := img.Bounds()
	if s.last == nil || s.last.Bounds() != b || len(dirty) == 0 {
		s.last = image.NewRGBA(b)
		draw.Draw(s.last, b, img, b.Min, draw.Src)
	} else {
		for _, r := range dirty {
			r = r.Intersect(b)
			draw.Draw(s.last, r, img, r.Min, draw.Src)
		}
	}
	s.dirty = append(s.dirty[:0], dirty...)
	s.presents++
	return nil
}

// Last returns a copy of the last presented image, or nil.
func (s *Surface) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := image.NewRGBA(s.last.Bounds())
	copy(cp.Pix, s.last.Pix)
	return cp
}

// Presents returns the number of blits.
func (s *Surface) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// LastDirty returns the dirty rectangles of the last blit; nil means a
// full update.
func (s *Surface) LastDirty() []image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dirty) == 0 {
		return nil
	}
	return append([]image.Rectangle(nil), s.dirty...)
}
