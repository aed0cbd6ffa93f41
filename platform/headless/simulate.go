// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package headless

import (
	"fmt"
	"image"

	"github.com/gogpu/vsink/platform"
)

func (d *Display) inject(h platform.Handle, update func(*window) platform.Event) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	ev := update(w)
	d.mu.Unlock()

	if !d.postEvent(w, ev) {
		return fmt.Errorf("%w: loop stopped", platform.ErrNoWindow)
	}
	return nil
}

// SimulateResize resizes h as if the user dragged its frame.
func (d *Display) SimulateResize(h platform.Handle, width, height int) error {
	return d.inject(h, func(w *window) platform.Event {
		w.rect.Max = w.rect.Min.Add(image.Pt(width, height))
		return platform.ResizeEvent{Width: width, Height: height}
	})
}

// SimulateKey delivers a key event to h.
func (d *Display) SimulateKey(h platform.Handle, ev platform.KeyEvent) error {
	return d.inject(h, func(*window) platform.Event { return ev })
}

// SimulateMouse delivers a pointer event to h.
func (d *Display) SimulateMouse(h platform.Handle, ev platform.MouseEvent) error {
	return d.inject(h, func(*window) platform.Event { return ev })
}

// SimulateClose delivers a close request to h.
func (d *Display) SimulateClose(h platform.Handle) error {
	return d.inject(h, func(*window) platform.Event { return platform.CloseEvent{} })
}

// SimulateExpose reports damaged content on h.
func (d *Display) SimulateExpose(h platform.Handle) error {
	return d.inject(h, func(*window) platform.Event { return platform.ExposeEvent{} })
}

// Exists reports whether h is a live window.
func (d *Display) Exists(h platform.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.lookup(h)
	return err == nil
}

// Title returns h's caption.
func (d *Display) Title(h platform.Handle) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, err := d.lookup(h); err == nil {
		return w.title
	}
	return ""
}

// Fullscreen reports whether h is fullscreen.
func (d *Display) Fullscreen(h platform.Handle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, err := d.lookup(h); err == nil {
		return w.fullscreen
	}
	return false
}

// Children returns the live children of h.
func (d *Display) Children(h platform.Handle) []platform.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup(h)
	if err != nil {
		return nil
	}
	out := make([]platform.Handle, 0, len(w.children))
	for _, c := range w.children {
		out = append(out, c.h)
	}
	return out
}

// SurfaceOf returns the concrete surface of h for inspection.
func (d *Display) SurfaceOf(h platform.Handle) *Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[h]; ok {
		return w.surface
	}
	return nil
}
