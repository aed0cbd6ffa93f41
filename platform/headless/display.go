// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package headless implements platform.Display in memory.
//
// Every top-level window gets its own message loop, pumped by the goroutine
// that calls Run; child windows share their parent's loop. Events are
// delivered on that goroutine only. Surfaces keep the last presented image
// so tests and offscreen runs can inspect what would have been shown.
//
// The Simulate* methods inject the events a real window system would
// produce: user resizes, keyboard and pointer input, close requests.
package headless

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/vsink/platform"
)

// DefaultScreen is the screen area used for fullscreen windows.
var DefaultScreen = image.Rect(0, 0, 1920, 1080)

// Option configures a Display.
type Option func(*Display)

// WithScreen sets the screen rectangle used for fullscreen windows.
func WithScreen(r image.Rectangle) Option {
	return func(d *Display) { d.screen = r }
}

// Display is an in-memory window system.
type Display struct {
	mu      sync.Mutex
	screen  image.Rectangle
	next    platform.Handle
	windows map[platform.Handle]*window
}

// window state is guarded by Display.mu.
type window struct {
	h        platform.Handle
	parent   *window
	children []*window
	loop     *loop
	fn       platform.EventFunc

	watchSeq int
	watchers map[int]platform.EventFunc

	rect       image.Rectangle
	style      uint32
	title      string
	fullscreen bool
	destroyed  bool

	surface *Surface
}

// Ensure Display implements platform.Display.
var _ platform.Display = (*Display)(nil)

// New creates a display.
func New(opts ...Option) *Display {
	d := &Display{
		screen:  DefaultScreen,
		windows: make(map[platform.Handle]*window),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Display) lookup(h platform.Handle) (*window, error) {
	w, ok := d.windows[h]
	if !ok || w.destroyed {
		return nil, fmt.Errorf("%w: %#x", platform.ErrNoWindow, uintptr(h))
	}
	return w, nil
}

func (d *Display) add(w *window) {
	d.next++
	w.h = d.next
	w.watchers = make(map[int]platform.EventFunc)
	w.surface = &Surface{d: d, h: w.h}
	d.windows[w.h] = w
}

// CreateWindow creates a top-level window with its own message loop.
func (d *Display) CreateWindow(cfg platform.WindowConfig, fn platform.EventFunc) (platform.Handle, error) {
	width, height := cfg.Width, cfg.Height
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("headless: invalid window size %dx%d", width, height)
	}
	w := &window{
		loop:  newLoop(),
		fn:    fn,
		rect:  image.Rect(cfg.X, cfg.Y, cfg.X+width, cfg.Y+height),
		title: cfg.Title,
	}
	d.mu.Lock()
	d.add(w)
	d.mu.Unlock()
	return w.h, nil
}

// CreateChild creates a child window filling parent.
func (d *Display) CreateChild(parent platform.Handle, fn platform.EventFunc) (platform.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.lookup(parent)
	if err != nil {
		return 0, err
	}
	w := &window{
		parent: p,
		loop:   p.loop,
		fn:     fn,
		rect:   image.Rect(0, 0, p.rect.Dx(), p.rect.Dy()),
	}
	d.add(w)
	p.children = append(p.children, w)
	return w.h, nil
}

// Destroy destroys h and its children, delivering DestroyEvent to each,
// children first. Destroying a top-level window stops its loop.
func (d *Display) Destroy(h platform.Handle) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	var order []*window
	var collect func(*window)
	collect = func(w *window) {
		for _, c := range w.children {
			if !c.destroyed {
				collect(c)
			}
		}
		order = append(order, w)
	}
	collect(w)
	for _, x := range order {
		x.destroyed = true
	}
	if p := w.parent; p != nil {
		for i, c := range p.children {
			if c == w {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	d.mu.Unlock()

	for _, x := range order {
		d.dispatchTo(x, platform.DestroyEvent{})
	}

	d.mu.Lock()
	for _, x := range order {
		delete(d.windows, x.h)
	}
	d.mu.Unlock()

	if w.parent == nil {
		w.loop.stop()
	}
	return nil
}

// Run pumps h's loop until h is destroyed.
func (d *Display) Run(h platform.Handle) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err == nil && w.parent != nil {
		err = fmt.Errorf("%w: run on a child window", platform.ErrUnsupported)
	}
	d.mu.Unlock()
	if err != nil {
		return err
	}
	w.loop.run()
	return nil
}

// Post schedules fn on h's loop.
func (d *Display) Post(h platform.Handle, fn func()) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if !w.loop.post(fn) {
		return fmt.Errorf("%w: loop stopped", platform.ErrNoWindow)
	}
	return nil
}

// Watch observes parent's events.
func (d *Display) Watch(parent platform.Handle, fn platform.EventFunc) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup(parent)
	if err != nil {
		return nil, err
	}
	w.watchSeq++
	id := w.watchSeq
	w.watchers[id] = fn
	return func() {
		d.mu.Lock()
		delete(w.watchers, id)
		d.mu.Unlock()
	}, nil
}

// ClientSize returns the size of h.
func (d *Display) ClientSize(h platform.Handle) (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup(h)
	if err != nil {
		return 0, 0, err
	}
	return w.rect.Dx(), w.rect.Dy(), nil
}

// Placement returns h's rectangle and style.
func (d *Display) Placement(h platform.Handle) (platform.Placement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup(h)
	if err != nil {
		return platform.Placement{}, err
	}
	return platform.Placement{Rect: w.rect, Style: w.style}, nil
}

// SetPlacement moves h. A size change is reported with a ResizeEvent on
// h's loop.
func (d *Display) SetPlacement(h platform.Handle, p platform.Placement) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	resized := w.rect.Size() != p.Rect.Size()
	w.rect = p.Rect
	w.style = p.Style
	d.mu.Unlock()

	if resized {
		d.postEvent(w, platform.ResizeEvent{Width: p.Rect.Dx(), Height: p.Rect.Dy()})
	}
	return nil
}

// SetFullscreen covers the screen with h, or marks it windowed again. The
// caller restores the windowed placement.
func (d *Display) SetFullscreen(h platform.Handle, on bool) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if w.parent != nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: fullscreen child window", platform.ErrUnsupported)
	}
	w.fullscreen = on
	resized := false
	if on && w.rect != d.screen {
		resized = w.rect.Size() != d.screen.Size()
		w.rect = d.screen
	}
	size := w.rect.Size()
	d.mu.Unlock()

	if resized {
		d.postEvent(w, platform.ResizeEvent{Width: size.X, Height: size.Y})
	}
	return nil
}

// SetTitle sets h's caption.
func (d *Display) SetTitle(h platform.Handle, title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup(h)
	if err != nil {
		return err
	}
	w.title = title
	return nil
}

// Surface returns h's surface.
func (d *Display) Surface(h platform.Handle) (platform.Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup(h)
	if err != nil {
		return nil, err
	}
	return w.surface, nil
}

// postEvent delivers ev to w on its loop.
func (d *Display) postEvent(w *window, ev platform.Event) bool {
	return w.loop.post(func() {
		d.mu.Lock()
		gone := w.destroyed
		d.mu.Unlock()
		if !gone {
			d.dispatchTo(w, ev)
		}
	})
}

// dispatchTo calls w's event function and watchers without holding d.mu.
func (d *Display) dispatchTo(w *window, ev platform.Event) {
	d.mu.Lock()
	fn := w.fn
	watchers := make([]platform.EventFunc, 0, len(w.watchers))
	for _, f := range w.watchers {
		watchers = append(watchers, f)
	}
	d.mu.Unlock()

	if fn != nil {
		fn(w.h, ev)
	}
	for _, f := range watchers {
		f(w.h, ev)
	}
}
