// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package x11 implements platform.Display on an X11 connection.
//
// One event loop serves every window of a Display. It starts with the first
// Run or Post and executes posted functions between X events, so event
// callbacks and posted work never run concurrently. Windows of other
// clients can be used as parents: their handle is the X window id.
//
// Surfaces present with core PutImage requests, with one request per dirty
// rectangle (split to fit the maximum request size).
package x11

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/gogpu/vsink/internal/logging"
	"github.com/gogpu/vsink/platform"
)

const (
	ownEvents = xproto.EventMaskStructureNotify | xproto.EventMaskExposure |
		xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease |
		xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion

	// Pointer button events of foreign windows can only be selected by
	// one client, so parents are watched for structure and keys only.
	parentEvents = xproto.EventMaskStructureNotify | xproto.EventMaskExposure |
		xproto.EventMaskKeyPress | xproto.EventMaskKeyRelease |
		xproto.EventMaskPointerMotion
)

// Display is an X11 connection.
type Display struct {
	xu *xgbutil.XUtil

	mu      sync.Mutex
	windows map[platform.Handle]*window
	queue   []func()
	wake    chan struct{}
	started bool
	closed  bool
}

// window state is guarded by Display.mu.
type window struct {
	h        platform.Handle
	xw       *xwindow.Window
	parent   *window
	children []*window
	fn       platform.EventFunc
	external bool

	watchSeq int
	watchers map[int]platform.EventFunc

	width, height int
	fullscreen    bool
	destroyed     bool
	done          chan struct{}
	clicks        clickTracker

	surface *Surface
}

var _ platform.Display = (*Display)(nil)

// Open connects to the X server named by name, or $DISPLAY when empty.
func Open(name string) (*Display, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if name == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(name)
	}
	if err != nil {
		return nil, fmt.Errorf("x11: connect: %w", err)
	}
	keybind.Initialize(xu)
	return &Display{
		xu:      xu,
		windows: make(map[platform.Handle]*window),
		wake:    make(chan struct{}, 1),
	}, nil
}

// Close stops the event loop and disconnects. Pending Run calls return.
func (d *Display) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	for _, w := range d.windows {
		if !w.destroyed {
			w.destroyed = true
			close(w.done)
		}
	}
	d.mu.Unlock()
	if started {
		xevent.Quit(d.xu)
	}
	d.xu.Conn().Close()
}

func (d *Display) lookup(h platform.Handle) (*window, error) {
	w, ok := d.windows[h]
	if !ok || w.destroyed {
		return nil, fmt.Errorf("%w: %#x", platform.ErrNoWindow, uintptr(h))
	}
	return w, nil
}

// adopt returns the window for h, registering foreign windows on first use.
// d.mu must be held.
func (d *Display) adopt(h platform.Handle) (*window, error) {
	if w, ok := d.windows[h]; ok {
		if w.destroyed {
			return nil, fmt.Errorf("%w: %#x", platform.ErrNoWindow, uintptr(h))
		}
		return w, nil
	}
	id := xproto.Window(h)
	geom, err := xproto.GetGeometry(d.xu.Conn(), xproto.Drawable(id)).Reply()
	if err != nil {
		return nil, fmt.Errorf("%w: %#x: %v", platform.ErrNoWindow, uintptr(h), err)
	}
	err = xproto.ChangeWindowAttributesChecked(d.xu.Conn(), id, xproto.CwEventMask,
		[]uint32{parentEvents}).Check()
	if err != nil {
		return nil, fmt.Errorf("x11: watch %#x: %w", uintptr(h), err)
	}
	w := &window{
		h:        h,
		xw:       xwindow.New(d.xu, id),
		external: true,
		watchers: make(map[int]platform.EventFunc),
		width:    int(geom.Width),
		height:   int(geom.Height),
		done:     make(chan struct{}),
	}
	w.surface = &Surface{d: d, w: w}
	d.windows[h] = w
	d.connect(w)
	return w, nil
}

func (d *Display) create(parent xproto.Window, x, y, width, height int, fn platform.EventFunc) (*window, error) {
	xw, err := xwindow.Generate(d.xu)
	if err != nil {
		return nil, fmt.Errorf("x11: allocate window id: %w", err)
	}
	screen := d.xu.Screen()
	err = xw.CreateChecked(parent, x, y, width, height,
		xproto.CwBackPixel|xproto.CwEventMask, screen.BlackPixel, ownEvents)
	if err != nil {
		return nil, fmt.Errorf("x11: create window: %w", err)
	}
	w := &window{
		h:        platform.Handle(xw.Id),
		xw:       xw,
		fn:       fn,
		watchers: make(map[int]platform.EventFunc),
		width:    width,
		height:   height,
		done:     make(chan struct{}),
	}
	w.surface = &Surface{d: d, w: w}
	return w, nil
}

// CreateWindow creates and maps a top-level window.
func (d *Display) CreateWindow(cfg platform.WindowConfig, fn platform.EventFunc) (platform.Handle, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("x11: invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	w, err := d.create(d.xu.RootWin(), cfg.X, cfg.Y, cfg.Width, cfg.Height, fn)
	if err != nil {
		return 0, err
	}
	if cfg.Title != "" {
		d.setTitle(w.xw.Id, cfg.Title)
	}
	w.xw.WMGracefulClose(func(*xwindow.Window) {
		d.dispatch(w, platform.CloseEvent{})
	})

	d.mu.Lock()
	d.windows[w.h] = w
	d.connect(w)
	d.mu.Unlock()
	w.xw.Map()
	return w.h, nil
}

// CreateChild creates and maps a window filling parent. Parent may belong
// to another client.
func (d *Display) CreateChild(parent platform.Handle, fn platform.EventFunc) (platform.Handle, error) {
	d.mu.Lock()
	p, err := d.adopt(parent)
	pw, ph := 0, 0
	if err == nil {
		pw, ph = p.width, p.height
	}
	d.mu.Unlock()
	if err != nil {
		return 0, err
	}

	w, err := d.create(p.xw.Id, 0, 0, max(pw, 1), max(ph, 1), fn)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	w.parent = p
	p.children = append(p.children, w)
	d.windows[w.h] = w
	d.connect(w)
	d.mu.Unlock()
	w.xw.Map()
	return w.h, nil
}

// Destroy destroys h and its children, delivering DestroyEvent children
// first. Foreign windows are forgotten, not destroyed.
func (d *Display) Destroy(h platform.Handle) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	order := d.markDestroyed(w)
	d.mu.Unlock()

	for _, x := range order {
		d.dispatch(x, platform.DestroyEvent{})
	}

	d.mu.Lock()
	for _, x := range order {
		xevent.Detach(d.xu, x.xw.Id)
		delete(d.windows, x.h)
		close(x.done)
	}
	d.mu.Unlock()

	if !w.external {
		w.xw.Destroy()
	}
	return nil
}

// markDestroyed flags w and its subtree and unlinks w from its parent. It
// returns the subtree children first. d.mu must be held.
func (d *Display) markDestroyed(w *window) []*window {
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
	return order
}

// Run pumps events until h is destroyed.
func (d *Display) Run(h platform.Handle) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err == nil && w.parent != nil {
		err = fmt.Errorf("%w: run on a child window", platform.ErrUnsupported)
	}
	if err == nil {
		d.startLocked()
	}
	d.mu.Unlock()
	if err != nil {
		return err
	}
	<-w.done
	return nil
}

// Post schedules fn on the event loop.
func (d *Display) Post(h platform.Handle, fn func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: display closed", platform.ErrNoWindow)
	}
	if _, err := d.adopt(h); err != nil {
		return err
	}
	d.queue = append(d.queue, fn)
	d.startLocked()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return nil
}

func (d *Display) startLocked() {
	if d.started {
		return
	}
	d.started = true
	go d.loop()
}

// loop interleaves posted functions with X event callbacks.
func (d *Display) loop() {
	before, after, quit := xevent.MainPing(d.xu)
	log := logging.Logger()
	log.Debug("x11: event loop started")
	for {
		select {
		case <-d.wake:
			d.mu.Lock()
			queue := d.queue
			d.queue = nil
			d.mu.Unlock()
			for _, fn := range queue {
				fn()
			}
		case <-before:
			<-after
		case <-quit:
			log.Debug("x11: event loop stopped")
			return
		}
	}
}

// Watch observes parent's events.
func (d *Display) Watch(parent platform.Handle, fn platform.EventFunc) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.adopt(parent)
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

// ClientSize returns the last known size of h.
func (d *Display) ClientSize(h platform.Handle) (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.adopt(h)
	if err != nil {
		return 0, 0, err
	}
	return w.width, w.height, nil
}

// Placement queries h's geometry relative to its parent.
func (d *Display) Placement(h platform.Handle) (platform.Placement, error) {
	d.mu.Lock()
	_, err := d.adopt(h)
	d.mu.Unlock()
	if err != nil {
		return platform.Placement{}, err
	}
	geom, err := xproto.GetGeometry(d.xu.Conn(), xproto.Drawable(h)).Reply()
	if err != nil {
		return platform.Placement{}, fmt.Errorf("%w: %v", platform.ErrNoWindow, err)
	}
	x, y := int(geom.X), int(geom.Y)
	return platform.Placement{Rect: image.Rect(x, y, x+int(geom.Width), y+int(geom.Height))}, nil
}

// SetPlacement moves and resizes h. The new size is reported by the
// server with a configure event.
func (d *Display) SetPlacement(h platform.Handle, p platform.Placement) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if p.Rect.Empty() {
		return fmt.Errorf("x11: empty placement %v", p.Rect)
	}
	w.xw.MoveResize(p.Rect.Min.X, p.Rect.Min.Y, p.Rect.Dx(), p.Rect.Dy())
	return nil
}

// SetFullscreen asks the window manager to toggle _NET_WM_STATE_FULLSCREEN.
func (d *Display) SetFullscreen(h platform.Handle, on bool) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	if err == nil && (w.parent != nil || w.external) {
		err = fmt.Errorf("%w: fullscreen on a foreign or child window", platform.ErrUnsupported)
	}
	if err == nil {
		w.fullscreen = on
	}
	d.mu.Unlock()
	if err != nil {
		return err
	}
	action := ewmh.StateRemove
	if on {
		action = ewmh.StateAdd
	}
	if err := ewmh.WmStateReq(d.xu, w.xw.Id, action, "_NET_WM_STATE_FULLSCREEN"); err != nil {
		return fmt.Errorf("x11: fullscreen: %w", err)
	}
	return nil
}

// SetTitle sets the window name.
func (d *Display) SetTitle(h platform.Handle, title string) error {
	d.mu.Lock()
	w, err := d.lookup(h)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	d.setTitle(w.xw.Id, title)
	return nil
}

func (d *Display) setTitle(id xproto.Window, title string) {
	if err := ewmh.WmNameSet(d.xu, id, title); err != nil {
		logging.Logger().Debug("x11: set _NET_WM_NAME", "err", err)
	}
	if err := icccm.WmNameSet(d.xu, id, title); err != nil {
		logging.Logger().Debug("x11: set WM_NAME", "err", err)
	}
}

// Surface returns the surface of h.
func (d *Display) Surface(h platform.Handle) (platform.Surface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, err := d.lookup(h)
	if err != nil {
		return nil, err
	}
	return w.surface, nil
}

// dispatch calls the window's event function and watchers without holding
// d.mu.
func (d *Display) dispatch(w *window, ev platform.Event) {
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
