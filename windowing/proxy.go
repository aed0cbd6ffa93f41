// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package windowing

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/internal/logging"
	"github.com/gogpu/vsink/platform"
	"github.com/gogpu/vsink/status"
	"github.com/gogpu/vsink/swapchain"
	"github.com/gogpu/vsink/video"
)

// State is the lifecycle state of a Proxy.
type State uint8

const (
	StateUnbound State = iota
	StateBound
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	default:
		return "released"
	}
}

type fullscreenState struct {
	requested bool
	applied   bool
	saved     platform.Placement
}

// Proxy binds one swap chain to one platform window handle. It is the only
// object that talks to that handle; calls from other threads are posted to
// the thread owning it.
type Proxy struct {
	reg    *Registry
	client *Client
	id     ProxyID
	kind   platform.Kind
	direct bool
	handle platform.Handle
	parent platform.Handle
	chain  *swapchain.SwapChain

	mu          sync.Mutex
	state       State
	width       int
	height      int
	fs          fullscreenState
	altEnter    bool
	renderRect  image.Rectangle
	shortcutOff bool
}

func newProxy(r *Registry, c *Client, id ProxyID, kind platform.Kind, direct bool,
	h, parent platform.Handle, surface platform.Surface) *Proxy {
	return &Proxy{
		reg:    r,
		client: c,
		id:     id,
		kind:   kind,
		direct: direct,
		handle: h,
		parent: parent,
		chain:  swapchain.New(surface, c.opts...),
	}
}

// ID returns the proxy id, unique within its client.
func (p *Proxy) ID() ProxyID { return p.id }

// Handle returns the window the swap chain presents to. In direct mode it
// is the parent itself.
func (p *Proxy) Handle() platform.Handle { return p.handle }

// Parent returns the external parent, or zero for an owned window.
func (p *Proxy) Parent() platform.Handle { return p.parent }

// Kind reports whether the window is owned or embedded.
func (p *Proxy) Kind() platform.Kind { return p.kind }

// Direct reports whether the swap chain is bound to the parent itself.
func (p *Proxy) Direct() bool { return p.direct }

// SwapChain returns the proxy's swap chain.
func (p *Proxy) SwapChain() *swapchain.SwapChain { return p.chain }

// State returns the lifecycle state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Proxy) bound() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateBound {
		return fmt.Errorf("%w: proxy %d %s", status.ErrClosed, p.id, p.state)
	}
	return nil
}

// SetupSwapChain configures the swap chain. The first time a device swap
// chain is created the platform fullscreen shortcut is disabled on it.
func (p *Proxy) SetupSwapChain(dev gpu.Device, in video.Info, format gputypes.TextureFormat, cfg convert.Config) error {
	if err := p.bound(); err != nil {
		return err
	}
	created, err := p.chain.Setup(dev, in, format, cfg)
	if err != nil {
		return err
	}

	w, h, _ := p.reg.display.ClientSize(p.handle)
	p.mu.Lock()
	p.width, p.height = w, h
	disable := created && !p.shortcutOff
	if disable {
		p.shortcutOff = true
	}
	p.mu.Unlock()

	if disable {
		if chain := p.chain.Chain(); chain != nil {
			if err := chain.DisableFullscreenShortcut(); err != nil {
				logging.Logger().Warn("windowing: disable fullscreen shortcut", "err", err)
			}
		}
	}
	return nil
}

// ResizeBuffer resizes the swap chain for a w×h client area. It does
// nothing when the size is unchanged.
func (p *Proxy) ResizeBuffer(w, h int) error {
	p.mu.Lock()
	if p.state != StateBound {
		p.mu.Unlock()
		return fmt.Errorf("%w: proxy %d %s", status.ErrClosed, p.id, p.state)
	}
	if w == p.width && h == p.height {
		p.mu.Unlock()
		return nil
	}
	p.width, p.height = w, h
	p.mu.Unlock()
	return p.chain.ResizeBuffer()
}

// SetBuffer renders frame; nil re-renders the cached frame.
func (p *Proxy) SetBuffer(frame *video.Frame) error {
	if err := p.bound(); err != nil {
		return err
	}
	return p.chain.SetBuffer(frame)
}

// Present presents the last rendered frame.
func (p *Proxy) Present() error {
	if err := p.bound(); err != nil {
		return err
	}
	return p.chain.Present()
}

// Expose redraws the cached frame.
func (p *Proxy) Expose() error {
	if err := p.bound(); err != nil {
		return err
	}
	return p.chain.Expose()
}

// SetRenderRect places the video inside the parent. An embedded child
// window is moved to r; in direct mode and for owned windows r restricts
// the output viewport. An empty r fills the window.
func (p *Proxy) SetRenderRect(r image.Rectangle) error {
	if err := p.bound(); err != nil {
		return err
	}
	p.mu.Lock()
	p.renderRect = r
	p.mu.Unlock()

	if p.kind == platform.KindEmbedded && !p.direct {
		return p.reg.display.Post(p.parent, p.fitChild)
	}
	p.chain.SetRenderRect(r)
	return nil
}

// fitChild moves the child window to the render rect, or over the whole
// parent. It runs on the thread owning the parent.
func (p *Proxy) fitChild() {
	p.mu.Lock()
	r := p.renderRect
	p.mu.Unlock()

	d := p.reg.display
	if r.Empty() {
		w, h, err := d.ClientSize(p.parent)
		if err != nil {
			return
		}
		r = image.Rect(0, 0, w, h)
	}
	if err := d.SetPlacement(p.handle, platform.Placement{Rect: r}); err != nil {
		logging.Logger().Debug("windowing: move child window", "err", err)
	}
}

// SetTitle sets the caption of an owned window.
func (p *Proxy) SetTitle(title string) error {
	if p.kind != platform.KindOwned {
		return nil
	}
	return p.reg.display.SetTitle(p.handle, title)
}

// SetWindowSize resizes an owned window's client area to w×h. It does
// nothing for embedded windows or while fullscreen is applied.
func (p *Proxy) SetWindowSize(w, h int) error {
	if p.kind != platform.KindOwned || w <= 0 || h <= 0 {
		return nil
	}
	if err := p.bound(); err != nil {
		return err
	}
	d := p.reg.display
	return d.Post(p.handle, func() {
		if p.Fullscreen() {
			return
		}
		pl, err := d.Placement(p.handle)
		if err != nil || (pl.Rect.Dx() == w && pl.Rect.Dy() == h) {
			return
		}
		pl.Rect.Max = pl.Rect.Min.Add(image.Pt(w, h))
		if err := d.SetPlacement(p.handle, pl); err != nil {
			logging.Logger().Warn("windowing: resize window", "err", err)
		}
	})
}

// EnableFullscreenOnAltEnter enables the Alt+Return fullscreen toggle.
func (p *Proxy) EnableFullscreenOnAltEnter(on bool) {
	p.mu.Lock()
	p.altEnter = on
	p.mu.Unlock()
}

// Fullscreen reports whether fullscreen is applied.
func (p *Proxy) Fullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fs.applied
}

// SetFullscreen requests fullscreen for an owned window. The change is
// applied on the thread owning the window.
func (p *Proxy) SetFullscreen(on bool) error {
	if p.kind != platform.KindOwned {
		return fmt.Errorf("%w: fullscreen on an embedded window", platform.ErrUnsupported)
	}
	if err := p.bound(); err != nil {
		return err
	}
	p.mu.Lock()
	p.fs.requested = on
	p.mu.Unlock()
	return p.reg.display.Post(p.handle, p.applyFullscreen)
}

func (p *Proxy) toggleFullscreen() {
	p.mu.Lock()
	p.fs.requested = !p.fs.applied
	p.mu.Unlock()
	p.applyFullscreen()
}

// applyFullscreen brings the window to the requested state. Entering saves
// the windowed placement; leaving restores it.
func (p *Proxy) applyFullscreen() {
	d := p.reg.display
	p.mu.Lock()
	want := p.fs.requested
	if p.state != StateBound || p.fs.applied == want {
		p.mu.Unlock()
		return
	}
	saved := p.fs.saved
	p.mu.Unlock()

	if want {
		pl, err := d.Placement(p.handle)
		if err != nil {
			return
		}
		saved = pl
	}
	if err := d.SetFullscreen(p.handle, want); err != nil {
		logging.Logger().Warn("windowing: fullscreen", "on", want, "err", err)
		return
	}
	if !want {
		if err := d.SetPlacement(p.handle, saved); err != nil {
			logging.Logger().Warn("windowing: restore placement", "err", err)
		}
	}

	p.mu.Lock()
	p.fs.applied = want
	p.fs.saved = saved
	p.mu.Unlock()
	logging.Logger().Debug("windowing: fullscreen changed", "on", want)
	p.client.listener.Fullscreen(want)
}

// HandleKey translates a key event. Alt+Return toggles fullscreen on owned
// windows when enabled and is not forwarded.
func (p *Proxy) HandleKey(ev platform.KeyEvent) {
	p.mu.Lock()
	altEnter := p.altEnter
	p.mu.Unlock()

	if altEnter && p.kind == platform.KindOwned && ev.Action == platform.KeyPress &&
		ev.Modifiers&platform.ModAlt != 0 && (ev.Key == "Return" || ev.Key == "KP_Enter") {
		p.toggleFullscreen()
		return
	}

	name := EventKeyPress
	if ev.Action == platform.KeyRelease {
		name = EventKeyRelease
	}
	p.client.listener.Key(KeyEvent{Event: name, Key: ev.Key, Modifiers: ev.Modifiers})
}

// HandleMouse translates a pointer event into source video coordinates.
// fromParent marks coordinates relative to the external parent, which are
// first remapped into the child window. Events outside the video are
// dropped.
func (p *Proxy) HandleMouse(ev platform.MouseEvent, fromParent bool) {
	x, y := ev.X, ev.Y
	if fromParent && p.kind == platform.KindEmbedded && !p.direct {
		pl, err := p.reg.display.Placement(p.handle)
		if err != nil {
			return
		}
		x -= float64(pl.Rect.Min.X)
		y -= float64(pl.Rect.Min.Y)
		if x < 0 || y < 0 || x >= float64(pl.Rect.Dx()) || y >= float64(pl.Rect.Dy()) {
			return
		}
	}

	vx, vy, ok := p.toVideo(x, y)
	if !ok {
		return
	}
	p.client.listener.Mouse(MouseEvent{
		Event:     mouseEventName(ev.Action),
		Button:    ev.Button,
		X:         vx,
		Y:         vy,
		DeltaX:    ev.DeltaX,
		DeltaY:    ev.DeltaY,
		Modifiers: ev.Modifiers,
	})
}

// toVideo maps a window point inside the output rectangle to the source
// frame, undoing scaling and orientation.
func (p *Proxy) toVideo(x, y float64) (float64, float64, bool) {
	out := p.chain.OutputRect()
	if out.Empty() {
		return 0, 0, false
	}
	if x < float64(out.Min.X) || y < float64(out.Min.Y) || x >= float64(out.Max.X) || y >= float64(out.Max.Y) {
		return 0, 0, false
	}

	crop := p.chain.CropRect()
	o := p.chain.Orientation()
	ow, oh := o.OutputSize(crop.Dx(), crop.Dy())
	rx := (x - float64(out.Min.X)) * float64(ow) / float64(out.Dx())
	ry := (y - float64(out.Min.Y)) * float64(oh) / float64(out.Dy())

	sx, sy, ok := o.ToSource(rx, ry, float64(crop.Dx()), float64(crop.Dy()))
	if !ok {
		return 0, 0, false
	}
	return sx + float64(crop.Min.X), sy + float64(crop.Min.Y), true
}

// onEvent handles events of the proxy's own window.
func (p *Proxy) onEvent(ev platform.Event) {
	switch ev := ev.(type) {
	case platform.ResizeEvent:
		p.report("resize", p.ResizeBuffer(ev.Width, ev.Height))
	case platform.ExposeEvent:
		p.report("expose", p.Expose())
	case platform.KeyEvent:
		p.HandleKey(ev)
	case platform.MouseEvent:
		p.HandleMouse(ev, false)
	}
}

// onParentEvent handles events relayed from the external parent.
func (p *Proxy) onParentEvent(ev platform.Event) {
	switch ev := ev.(type) {
	case platform.ResizeEvent:
		if p.direct {
			p.report("resize", p.ResizeBuffer(ev.Width, ev.Height))
			return
		}
		p.mu.Lock()
		fill := p.renderRect.Empty()
		p.mu.Unlock()
		if fill {
			p.fitChild()
		}
	case platform.ExposeEvent:
		if p.direct {
			p.report("expose", p.Expose())
		}
	case platform.KeyEvent:
		p.HandleKey(ev)
	case platform.MouseEvent:
		p.HandleMouse(ev, true)
	}
}

func (p *Proxy) report(op string, err error) {
	if err == nil {
		return
	}
	log := logging.Logger()
	if errors.Is(err, status.ErrClosed) {
		log.Debug("windowing: window closing", "op", op, "proxy", p.id, "err", err)
		return
	}
	log.Error("windowing: event handling failed", "op", op, "proxy", p.id, "err", err)
}

// release closes the swap chain. With destroy the window is destroyed on
// its owning thread, unless it belongs to the application (direct mode).
func (p *Proxy) release(destroy bool) {
	p.mu.Lock()
	if p.state == StateReleased {
		p.mu.Unlock()
		return
	}
	p.state = StateReleased
	p.mu.Unlock()

	p.chain.Close()
	logging.Logger().Debug("windowing: proxy released", "proxy", p.id, "handle", p.handle)

	if !destroy || p.direct {
		return
	}
	d := p.reg.display
	h := p.handle
	if err := d.Post(h, func() { _ = d.Destroy(h) }); err != nil {
		logging.Logger().Debug("windowing: window already gone", "handle", h, "err", err)
	}
}
