package vsink

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/internal/logging"
	"github.com/gogpu/vsink/platform"
	"github.com/gogpu/vsink/status"
	"github.com/gogpu/vsink/swapchain"
	"github.com/gogpu/vsink/video"
	"github.com/gogpu/vsink/windowing"
)

// Window presents video frames into a platform window.
//
// Window methods are safe for concurrent use. Key, Mouse and Fullscreen
// handler callbacks may call back into the Window. Overlay runs with the
// swap chain locked and must not.
type Window struct {
	display platform.Display
	reg     *windowing.Registry
	client  *windowing.Client
	handler EventHandler
	timeout time.Duration

	mu          sync.Mutex
	proxyID     windowing.ProxyID
	handle      platform.Handle
	uiDone      chan struct{}
	renderRect  image.Rectangle
	forceAspect bool
	orientation video.Orientation
	title       string
	msaa        swapchain.MSAAMode
	overlay     swapchain.OverlayMode
	fullscreen  bool
	altEnter    bool
	closed      bool
}

// New returns a Window on display. No platform window exists until Open.
func New(display platform.Display, opts ...Option) *Window {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := o.settings

	w := &Window{
		display:     display,
		reg:         o.registry,
		handler:     o.handler,
		timeout:     o.createTimeout,
		renderRect:  s.RenderRect.Image(),
		forceAspect: s.ForceAspectRatio,
		orientation: s.VideoOrientation(),
		title:       s.Title,
		msaa:        s.MSAAMode(),
		overlay:     s.OverlayMode(),
		fullscreen:  s.Fullscreen,
		altEnter:    s.FullscreenOnAltEnter,
	}
	if w.reg == nil {
		w.reg = windowing.Shared(display)
	}

	chainOpts := []swapchain.Option{
		swapchain.WithConverterFactory(o.converter),
		swapchain.WithCompositorFactory(o.compositor),
		swapchain.WithOverlayFunc(w.handler.Overlay),
	}
	if s.BufferCount > 0 {
		chainOpts = append(chainOpts, swapchain.WithBufferCount(s.BufferCount))
	}
	w.client = w.reg.Register(listener{w.handler}, chainOpts...)
	return w
}

// listener forwards registry notifications to the handler.
type listener struct{ h EventHandler }

func (l listener) Key(ev windowing.KeyEvent)     { l.h.Key(ev) }
func (l listener) Mouse(ev windowing.MouseEvent) { l.h.Mouse(ev) }
func (l listener) Fullscreen(on bool)            { l.h.Fullscreen(on) }

// Open creates the platform window. With a zero parent a private
// width×height top-level window is created and pumped by a new UI thread.
// Otherwise a child surface is embedded in parent, or with direct the swap
// chain binds to parent itself. An open window is released first.
//
// The device is used by Prepare; Open only validates it.
func (w *Window) Open(device gpu.Device, width, height int, parent platform.Handle, direct bool) error {
	if device == nil {
		return fmt.Errorf("%w: no device", status.ErrFatal)
	}
	w.Unprepare()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("%w: window closed", status.ErrClosed)
	}
	title := w.title
	w.mu.Unlock()

	var (
		id   windowing.ProxyID
		h    platform.Handle
		done chan struct{}
		err  error
	)
	if parent == 0 {
		id, h, done, err = w.startUI(platform.WindowConfig{Title: title, Width: width, Height: height})
	} else {
		ctx := context.Background()
		if w.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, w.timeout)
			defer cancel()
		}
		id, err = w.reg.CreateChildWindow(ctx, w.client, parent, direct)
	}
	if err != nil {
		return err
	}

	p, ok := w.reg.Proxy(w.client, id)
	if !ok {
		return fmt.Errorf("%w: window destroyed during creation", status.ErrClosed)
	}
	if h == 0 {
		h = p.Handle()
	}

	w.mu.Lock()
	w.proxyID, w.handle, w.uiDone = id, h, done
	rect, altEnter := w.renderRect, w.altEnter
	w.mu.Unlock()

	p.EnableFullscreenOnAltEnter(altEnter)
	if !rect.Empty() {
		if err := p.SetRenderRect(rect); err != nil {
			return err
		}
	}
	return nil
}

// startUI runs a private UI thread that creates and pumps a top-level
// window. It returns once the window exists. A window created after the
// timeout is released by the thread itself.
func (w *Window) startUI(cfg platform.WindowConfig) (windowing.ProxyID, platform.Handle, chan struct{}, error) {
	type result struct {
		id  windowing.ProxyID
		h   platform.Handle
		err error
	}
	ready := make(chan result, 1)
	done := make(chan struct{})
	var (
		mu        sync.Mutex
		abandoned bool
	)

	go func() {
		defer close(done)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		id, h, err := w.reg.CreateInternalWindow(w.client, cfg)
		mu.Lock()
		late := abandoned
		if !late {
			ready <- result{id, h, err}
		}
		mu.Unlock()
		if err != nil {
			return
		}
		log := logging.Logger()
		if late {
			// Open gave up; destroy the window and drain its loop.
			log.Warn("vsink: releasing window created after timeout", "handle", h)
			w.reg.ReleaseProxy(w.client, id)
		} else {
			log.Info("vsink: UI thread started", "handle", h)
		}
		if err := w.display.Run(h); err != nil {
			log.Warn("vsink: UI thread", "err", err)
		}
		log.Info("vsink: UI thread stopped", "handle", h)
	}()

	var timeout <-chan time.Time
	if w.timeout > 0 {
		t := time.NewTimer(w.timeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case r := <-ready:
		if r.err != nil {
			return 0, 0, nil, r.err
		}
		return r.id, r.h, done, nil
	case <-timeout:
		mu.Lock()
		abandoned = true
		mu.Unlock()
		select {
		case r := <-ready:
			if r.err != nil {
				return 0, 0, nil, r.err
			}
			return r.id, r.h, done, nil
		default:
		}
		// The next Unprepare waits for the thread to release its window.
		w.mu.Lock()
		w.uiDone = done
		w.mu.Unlock()
		return 0, 0, nil, fmt.Errorf("%w: window creation timed out", status.ErrClosed)
	}
}

// proxy resolves the current proxy.
func (w *Window) proxy() (*windowing.Proxy, error) {
	w.mu.Lock()
	id := w.proxyID
	w.mu.Unlock()
	if id == 0 {
		return nil, fmt.Errorf("%w: window not open", status.ErrClosed)
	}
	p, ok := w.reg.Proxy(w.client, id)
	if !ok {
		return nil, fmt.Errorf("%w: window destroyed", status.ErrClosed)
	}
	return p, nil
}

// Prepare configures the swap chain for video described by in. width and
// height are the display size; a private window is resized to it. An
// undefined format selects BGRA8.
func (w *Window) Prepare(device gpu.Device, width, height int, in video.Info, cfg convert.Config, format gputypes.TextureFormat) error {
	p, err := w.proxy()
	if err != nil {
		return err
	}
	if err := p.SetupSwapChain(device, in, format, cfg); err != nil {
		return err
	}

	w.mu.Lock()
	forceAspect, orient := w.forceAspect, w.orientation
	msaa, mode := w.msaa, w.overlay
	title, fullscreen := w.title, w.fullscreen
	w.mu.Unlock()

	chain := p.SwapChain()
	chain.SetForceAspectRatio(forceAspect)
	chain.SetOrientation(orient)
	chain.SetOverlayMode(mode)
	if err := chain.SetMSAA(msaa); err != nil {
		return err
	}

	if p.Kind() == platform.KindOwned {
		if err := p.SetTitle(title); err != nil {
			logging.Logger().Warn("vsink: set title", "err", err)
		}
		if err := p.SetWindowSize(width, height); err != nil {
			return err
		}
		if fullscreen {
			if err := p.SetFullscreen(true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unprepare releases the window and its GPU resources. It blocks until a
// private UI thread has exited.
func (w *Window) Unprepare() {
	w.mu.Lock()
	id, done := w.proxyID, w.uiDone
	w.proxyID, w.handle, w.uiDone = 0, 0, nil
	w.mu.Unlock()

	if id != 0 {
		w.reg.ReleaseProxy(w.client, id)
	}
	if done != nil {
		<-done
	}
}

// Close unprepares the window and unregisters it. The Window cannot be
// opened again.
func (w *Window) Close() {
	w.Unprepare()
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.reg.Unregister(w.client)
}

// Handle returns the platform window presenting the video, or zero.
func (w *Window) Handle() platform.Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handle
}

// OutputRect returns the video rectangle inside the window.
func (w *Window) OutputRect() image.Rectangle {
	p, err := w.proxy()
	if err != nil {
		return image.Rectangle{}
	}
	return p.SwapChain().OutputRect()
}

// SetBuffer renders frame. A nil frame re-renders the last one.
func (w *Window) SetBuffer(frame *video.Frame) error {
	p, err := w.proxy()
	if err != nil {
		return err
	}
	return p.SetBuffer(frame)
}

// Present shows the last rendered frame.
func (w *Window) Present() error {
	p, err := w.proxy()
	if err != nil {
		return err
	}
	return p.Present()
}

// Expose redraws the last frame.
func (w *Window) Expose() error {
	p, err := w.proxy()
	if err != nil {
		return err
	}
	return p.Expose()
}

// Resize resizes the swap chain for a width×height client area. Embedding
// applications call it when they handle resizes of their window.
func (w *Window) Resize(width, height int) error {
	p, err := w.proxy()
	if err != nil {
		return err
	}
	return p.ResizeBuffer(width, height)
}

// Unlock cancels blocking calls with StatusFlushing until UnlockStop.
func (w *Window) Unlock() {
	w.reg.Unlock(w.client)
}

// UnlockStop ends flushing.
func (w *Window) UnlockStop() {
	w.reg.UnlockStop(w.client)
}

// apply re-renders the last frame when requested and a window exists.
func (w *Window) apply(op string, now bool) {
	if !now {
		return
	}
	p, err := w.proxy()
	if err != nil {
		return
	}
	if err := p.Expose(); err != nil {
		logging.Logger().Warn("vsink: apply "+op, "err", err)
	}
}

// SetRenderRect places the video inside the window. An empty r uses the
// whole window.
func (w *Window) SetRenderRect(r image.Rectangle, apply bool) {
	w.mu.Lock()
	w.renderRect = r
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		if err := p.SetRenderRect(r); err != nil {
			logging.Logger().Warn("vsink: set render rect", "err", err)
		}
	}
	w.apply("render rect", apply)
}

// SetForceAspectRatio toggles letterboxing.
func (w *Window) SetForceAspectRatio(on bool, apply bool) {
	w.mu.Lock()
	w.forceAspect = on
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		p.SwapChain().SetForceAspectRatio(on)
	}
	w.apply("force aspect ratio", apply)
}

// SetOrientation sets the output transform.
func (w *Window) SetOrientation(o video.Orientation, apply bool) {
	w.mu.Lock()
	w.orientation = o
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		p.SwapChain().SetOrientation(o)
	}
	w.apply("orientation", apply)
}

// SetTitle sets the caption of a private window.
func (w *Window) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		if err := p.SetTitle(title); err != nil {
			logging.Logger().Warn("vsink: set title", "err", err)
		}
	}
}

// SetFullscreen requests fullscreen for a private window.
func (w *Window) SetFullscreen(on bool) {
	w.mu.Lock()
	w.fullscreen = on
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		if err := p.SetFullscreen(on); err != nil {
			logging.Logger().Warn("vsink: set fullscreen", "on", on, "err", err)
		}
	}
}

// EnableFullscreenOnAltEnter toggles the Alt+Return fullscreen shortcut of
// a private window.
func (w *Window) EnableFullscreenOnAltEnter(on bool) {
	w.mu.Lock()
	w.altEnter = on
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		p.EnableFullscreenOnAltEnter(on)
	}
}

// SetMSAA sets the multisampling mode. Unsupported sample counts degrade.
func (w *Window) SetMSAA(m swapchain.MSAAMode) {
	w.mu.Lock()
	w.msaa = m
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		if err := p.SwapChain().SetMSAA(m); err != nil {
			logging.Logger().Warn("vsink: set msaa", "mode", m, "err", err)
		}
	}
}

// SetOverlayMode selects the overlay notification handles.
func (w *Window) SetOverlayMode(m swapchain.OverlayMode) {
	w.mu.Lock()
	w.overlay = m
	w.mu.Unlock()
	if p, err := w.proxy(); err == nil {
		p.SwapChain().SetOverlayMode(m)
	}
}
