package vsink

import (
	"github.com/gogpu/vsink/swapchain"
	"github.com/gogpu/vsink/windowing"
)

// KeyEvent is a keyboard navigation event.
type KeyEvent = windowing.KeyEvent

// MouseEvent is a pointer navigation event in source video coordinates.
type MouseEvent = windowing.MouseEvent

// OverlayContext carries the GPU handles of a frame while it can still be
// drawn to.
type OverlayContext = swapchain.OverlayContext

// EventHandler receives the notifications of a Window. Key, Mouse and
// Fullscreen are called on the UI thread; Overlay on the thread rendering
// the frame, with the swap chain locked.
type EventHandler interface {
	Key(ev KeyEvent)
	Mouse(ev MouseEvent)
	Fullscreen(on bool)
	Overlay(ctx OverlayContext)
}

// EventFuncs adapts optional functions to an EventHandler.
type EventFuncs struct {
	OnKey        func(KeyEvent)
	OnMouse      func(MouseEvent)
	OnFullscreen func(bool)
	OnOverlay    func(OverlayContext)
}

func (f EventFuncs) Key(ev KeyEvent) {
	if f.OnKey != nil {
		f.OnKey(ev)
	}
}

func (f EventFuncs) Mouse(ev MouseEvent) {
	if f.OnMouse != nil {
		f.OnMouse(ev)
	}
}

func (f EventFuncs) Fullscreen(on bool) {
	if f.OnFullscreen != nil {
		f.OnFullscreen(on)
	}
}

func (f EventFuncs) Overlay(ctx OverlayContext) {
	if f.OnOverlay != nil {
		f.OnOverlay(ctx)
	}
}
