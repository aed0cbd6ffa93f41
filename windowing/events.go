// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package windowing

import "github.com/gogpu/vsink/platform"

// Navigation event names.
const (
	EventKeyPress           = "key-press"
	EventKeyRelease         = "key-release"
	EventMouseMove          = "mouse-move"
	EventMouseButtonPress   = "mouse-button-press"
	EventMouseButtonRelease = "mouse-button-release"
	EventMouseDoubleClick   = "mouse-double-click"
	EventMouseScroll        = "mouse-scroll"
)

// KeyEvent is a keyboard navigation event.
type KeyEvent struct {
	Event     string
	Key       string
	Modifiers platform.Modifiers
}

// MouseEvent is a pointer navigation event. X and Y are in source video
// coordinates.
type MouseEvent struct {
	Event     string
	Button    int
	X, Y      float64
	DeltaX    float64
	DeltaY    float64
	Modifiers platform.Modifiers
}

// Listener receives the notifications of a client's proxies. Methods are
// called on the thread owning the window.
type Listener interface {
	Key(ev KeyEvent)
	Mouse(ev MouseEvent)
	Fullscreen(on bool)
}

// nopListener drops every notification.
type nopListener struct{}

func (nopListener) Key(KeyEvent)     {}
func (nopListener) Mouse(MouseEvent) {}
func (nopListener) Fullscreen(bool)  {}

func mouseEventName(a platform.MouseAction) string {
	switch a {
	case platform.MouseButtonPress:
		return EventMouseButtonPress
	case platform.MouseButtonRelease:
		return EventMouseButtonRelease
	case platform.MouseDoubleClick:
		return EventMouseDoubleClick
	case platform.MouseScroll:
		return EventMouseScroll
	default:
		return EventMouseMove
	}
}
