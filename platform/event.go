// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package platform

import "strings"

// EventFunc receives events for a window on the thread owning it.
type EventFunc func(h Handle, ev Event)

// Event is one of the concrete event types below.
type Event interface {
	event()
}

// ResizeEvent reports a new client area size.
type ResizeEvent struct {
	Width, Height int
}

// ExposeEvent reports that window content was damaged and must be redrawn.
type ExposeEvent struct{}

// CloseEvent reports a user request to close a top-level window.
type CloseEvent struct{}

// DestroyEvent reports that the window handle no longer exists.
type DestroyEvent struct{}

// KeyAction distinguishes key presses from releases.
type KeyAction uint8

const (
	KeyPress KeyAction = iota
	KeyRelease
)

// KeyEvent reports keyboard input. Key is the symbolic key name, such as
// "a", "Return" or "F11".
type KeyEvent struct {
	Action    KeyAction
	Key       string
	Modifiers Modifiers
}

// MouseAction identifies the kind of pointer event.
type MouseAction uint8

const (
	MouseMove MouseAction = iota
	MouseButtonPress
	MouseButtonRelease
	MouseDoubleClick
	MouseScroll
)

// MouseEvent reports pointer input in window coordinates. Button is
// 1-based; zero for move and scroll events.
type MouseEvent struct {
	Action    MouseAction
	Button    int
	X, Y      float64
	DeltaX    float64
	DeltaY    float64
	Modifiers Modifiers
}

func (ResizeEvent) event()  {}
func (ExposeEvent) event()  {}
func (CloseEvent) event()   {}
func (DestroyEvent) event() {}
func (KeyEvent) event()     {}
func (MouseEvent) event()   {}

// Modifiers is a set of keyboard and pointer button modifiers.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << iota
	ModLock
	ModControl
	ModAlt
	ModSuper
	ModButton1
	ModButton2
	ModButton3
	ModButton4
	ModButton5
)

var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{ModShift, "shift"},
	{ModLock, "lock"},
	{ModControl, "control"},
	{ModAlt, "alt"},
	{ModSuper, "super"},
	{ModButton1, "button1"},
	{ModButton2, "button2"},
	{ModButton3, "button3"},
	{ModButton4, "button4"},
	{ModButton5, "button5"},
}

// String returns the modifier names joined with "+".
func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, n := range modifierNames {
		if m&n.mod != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}
