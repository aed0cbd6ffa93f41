// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package platform abstracts the window system a sink presents into.
//
// A Display owns platform window objects. Each window belongs to the
// goroutine (UI thread) that created it or, for child windows, to the thread
// owning their parent. Work that must run on that thread is scheduled with
// Post. Window events are delivered on the owning thread to the EventFunc
// given at creation, and to watchers installed on a parent with Watch.
//
// Implementations live in sub-packages: headless (in-memory, for tests and
// offscreen runs) and x11.
package platform

import (
	"errors"
	"image"
)

// Handle identifies a platform window. Zero is never a valid handle.
type Handle uintptr

// Kind distinguishes the two ways a sink can own a surface.
type Kind uint8

const (
	// KindOwned is a top-level window created and pumped by the sink's own
	// UI thread.
	KindOwned Kind = iota

	// KindEmbedded is a surface inside an externally supplied parent window,
	// either a child window or, in direct mode, the parent itself.
	KindEmbedded
)

func (k Kind) String() string {
	if k == KindEmbedded {
		return "embedded"
	}
	return "owned"
}

// Errors returned by Display implementations.
var (
	// ErrNoWindow is returned for handles that are unknown or destroyed.
	ErrNoWindow = errors.New("platform: no such window")

	// ErrWrongThread is returned when an operation that must run on the
	// thread owning a window is called elsewhere.
	ErrWrongThread = errors.New("platform: called off the owning thread")

	// ErrUnsupported is returned for operations a backend cannot perform.
	ErrUnsupported = errors.New("platform: unsupported operation")
)

// WindowConfig describes a top-level window to create.
type WindowConfig struct {
	Title  string
	X, Y   int
	Width  int
	Height int
}

// Placement is a saved window position and style, used to restore a window
// after leaving fullscreen.
type Placement struct {
	Rect  image.Rectangle
	Style uint32
}

// Display is a window system connection.
type Display interface {
	// CreateWindow creates a top-level window owned by the calling
	// goroutine. Events are delivered while that goroutine is inside Run.
	CreateWindow(cfg WindowConfig, fn EventFunc) (Handle, error)

	// CreateChild creates a child surface filling parent. It must be called
	// on the thread owning parent (see Post).
	CreateChild(parent Handle, fn EventFunc) (Handle, error)

	// Destroy destroys a window and its children. It must be called on the
	// owning thread. DestroyEvent is delivered before it returns.
	Destroy(h Handle) error

	// Run pumps events for h's thread until h is destroyed.
	Run(h Handle) error

	// Post schedules fn on the thread owning h. It never blocks on that
	// thread. ErrNoWindow is returned if h does not exist.
	Post(h Handle, fn func()) error

	// Watch installs fn as an observer of parent's events (resize, input,
	// destruction). Must be called on the thread owning parent. The returned
	// function removes the observer.
	Watch(parent Handle, fn EventFunc) (unwatch func(), err error)

	// ClientSize returns the drawable size of h.
	ClientSize(h Handle) (width, height int, err error)

	// Placement returns the window rectangle (relative to its parent for
	// child windows) and style.
	Placement(h Handle) (Placement, error)

	// SetPlacement moves/resizes h and restores its style.
	SetPlacement(h Handle, p Placement) error

	// SetFullscreen switches a top-level window in or out of fullscreen.
	SetFullscreen(h Handle, on bool) error

	// SetTitle sets the caption of a top-level window.
	SetTitle(h Handle, title string) error

	// Surface returns the presentation surface bound to h.
	Surface(h Handle) (Surface, error)
}

// Surface is the presentable area of a window. GPU swap chains are created
// against a Surface.
type Surface interface {
	Handle() Handle

	// Size returns the current drawable size. It fails with ErrNoWindow
	// once the window is gone.
	Size() (width, height int, err error)

	// Blit copies img to the window. Dirty, when non-empty, lists the only
	// regions that changed since the previous blit.
	Blit(img *image.RGBA, dirty []image.Rectangle) error
}
