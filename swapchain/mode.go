// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/vsink/gpu"
)

// MSAAMode selects the multisample count of the offscreen render target.
type MSAAMode uint8

const (
	MSAADisabled MSAAMode = iota
	MSAA2x
	MSAA4x
	MSAA8x
)

// Samples returns the sample count requested by m.
func (m MSAAMode) Samples() int {
	switch m {
	case MSAA2x:
		return 2
	case MSAA4x:
		return 4
	case MSAA8x:
		return 8
	default:
		return 1
	}
}

func (m MSAAMode) String() string {
	switch m {
	case MSAADisabled:
		return "disabled"
	case MSAA2x, MSAA4x, MSAA8x:
		return fmt.Sprintf("%dx", m.Samples())
	default:
		return fmt.Sprintf("MSAAMode(%d)", m)
	}
}

// ParseMSAAMode parses "disabled", "2x", "4x" or "8x".
func ParseMSAAMode(s string) (MSAAMode, error) {
	for _, m := range []MSAAMode{MSAADisabled, MSAA2x, MSAA4x, MSAA8x} {
		if m.String() == s {
			return m, nil
		}
	}
	return MSAADisabled, fmt.Errorf("swapchain: unknown msaa mode %q", s)
}

// OverlayMode selects which handles overlay listeners receive. Any
// non-zero mode enables the overlay notification and per-frame clearing.
type OverlayMode uint8

// OverlayNone disables overlay notifications.
const OverlayNone OverlayMode = 0

const (
	// OverlayGPU passes the command queue and the render target.
	OverlayGPU OverlayMode = 1 << iota

	// OverlayInterop passes the device for interop APIs and the target.
	OverlayInterop

	// OverlayDrawContext passes a command list that is still recording.
	OverlayDrawContext
)

var overlayNames = []struct {
	mode OverlayMode
	name string
}{
	{OverlayGPU, "gpu"},
	{OverlayInterop, "interop"},
	{OverlayDrawContext, "draw-context"},
}

func (m OverlayMode) String() string {
	if m == OverlayNone {
		return "none"
	}
	var parts []string
	for _, o := range overlayNames {
		if m&o.mode != 0 {
			parts = append(parts, o.name)
		}
	}
	return strings.Join(parts, "+")
}

// ParseOverlayMode parses "none" or a "+"-separated list of gpu, interop
// and draw-context.
func ParseOverlayMode(s string) (OverlayMode, error) {
	if s == "" || s == "none" {
		return OverlayNone, nil
	}
	var m OverlayMode
next:
	for _, part := range strings.Split(s, "+") {
		for _, o := range overlayNames {
			if o.name == part {
				m |= o.mode
				continue next
			}
		}
		return OverlayNone, fmt.Errorf("swapchain: unknown overlay mode %q", part)
	}
	return m, nil
}

// OverlayContext is handed to overlay listeners while the back buffer of
// the frame being rendered can still be drawn to. Fields not selected by
// the overlay mode are nil.
type OverlayContext struct {
	// Queue is the command queue presenting the frame. Work submitted to
	// it runs before the final state transition of Target.
	Queue gpu.CommandQueue

	// Target is the back buffer, in the render-target state.
	Target gpu.Texture

	// InteropDevice and InteropTarget serve listeners that draw through
	// another API sharing the device.
	InteropDevice gpucontext.DeviceProvider
	InteropTarget gpu.Texture

	// DrawContext records into the frame's own command list.
	DrawContext gpu.CommandList

	// Viewport is the output rectangle of the video inside Target.
	Viewport image.Rectangle
}

// OverlayFunc receives overlay notifications. It runs with the swap chain
// locked and must not call back into it.
type OverlayFunc func(ctx OverlayContext)
