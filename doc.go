// Package vsink presents decoded video frames through a GPU swap chain into
// a platform window.
//
// # Overview
//
// A Window is the object a video sink element holds. It either owns a
// private top-level window, pumped by its own UI thread, or embeds a
// surface inside a window supplied by the application. Frames flow through
// three calls on the producer's thread:
//
//	w := vsink.New(display)
//	if err := w.Open(dev, 1280, 720, 0, false); err != nil { ... }
//	if err := w.Prepare(dev, 1280, 720, info, convert.DefaultConfig(), 0); err != nil { ... }
//	for frame := range frames {
//	    if err := w.SetBuffer(frame); err != nil { ... }
//	    if err := w.Present(); err != nil { ... }
//	}
//	w.Close()
//
// # Status
//
// Every error maps to a Status with StatusOf. StatusClosed means the window
// went away and rendering should stop; StatusFlushing means Unlock
// cancelled the call; StatusError means the GPU device failed and the
// window must be reopened.
//
// # Architecture
//
//   - windowing: window proxies and the registry brokering window creation
//     between producer threads and UI threads
//   - swapchain: swap chain management, rendering and present pacing
//   - gpu, gpu/soft: GPU capabilities and a software implementation
//   - convert, overlay: frame converter and overlay compositor capabilities
//   - platform, platform/headless, platform/x11: window systems
//   - config: persistent settings
package vsink
