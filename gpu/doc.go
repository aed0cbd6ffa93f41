// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu declares the narrow set of GPU capabilities the sink needs to
// present video: a device with a single command queue, fences observed as
// monotonically increasing values, reusable command allocators and command
// lists, textures, and swap chains bound to platform surfaces.
//
// Key principle: the sink RECEIVES the device from the host, it does NOT
// create one. A Device is also a gpucontext.DeviceProvider so that it can be
// shared with other gogpu components, and so that overlay listeners receive
// a standard provider for interop drawing.
//
// The software implementation lives in gpu/soft.
package gpu
