// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package soft implements the gpu capabilities on the CPU.
//
// A Device owns one command queue served by a worker goroutine, so submitted
// work completes asynchronously and in order, exactly like a hardware queue
// observed through fence values. Textures are RGBA images; draw passes run
// on the worker against texture memory. Swap chains blit their back buffers
// to platform surfaces in presentation order.
//
// The device also exposes controls that hardware does not: Suspend holds the
// queue to make in-flight work observable, Remove simulates device loss, and
// WithQualityLevels configures which MSAA sample counts are reported.
package soft
