// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package video describes the frames a sink presents: stream information,
// per-frame metadata such as crop hints and overlay rectangles, and the
// geometry helpers shared by the swap chain and input translation
// (orientation transforms and the letterbox centering formula).
package video
