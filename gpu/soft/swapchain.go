// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vsink/gpu"
	"github.com/gogpu/vsink/platform"
)

// SwapChain presents back buffers to a platform surface.
type SwapChain struct {
	dev     *Device
	surface platform.Surface

	mu         sync.Mutex
	desc       gpu.SwapChainDesc
	buffers    []*Texture
	current    int
	presents   int
	resizes    int
	noShortcut bool
	released   bool
}

// Ensure SwapChain implements gpu.SwapChain.
var _ gpu.SwapChain = (*SwapChain)(nil)

func (s *SwapChain) allocBuffers() {
	s.buffers = make([]*Texture, s.desc.BufferCount)
	for i := range s.buffers {
		s.buffers[i] = newTexture(s.dev, gpu.TextureDesc{
			Label:       fmt.Sprintf("backbuffer-%d", i),
			Width:       s.desc.Width,
			Height:      s.desc.Height,
			Format:      s.desc.Format,
			SampleCount: 1,
		}, gpu.StatePresent)
	}
	s.current = 0
}

// Desc returns the current description.
func (s *SwapChain) Desc() gpu.SwapChainDesc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// Buffer returns a referenced back buffer.
func (s *SwapChain) Buffer(i int) (gpu.Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, fmt.Errorf("%w: swap chain released", gpu.ErrInvalidCall)
	}
	if i < 0 || i >= len(s.buffers) {
		return nil, fmt.Errorf("%w: buffer index %d", gpu.ErrInvalidCall, i)
	}
	b := s.buffers[i]
	b.refs.Add(1)
	return b, nil
}

// CurrentBackBufferIndex returns the buffer the next frame renders into.
func (s *SwapChain) CurrentBackBufferIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ResizeBuffers recreates the buffers. Every reference obtained from Buffer
// must have been released.
func (s *SwapChain) ResizeBuffers(count, width, height int, format gputypes.TextureFormat) error {
	if err := s.dev.Removed(); err != nil {
		return err
	}
	if _, _, err := s.surface.Size(); err != nil {
		return fmt.Errorf("%w: %v", gpu.ErrSurfaceLost, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("%w: swap chain released", gpu.ErrInvalidCall)
	}
	for i, b := range s.buffers {
		if b.refs.Load() > 0 {
			return fmt.Errorf("%w: back buffer %d still referenced", gpu.ErrInvalidCall, i)
		}
	}
	if count == 0 {
		count = s.desc.BufferCount
	}
	if format == gputypes.TextureFormatUndefined {
		format = s.desc.Format
	}
	s.desc = gpu.SwapChainDesc{
		Width:       max(width, 1),
		Height:      max(height, 1),
		Format:      format,
		BufferCount: count,
	}
	s.allocBuffers()
	s.resizes++
	return nil
}

// Present queues a blit of the current back buffer after all submitted work.
func (s *SwapChain) Present(p gpu.PresentParams) error {
	if err := s.dev.Removed(); err != nil {
		return err
	}
	if _, _, err := s.surface.Size(); err != nil {
		return fmt.Errorf("%w: %v", gpu.ErrSurfaceLost, err)
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return fmt.Errorf("%w: swap chain released", gpu.ErrInvalidCall)
	}
	buf := s.buffers[s.current]
	s.current = (s.current + 1) % len(s.buffers)
	s.presents++
	s.mu.Unlock()

	var dirty []image.Rectangle
	if !p.Full {
		dirty = append(dirty, p.Dirty...)
	}
	surface := s.surface
	return s.dev.queue.enqueue(op{run: func() {
		if buf.state != gpu.StatePresent {
			s.dev.validations.Add(1)
		}
		_ = surface.Blit(buf.img, dirty)
	}})
}

// DisableFullscreenShortcut records that the shortcut is disabled.
func (s *SwapChain) DisableFullscreenShortcut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noShortcut = true
	return nil
}

// FullscreenShortcutDisabled reports whether DisableFullscreenShortcut ran.
func (s *SwapChain) FullscreenShortcutDisabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noShortcut
}

// Presents returns the number of successful Present calls.
func (s *SwapChain) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// Resizes returns the number of successful ResizeBuffers calls.
func (s *SwapChain) Resizes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resizes
}

// Release releases the swap chain.
func (s *SwapChain) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}
