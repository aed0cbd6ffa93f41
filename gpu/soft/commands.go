// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	"github.com/gogpu/vsink/gpu"
)

// Allocator is a software command allocator. It counts the executions of
// lists recorded with it that are still in flight.
type Allocator struct {
	dev      *Device
	busy     atomic.Int32
	resets   atomic.Int64
	released atomic.Bool
}

// Ensure Allocator implements gpu.CommandAllocator.
var _ gpu.CommandAllocator = (*Allocator)(nil)

// Reset fails with gpu.ErrAllocatorInUse while the GPU still executes
// commands recorded with a.
func (a *Allocator) Reset() error {
	if a.busy.Load() > 0 {
		return gpu.ErrAllocatorInUse
	}
	a.resets.Add(1)
	return nil
}

// Resets returns how many times the allocator was reset.
func (a *Allocator) Resets() int64 { return a.resets.Load() }

// Release marks the allocator released.
func (a *Allocator) Release() { a.released.Store(true) }

// CommandList records closures executed by the queue worker.
type CommandList struct {
	dev    *Device
	alloc  *Allocator
	cmds   []func()
	closed bool
}

// Ensure CommandList implements gpu.CommandList.
var _ gpu.CommandList = (*CommandList)(nil)

// Reset reopens a closed list against alloc.
func (l *CommandList) Reset(alloc gpu.CommandAllocator) error {
	a, ok := alloc.(*Allocator)
	if !ok || a.dev != l.dev {
		return fmt.Errorf("%w: allocator from another device", gpu.ErrInvalidCall)
	}
	if !l.closed {
		return fmt.Errorf("%w: reset of open command list", gpu.ErrInvalidCall)
	}
	l.alloc = a
	l.cmds = l.cmds[:0]
	l.closed = false
	return nil
}

func (l *CommandList) record(fn func()) {
	if l.closed {
		l.dev.validations.Add(1)
		return
	}
	l.cmds = append(l.cmds, fn)
}

func texture(t gpu.Texture) *Texture {
	st, _ := t.(*Texture)
	return st
}

// ClearRenderTarget fills rects of t, or all of t, with c.
func (l *CommandList) ClearRenderTarget(t gpu.Texture, c color.Color, rects ...image.Rectangle) {
	st := texture(t)
	if st == nil {
		l.dev.validations.Add(1)
		return
	}
	rs := append([]image.Rectangle(nil), rects...)
	l.record(func() {
		if st.state != gpu.StateRenderTarget {
			l.dev.validations.Add(1)
		}
		src := image.NewUniform(c)
		if len(rs) == 0 {
			draw.Draw(st.img, st.img.Bounds(), src, image.Point{}, draw.Src)
			return
		}
		for _, r := range rs {
			draw.Draw(st.img, r.Intersect(st.img.Bounds()), src, image.Point{}, draw.Src)
		}
	})
}

// Barrier transitions t between states.
func (l *CommandList) Barrier(t gpu.Texture, before, after gpu.ResourceState) {
	st := texture(t)
	if st == nil {
		l.dev.validations.Add(1)
		return
	}
	l.record(func() {
		if st.state != before {
			l.dev.validations.Add(1)
		}
		st.state = after
	})
}

// Resolve copies the multisampled src into dst.
func (l *CommandList) Resolve(dst, src gpu.Texture) {
	sd, ss := texture(dst), texture(src)
	if sd == nil || ss == nil {
		l.dev.validations.Add(1)
		return
	}
	l.record(func() {
		if sd.state != gpu.StateResolveDest || ss.state != gpu.StateResolveSource {
			l.dev.validations.Add(1)
		}
		draw.Draw(sd.img, sd.img.Bounds(), ss.img, image.Point{}, draw.Src)
	})
}

// Draw runs pass against t's memory.
func (l *CommandList) Draw(t gpu.Texture, pass gpu.DrawPass) {
	st := texture(t)
	if st == nil || pass == nil {
		l.dev.validations.Add(1)
		return
	}
	l.record(func() {
		if st.state != gpu.StateRenderTarget {
			l.dev.validations.Add(1)
		}
		pass(st.img)
	})
}

// Close ends recording.
func (l *CommandList) Close() error {
	if l.closed {
		return fmt.Errorf("%w: command list already closed", gpu.ErrInvalidCall)
	}
	l.closed = true
	return nil
}

// Release drops recorded commands.
func (l *CommandList) Release() {
	l.cmds = nil
	l.closed = true
}
