// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/gogpu/vsink/platform"
)

// doubleClickTime is the longest interval between two presses of one
// button reported as a double click, in server milliseconds.
const doubleClickTime = 400

var modifierMasks = []struct {
	mask uint16
	mod  platform.Modifiers
}{
	{xproto.KeyButMaskShift, platform.ModShift},
	{xproto.KeyButMaskLock, platform.ModLock},
	{xproto.KeyButMaskControl, platform.ModControl},
	{xproto.KeyButMaskMod1, platform.ModAlt},
	{xproto.KeyButMaskMod4, platform.ModSuper},
	{xproto.KeyButMaskButton1, platform.ModButton1},
	{xproto.KeyButMaskButton2, platform.ModButton2},
	{xproto.KeyButMaskButton3, platform.ModButton3},
	{xproto.KeyButMaskButton4, platform.ModButton4},
	{xproto.KeyButMaskButton5, platform.ModButton5},
}

// modifiers converts an X key/button state mask.
func modifiers(state uint16) platform.Modifiers {
	var m platform.Modifiers
	for _, mm := range modifierMasks {
		if state&mm.mask != 0 {
			m |= mm.mod
		}
	}
	return m
}

// clickTracker detects double clicks.
type clickTracker struct {
	button int
	time   xproto.Timestamp
}

// press records a button press and reports whether it completes a double
// click. A double click resets the tracker so a third press is single.
func (c *clickTracker) press(button int, t xproto.Timestamp) bool {
	double := c.button == button && t-c.time <= doubleClickTime
	if double {
		*c = clickTracker{}
	} else {
		c.button, c.time = button, t
	}
	return double
}

// buttonEvent maps an X button press or release. Buttons 4 to 7 are wheel
// steps and only their press is reported, as a scroll.
func buttonEvent(detail xproto.Button, press bool, x, y int16, state uint16) (platform.MouseEvent, bool) {
	ev := platform.MouseEvent{X: float64(x), Y: float64(y), Modifiers: modifiers(state)}
	switch detail {
	case 4, 5, 6, 7:
		if !press {
			return ev, false
		}
		ev.Action = platform.MouseScroll
		switch detail {
		case 4:
			ev.DeltaY = 1
		case 5:
			ev.DeltaY = -1
		case 6:
			ev.DeltaX = -1
		case 7:
			ev.DeltaX = 1
		}
		return ev, true
	}
	ev.Button = int(detail)
	ev.Action = platform.MouseButtonRelease
	if press {
		ev.Action = platform.MouseButtonPress
	}
	return ev, true
}

// connect installs the X event callbacks of w. d.mu may be held.
func (d *Display) connect(w *window) {
	id := w.xw.Id
	xu := d.xu

	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if ev.Window != id {
			return
		}
		width, height := int(ev.Width), int(ev.Height)
		d.mu.Lock()
		changed := width != w.width || height != w.height
		w.width, w.height = width, height
		d.mu.Unlock()
		if changed {
			d.dispatch(w, platform.ResizeEvent{Width: width, Height: height})
		}
	}).Connect(xu, id)

	xevent.ExposeFun(func(_ *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count == 0 {
			d.dispatch(w, platform.ExposeEvent{})
		}
	}).Connect(xu, id)

	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if ev.Window != id || !w.external {
			return
		}
		// A foreign parent went away.
		_ = d.Destroy(w.h)
	}).Connect(xu, id)

	key := func(action platform.KeyAction, code xproto.Keycode, state uint16) {
		d.dispatch(w, platform.KeyEvent{
			Action:    action,
			Key:       keybind.LookupString(xu, state, code),
			Modifiers: modifiers(state),
		})
	}
	xevent.KeyPressFun(func(_ *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		key(platform.KeyPress, ev.Detail, ev.State)
	}).Connect(xu, id)
	xevent.KeyReleaseFun(func(_ *xgbutil.XUtil, ev xevent.KeyReleaseEvent) {
		key(platform.KeyRelease, ev.Detail, ev.State)
	}).Connect(xu, id)

	xevent.ButtonPressFun(func(_ *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		mev, ok := buttonEvent(ev.Detail, true, ev.EventX, ev.EventY, ev.State)
		if !ok {
			return
		}
		if mev.Action == platform.MouseButtonPress {
			d.mu.Lock()
			double := w.clicks.press(mev.Button, ev.Time)
			d.mu.Unlock()
			if double {
				mev.Action = platform.MouseDoubleClick
			}
		}
		d.dispatch(w, mev)
	}).Connect(xu, id)
	xevent.ButtonReleaseFun(func(_ *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		if mev, ok := buttonEvent(ev.Detail, false, ev.EventX, ev.EventY, ev.State); ok {
			d.dispatch(w, mev)
		}
	}).Connect(xu, id)

	xevent.MotionNotifyFun(func(_ *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		d.dispatch(w, platform.MouseEvent{
			Action:    platform.MouseMove,
			X:         float64(ev.EventX),
			Y:         float64(ev.EventY),
			Modifiers: modifiers(ev.State),
		})
	}).Connect(xu, id)
}
