// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package windowing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/vsink/internal/handshake"
	"github.com/gogpu/vsink/internal/logging"
	"github.com/gogpu/vsink/platform"
	"github.com/gogpu/vsink/status"
	"github.com/gogpu/vsink/swapchain"
)

// ProxyID identifies a proxy within its client. Zero is never issued.
type ProxyID uint64

// ErrUnregistered is returned for calls on a client after Unregister.
var ErrUnregistered = errors.New("windowing: client unregistered")

// Client is one sink instance registered with a Registry. A client owns at
// most one proxy; creating a new window supersedes the previous one.
type Client struct {
	reg      *Registry
	listener Listener
	opts     []swapchain.Option

	// Guarded by reg.mu.
	registered    bool
	nextID        ProxyID
	proxy         *Proxy
	flushing      bool
	slot          *handshake.Slot[*Proxy]
	pendingParent platform.Handle
	pendingID     handshake.ID
}

type parentState struct {
	unwatch func()
	proxies map[*Proxy]struct{}
}

// Registry tracks the windows created for every client on one display and
// routes their events. Its lock is never held while calling into a proxy,
// a swap chain, a listener or the display.
type Registry struct {
	display platform.Display

	mu      sync.Mutex
	clients map[*Client]struct{}
	windows map[platform.Handle]*Proxy
	parents map[platform.Handle]*parentState
}

// NewRegistry returns an empty registry for d. Most callers use Shared;
// tests create their own.
func NewRegistry(d platform.Display) *Registry {
	return &Registry{
		display: d,
		clients: make(map[*Client]struct{}),
		windows: make(map[platform.Handle]*Proxy),
		parents: make(map[platform.Handle]*parentState),
	}
}

var (
	sharedMu sync.Mutex
	shared   = make(map[platform.Display]*Registry)
)

// Shared returns the process-wide registry for d, creating it on first use.
func Shared(d platform.Display) *Registry {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	r, ok := shared[d]
	if !ok {
		r = NewRegistry(d)
		shared[d] = r
	}
	return r
}

// Display returns the display the registry is bound to.
func (r *Registry) Display() platform.Display { return r.display }

// Register adds a client. Events of its windows go to l, which may be nil.
// opts configure every swap chain created for the client.
func (r *Registry) Register(l Listener, opts ...swapchain.Option) *Client {
	if l == nil {
		l = nopListener{}
	}
	c := &Client{
		reg:        r,
		listener:   l,
		opts:       opts,
		registered: true,
	}
	c.slot = handshake.New[*Proxy](&r.mu)

	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	return c
}

// Unregister releases the client's proxy and removes the client.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	if !c.registered {
		r.mu.Unlock()
		return
	}
	c.registered = false
	c.flushing = true
	c.slot.Wake()
	delete(r.clients, c)
	p := c.proxy
	if p != nil {
		r.detachLocked(p)
	}
	r.mu.Unlock()

	if p != nil {
		p.release(true)
	}
}

// detachLocked removes p from every index. The caller releases it.
func (r *Registry) detachLocked(p *Proxy) {
	if r.windows[p.handle] == p {
		delete(r.windows, p.handle)
	}
	if ps := r.parents[p.parent]; ps != nil {
		delete(ps.proxies, p)
	}
	if p.client.proxy == p {
		p.client.proxy = nil
	}
}

// CreateChildWindow creates a swap chain surface inside the external window
// parent and returns the new proxy's id. Creation runs on the thread owning
// parent; the caller blocks until it completes, the client is flushed
// (status.ErrFlushing), the parent is destroyed or ctx ends
// (status.ErrClosed).
//
// In direct mode no child window is created; the swap chain binds to parent
// itself, replacing any other direct proxy on it.
func (r *Registry) CreateChildWindow(ctx context.Context, c *Client, parent platform.Handle, direct bool) (ProxyID, error) {
	if parent == 0 {
		return 0, fmt.Errorf("%w: no parent window", status.ErrClosed)
	}

	r.mu.Lock()
	if !c.registered {
		r.mu.Unlock()
		return 0, ErrUnregistered
	}
	if c.flushing {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: window creation", status.ErrFlushing)
	}
	// Nothing is detached unless the handshake can start.
	hid, err := c.slot.Begin()
	if err != nil {
		r.mu.Unlock()
		return 0, fmt.Errorf("windowing: %w", err)
	}
	var stale []*Proxy
	if c.proxy != nil {
		stale = append(stale, c.proxy)
		r.detachLocked(c.proxy)
	}
	if ps := r.parents[parent]; direct && ps != nil {
		for p := range ps.proxies {
			if p.direct {
				stale = append(stale, p)
				r.detachLocked(p)
			}
		}
	}
	c.nextID++
	pid := c.nextID
	c.pendingParent = parent
	c.pendingID = hid
	r.mu.Unlock()

	for _, p := range stale {
		p.release(true)
	}

	err = r.display.Post(parent, func() { r.createChild(c, hid, pid, parent, direct) })
	if err != nil {
		r.mu.Lock()
		c.slot.Abandon(hid)
		c.pendingParent, c.pendingID = 0, 0
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %v", status.ErrClosed, err)
	}

	stop := context.AfterFunc(ctx, func() {
		r.mu.Lock()
		c.slot.Wake()
		r.mu.Unlock()
	})
	defer stop()

	r.mu.Lock()
	p, err := c.slot.Wait(hid, func() error {
		if c.flushing {
			return fmt.Errorf("%w: window creation", status.ErrFlushing)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", status.ErrClosed, err)
		}
		return nil
	})
	if c.pendingID == hid {
		c.pendingParent, c.pendingID = 0, 0
	}
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}

	logging.Logger().Info("windowing: child window created",
		"parent", parent, "handle", p.handle, "direct", direct)
	return p.id, nil
}

// createChild runs on the thread owning parent.
func (r *Registry) createChild(c *Client, hid handshake.ID, pid ProxyID, parent platform.Handle, direct bool) {
	d := r.display
	fail := func(err error) {
		r.mu.Lock()
		c.slot.Complete(hid, nil, fmt.Errorf("%w: %v", status.ErrClosed, err))
		r.mu.Unlock()
	}

	h := parent
	if !direct {
		child, err := d.CreateChild(parent, r.onWindowEvent)
		if err != nil {
			fail(err)
			return
		}
		h = child
	}
	surface, err := d.Surface(h)
	if err != nil {
		if !direct {
			_ = d.Destroy(h)
		}
		fail(err)
		return
	}

	r.mu.Lock()
	watched := r.parents[parent] != nil
	r.mu.Unlock()
	var unwatch func()
	if !watched {
		unwatch, err = d.Watch(parent, r.onParentEvent)
		if err != nil {
			if !direct {
				_ = d.Destroy(h)
			}
			fail(err)
			return
		}
	}

	p := newProxy(r, c, pid, platform.KindEmbedded, direct, h, parent, surface)
	p.state = StateBound

	r.mu.Lock()
	ps := r.parents[parent]
	if ps == nil {
		ps = &parentState{unwatch: unwatch, proxies: make(map[*Proxy]struct{})}
		r.parents[parent] = ps
		unwatch = nil
	}
	ok := c.registered && c.slot.Complete(hid, p, nil)
	if ok {
		c.proxy = p
		ps.proxies[p] = struct{}{}
		if !direct {
			r.windows[h] = p
		}
	}
	r.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	if !ok {
		logging.Logger().Debug("windowing: discarding window of abandoned request", "handle", h)
		if !direct {
			_ = d.Destroy(h)
		}
	}
}

// CreateInternalWindow creates a top-level window owned by the calling
// goroutine, which must then pump it with the display's Run.
func (r *Registry) CreateInternalWindow(c *Client, cfg platform.WindowConfig) (ProxyID, platform.Handle, error) {
	r.mu.Lock()
	if !c.registered {
		r.mu.Unlock()
		return 0, 0, ErrUnregistered
	}
	stale := c.proxy
	if stale != nil {
		r.detachLocked(stale)
	}
	c.nextID++
	pid := c.nextID
	r.mu.Unlock()

	if stale != nil {
		stale.release(true)
	}

	h, err := r.display.CreateWindow(cfg, r.onWindowEvent)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", status.ErrClosed, err)
	}
	surface, err := r.display.Surface(h)
	if err != nil {
		_ = r.display.Destroy(h)
		return 0, 0, fmt.Errorf("%w: %v", status.ErrClosed, err)
	}

	p := newProxy(r, c, pid, platform.KindOwned, false, h, 0, surface)
	p.state = StateBound

	r.mu.Lock()
	c.proxy = p
	r.windows[h] = p
	r.mu.Unlock()

	logging.Logger().Info("windowing: window created", "handle", h, "title", cfg.Title)
	return pid, h, nil
}

// Proxy resolves id for c. It fails if the proxy was released or replaced.
func (r *Registry) Proxy(c *Client, id ProxyID) (*Proxy, bool) {
	r.mu.Lock()
	p := c.proxy
	r.mu.Unlock()
	if p == nil || p.id != id || p.State() != StateBound {
		return nil, false
	}
	return p, true
}

// ReleaseProxy releases c's proxy id and destroys its window, unless the
// window belongs to the application.
func (r *Registry) ReleaseProxy(c *Client, id ProxyID) {
	r.mu.Lock()
	p := c.proxy
	if p == nil || p.id != id {
		r.mu.Unlock()
		return
	}
	r.detachLocked(p)
	r.mu.Unlock()
	p.release(true)
}

// Unlock makes blocking calls of c return status.ErrFlushing until
// UnlockStop.
func (r *Registry) Unlock(c *Client) {
	r.mu.Lock()
	c.flushing = true
	c.slot.Wake()
	r.mu.Unlock()
}

// UnlockStop ends flushing for c.
func (r *Registry) UnlockStop(c *Client) {
	r.mu.Lock()
	if c.registered {
		c.flushing = false
	}
	r.mu.Unlock()
}

// ForwardMessage relays an event of the external parent to every proxy
// embedded in it.
func (r *Registry) ForwardMessage(parent platform.Handle, ev platform.Event) {
	r.mu.Lock()
	var targets []*Proxy
	if ps := r.parents[parent]; ps != nil {
		for p := range ps.proxies {
			targets = append(targets, p)
		}
	}
	r.mu.Unlock()

	for _, p := range targets {
		p.onParentEvent(ev)
	}
}

// OnParentDestroyed releases every proxy embedded in parent and fails
// pending creations on it with status.ErrClosed.
func (r *Registry) OnParentDestroyed(parent platform.Handle) {
	r.mu.Lock()
	ps := r.parents[parent]
	delete(r.parents, parent)
	var released []*Proxy
	if ps != nil {
		for p := range ps.proxies {
			released = append(released, p)
			r.detachLocked(p)
		}
	}
	for c := range r.clients {
		if c.pendingParent == parent && c.slot.Pending() {
			c.slot.Complete(c.pendingID, nil, fmt.Errorf("%w: parent window destroyed", status.ErrClosed))
		}
	}
	r.mu.Unlock()

	for _, p := range released {
		p.release(false)
	}
	if ps != nil && ps.unwatch != nil {
		ps.unwatch()
	}
	if len(released) > 0 {
		logging.Logger().Info("windowing: parent window destroyed", "parent", parent, "proxies", len(released))
	}
}

// onWindowEvent receives events of windows the registry created.
func (r *Registry) onWindowEvent(h platform.Handle, ev platform.Event) {
	r.mu.Lock()
	p := r.windows[h]
	r.mu.Unlock()
	if p == nil {
		return
	}

	switch ev.(type) {
	case platform.CloseEvent:
		if p.kind == platform.KindOwned {
			logging.Logger().Info("windowing: window closed by user", "handle", h)
			_ = r.display.Destroy(h)
		}
	case platform.DestroyEvent:
		r.mu.Lock()
		r.detachLocked(p)
		r.mu.Unlock()
		p.release(false)
	default:
		p.onEvent(ev)
	}
}

// onParentEvent receives events of watched external parents.
func (r *Registry) onParentEvent(h platform.Handle, ev platform.Event) {
	if _, ok := ev.(platform.DestroyEvent); ok {
		r.OnParentDestroyed(h)
		return
	}
	r.ForwardMessage(h, ev)
}
