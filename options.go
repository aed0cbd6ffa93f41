package vsink

import (
	"time"

	"github.com/gogpu/vsink/config"
	"github.com/gogpu/vsink/convert"
	"github.com/gogpu/vsink/overlay"
	"github.com/gogpu/vsink/windowing"
)

// DefaultCreateTimeout bounds how long Open waits for a window.
const DefaultCreateTimeout = 10 * time.Second

// Option configures a Window during creation.
//
// Example:
//
//	w := vsink.New(display,
//	    vsink.WithSettings(settings),
//	    vsink.WithEventHandler(vsink.EventFuncs{OnKey: onKey}))
type Option func(*options)

type options struct {
	registry      *windowing.Registry
	converter     convert.Factory
	compositor    overlay.Factory
	handler       EventHandler
	settings      config.Settings
	createTimeout time.Duration
}

func defaultOptions() options {
	return options{
		converter:     convert.NewSoft,
		compositor:    overlay.NewSoft,
		handler:       EventFuncs{},
		settings:      config.Default(),
		createTimeout: DefaultCreateTimeout,
	}
}

// WithRegistry uses r instead of the shared registry of the display.
// Tests pass their own registry.
func WithRegistry(r *windowing.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithConverterFactory sets the frame converter factory.
func WithConverterFactory(f convert.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.converter = f
		}
	}
}

// WithCompositorFactory sets the overlay compositor factory.
func WithCompositorFactory(f overlay.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.compositor = f
		}
	}
}

// WithEventHandler sets the receiver of window notifications.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		if h != nil {
			o.handler = h
		}
	}
}

// WithSettings sets the initial window settings.
func WithSettings(s config.Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithCreateTimeout bounds window creation in Open. Zero waits until the
// window exists, Unlock is called or the parent is destroyed.
func WithCreateTimeout(d time.Duration) Option {
	return func(o *options) {
		o.createTimeout = d
	}
}
