package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/vsink"
	"github.com/gogpu/vsink/config"
	"github.com/gogpu/vsink/gpu/soft"
	"github.com/gogpu/vsink/internal/testsrc"
	"github.com/gogpu/vsink/platform"
	"github.com/gogpu/vsink/platform/headless"
	"github.com/gogpu/vsink/platform/x11"
	"github.com/gogpu/vsink/windowing"
)

type playFlags struct {
	display string
	width   int
	height  int
	fps     int
	frames  int
	parent  uint64
	direct  bool
	counter bool
}

func newPlayCmd() *cobra.Command {
	var f playFlags
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Open a window and play the test pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(cmd.Flag("log-level").Value.String())
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			vsink.SetLogger(logger)

			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, f, s)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.display, "display", "", `X11 display name, or "headless"`)
	fl.IntVar(&f.width, "width", 640, "video width")
	fl.IntVar(&f.height, "height", 360, "video height")
	fl.IntVar(&f.fps, "fps", 30, "frame rate")
	fl.IntVar(&f.frames, "frames", 0, "frames to play, 0 plays until the window closes")
	fl.Uint64Var(&f.parent, "parent", 0, "X11 window to embed into")
	fl.BoolVar(&f.direct, "direct", false, "render into the parent window itself")
	fl.BoolVar(&f.counter, "counter", true, "draw the frame number")
	settingFlags(fl)
	return cmd
}

// openDisplay returns the display named by name and a function closing it.
func openDisplay(name string) (platform.Display, func(), error) {
	if name == "headless" {
		return headless.New(), func() {}, nil
	}
	d, err := x11.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open display: %w", err)
	}
	return d, d.Close, nil
}

func play(ctx context.Context, f playFlags, s config.Settings) error {
	if f.fps <= 0 {
		return fmt.Errorf("fps %d must be positive", f.fps)
	}
	display, closeDisplay, err := openDisplay(f.display)
	if err != nil {
		return err
	}
	defer closeDisplay()

	dev := soft.New(soft.WithLabel("vsinkplay"), soft.WithSurfaceFormat(s.TextureFormat()))
	defer dev.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	win := vsink.New(display,
		vsink.WithSettings(s),
		vsink.WithEventHandler(handler(cancel)))
	defer win.Close()

	if err := win.Open(dev, f.width, f.height, platform.Handle(f.parent), f.direct); err != nil {
		return fmt.Errorf("open window: %w", err)
	}
	opts := []testsrc.Option{testsrc.WithRate(f.fps)}
	if f.counter {
		opts = append(opts, testsrc.WithCounter())
	}
	src := testsrc.New(f.width, f.height, opts...)
	if err := win.Prepare(dev, f.width, f.height, src.Info(), s.ConverterConfig(), s.TextureFormat()); err != nil {
		return fmt.Errorf("prepare window: %w", err)
	}
	slog.Info("vsinkplay: playing", "size", fmt.Sprintf("%dx%d", f.width, f.height), "fps", f.fps, "output", win.OutputRect())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return produce(gctx, win, src, f.frames)
	})
	g.Go(func() error {
		<-gctx.Done()
		// Abort a window creation still waiting on its handshake.
		win.Unlock()
		return nil
	})
	return g.Wait()
}

// produce renders frames at the source rate until ctx ends, the window
// closes or frames have been shown.
func produce(ctx context.Context, win *vsink.Window, src *testsrc.Source, frames int) error {
	ticker := time.NewTicker(src.Interval())
	defer ticker.Stop()

	start := time.Now()
	for n := 0; frames == 0 || n < frames; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		err := win.SetBuffer(src.Next())
		if err == nil {
			err = win.Present()
		}
		switch vsink.StatusOf(err) {
		case vsink.StatusOK:
		case vsink.StatusClosed:
			slog.Info("vsinkplay: window closed", "frames", n)
			return nil
		case vsink.StatusFlushing:
			return nil
		default:
			return fmt.Errorf("frame %d: %w", n, err)
		}
	}
	slog.Info("vsinkplay: done", "frames", frames, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// marker is drawn in the top-left corner of the video by the overlay.
var marker = color.RGBA{R: 0xff, A: 0xff}

func handler(quit context.CancelFunc) vsink.EventHandler {
	return vsink.EventFuncs{
		OnKey: func(ev vsink.KeyEvent) {
			slog.Debug("vsinkplay: key", "event", ev.Event, "key", ev.Key, "mods", ev.Modifiers)
			if ev.Event == windowing.EventKeyPress && (ev.Key == "q" || ev.Key == "Escape") {
				quit()
			}
		},
		OnMouse: func(ev vsink.MouseEvent) {
			if ev.Event != windowing.EventMouseMove {
				slog.Debug("vsinkplay: mouse", "event", ev.Event, "button", ev.Button, "x", ev.X, "y", ev.Y)
			}
		},
		OnFullscreen: func(on bool) {
			slog.Info("vsinkplay: fullscreen", "on", on)
		},
		OnOverlay: func(ctx vsink.OverlayContext) {
			if ctx.DrawContext == nil || ctx.Target == nil {
				return
			}
			vp := ctx.Viewport
			r := image.Rect(vp.Min.X, vp.Min.Y, vp.Min.X+16, vp.Min.Y+16).Intersect(vp)
			if !r.Empty() {
				ctx.DrawContext.ClearRenderTarget(ctx.Target, marker, r)
			}
		},
	}
}
