package vsink

import (
	"log/slog"

	"github.com/gogpu/vsink/internal/logging"
)

// SetLogger configures the logger for vsink and all its sub-packages.
// By default, vsink produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by vsink:
//   - [slog.LevelDebug]: swap chain state (buffer sizes, fences, MSAA degradation)
//   - [slog.LevelInfo]: lifecycle (window created, UI thread started and stopped)
//   - [slog.LevelWarn]: a window closing during present or resize, release failures
//   - [slog.LevelError]: device removal and other fatal GPU errors
//
// Example:
//
//	vsink.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by vsink.
func Logger() *slog.Logger {
	return logging.Logger()
}
