// Package log provides the logging infrastructure for parley.
//
// Loggers are injected as dependencies, never used as globals. Each
// component receives a logger via its constructor and may add context
// with logger.With().
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Logger is a type alias for *slog.Logger.
// Using the standard library type directly keeps full compatibility
// with the slog ecosystem and avoids a custom interface.
type Logger = *slog.Logger

// Output formats supported by New.
const (
	FormatText   = "text"   // slog text handler
	FormatJSON   = "json"   // slog JSON handler, for production log shipping
	FormatPretty = "pretty" // tint colorized handler, for interactive use
)

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// Format selects the output handler. Default: FormatText
	Format string

	// AddSource adds source file information to log entries. Default: false
	AddSource bool
}

// New creates a new logger writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a new logger that writes to the specified writer.
// Useful for testing or custom output destinations.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	var handler slog.Handler
	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		})
	case FormatPretty:
		handler = tint.NewHandler(w, &tint.Options{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		})
	}

	return slog.New(handler)
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a
// slog.Level. Unknown names default to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNop creates a logger that discards all output.
//
// Use only in tests. Production code should always use New or
// NewWithWriter with proper configuration.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
