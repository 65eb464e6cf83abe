package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON logger on stdout at the given level. Unknown levels fall
// back to info.
func New(level string) *slog.Logger {
	return NewWriter(os.Stdout, level, "json")
}

// NewWriter creates a logger on w. Format is "json" or "text"; anything else
// selects JSON.
func NewWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl.Set(slog.LevelInfo)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", "ghostchain"))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
