package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Options selects the output format and minimum level.
type Options struct {
	Level  string
	Format string
}

// New builds a logger writing to out. Format "json" emits structured JSON
// lines, anything else the colorized pretty format.
func New(out io.Writer, opts Options) *slog.Logger {
	handlerOpts := slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, &handlerOpts))
	}
	return slog.New(NewPrettyHandler(out, PrettyHandlerOptions{SlogOpts: handlerOpts}))
}

// ParseLevel maps a config level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
