package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format is the output format of operational logs.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel converts a level name ("debug", "info", "warn", "error") to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

// New builds the structured logger used for startup, configuration and mock proxy output.
// Per-test output does not go through this logger; it is captured by a CapturingLogger instead.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch Format(strings.ToLower(format)) {
	case "", FormatText:
		handler = slog.NewTextHandler(w, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return slog.New(handler), nil
}

type slogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

func (s slogAdapter) Printf(message string, args ...interface{}) {
	if !s.logger.Enabled(context.Background(), s.level) {
		return
	}
	s.logger.Log(context.Background(), s.level, fmt.Sprintf(message, args...))
}

// FromSlog adapts a structured logger to the Printf-style Logger interface, logging every
// message at the given level.
func FromSlog(logger *slog.Logger, level slog.Level) Logger {
	if logger == nil {
		return NullLogger()
	}
	return slogAdapter{logger: logger, level: level}
}
