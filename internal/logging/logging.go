// Package logging provides the logger interface shared by autosnap components.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Logger is the structured logger every component receives. Args are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Options selects the output format and threshold.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "text", "json"
	// Mute drops everything below error.
	Mute bool
}

type slogLogger struct {
	l *slog.Logger
}

// New builds a Logger writing to w.
func New(w io.Writer, opts Options) Logger {
	level := ParseLevel(opts.Level)
	if opts.Mute {
		level = slog.LevelError
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		h = slog.NewJSONHandler(w, handlerOpts)
	} else {
		h = slog.NewTextHandler(w, handlerOpts)
	}
	return slogLogger{l: slog.New(h)}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return slogLogger{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel maps a config value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s slogLogger) With(args ...any) Logger       { return slogLogger{l: s.l.With(args...)} }
