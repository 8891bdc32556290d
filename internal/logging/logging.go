// Package logging builds the process logger: a console handler and an
// optional file handler, each with its own minimum level.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options configures Setup.
type Options struct {
	// Dir and File locate the log file. An empty File disables file logging.
	Dir  string
	File string

	ConsoleLevel slog.Level
	FileLevel    slog.Level

	// Console receives console output, os.Stderr when nil.
	Console io.Writer
}

// DefaultOptions logs info to the console and debug to ./logs/analysis.log.
func DefaultOptions() Options {
	return Options{
		Dir:          "./logs",
		File:         "analysis.log",
		ConsoleLevel: slog.LevelInfo,
		FileLevel:    slog.LevelDebug,
	}
}

// ParseLevel parses debug, info, warn or error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// Setup returns a logger writing to the console and, when configured, to a
// log file truncated on every run. The returned close function releases the
// file.
func Setup(opts Options) (*slog.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{
			Level:       opts.ConsoleLevel,
			ReplaceAttr: dropTime,
		}),
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		path := filepath.Join(opts.Dir, opts.File)
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: opts.FileLevel}))
		closeFn = f.Close
	}

	logger := slog.New(newMultiHandler(handlers...))
	if opts.File != "" {
		logger.Info("logging initialized", "file", filepath.Join(opts.Dir, opts.File))
	}
	return logger, closeFn, nil
}

// dropTime removes the timestamp from console records.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// multiHandler fans records out to every handler enabled for their level.
type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return newMultiHandler(out...)
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		out[i] = h.WithGroup(name)
	}
	return newMultiHandler(out...)
}
