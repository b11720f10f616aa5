package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Options configures process-wide logging.
type Options struct {
	// Dir is the root under which <YYYY-MM-DD>/<YYYY-MM-DD_HH-MM-SS>.log is created.
	Dir string
	// FileLevel is the minimum level written to the log file.
	FileLevel LogLevel
	// ConsoleLevel is the minimum level written to Console.
	ConsoleLevel LogLevel
	// Format selects the record encoding: text or json.
	Format string
	// Console receives records at or above ConsoleLevel.
	Console io.Writer
	// AddSource includes file:line of the call site.
	AddSource bool
	// Now is the clock used to name the log file.
	Now func() time.Time
}

var (
	setupOnce sync.Once
	setupLog  Logger = NoOpLogger{}
	setupPath string
	setupErr  error
)

// Setup initializes process-wide logging exactly once: a dated log file at
// FileLevel plus a console handler at ConsoleLevel, installed as slog.Default.
// Subsequent calls return the first result and ignore their options.
func Setup(optFns ...func(o *Options)) (Logger, error) {
	setupOnce.Do(func() {
		opts := Options{
			Dir:          "logs",
			FileLevel:    LogLevelDebug,
			ConsoleLevel: LogLevelWarn,
			Format:       "text",
			Console:      os.Stderr,
			Now:          time.Now,
		}

		for _, fn := range optFns {
			fn(&opts)
		}

		var sl *slog.Logger

		sl, setupPath, setupErr = newFileLogger(opts)
		if setupErr != nil {
			return
		}

		slog.SetDefault(sl)
		setupLog = NewSlogAdapter(sl)
	})

	return setupLog, setupErr
}

// File returns the path of the log file created by Setup, if any.
func File() string { return setupPath }

// Named returns a Logger tagged with a component name, backed by slog.Default.
func Named(name string) Logger {
	return NewSlogAdapter(slog.Default().With("logger", name))
}

func newFileLogger(opts Options) (*slog.Logger, string, error) {
	now := opts.Now()
	dir := filepath.Join(opts.Dir, now.Format("2006-01-02"))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, now.Format("2006-01-02_15-04-05")+".log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("open log file: %w", err)
	}

	handlers := []slog.Handler{
		NewHandler(&LoggerConfig{Level: opts.FileLevel, Format: opts.Format, Output: f, AddSource: opts.AddSource}),
	}

	if opts.Console != nil {
		handlers = append(handlers, NewHandler(&LoggerConfig{Level: opts.ConsoleLevel, Format: opts.Format, Output: opts.Console, AddSource: opts.AddSource}))
	}

	return slog.New(&fanoutHandler{handlers: handlers}), path, nil
}

// fanoutHandler forwards each record to every handler that accepts its level.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error

	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}

		if err := hh.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}

	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}

	return &fanoutHandler{handlers: next}
}
