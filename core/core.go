package core

import (
	"slices"

	"github.com/hupe1980/marketinsight/logging"
)

// loggerAdapter tags every record with the identifiers of its scope (thread,
// run and, for tools, the function call). A nil logger discards records.
type loggerAdapter struct {
	logger logging.Logger
	scope  []any
}

func newLoggerAdapter(l logging.Logger, scope ...any) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &loggerAdapter{logger: l, scope: scope}
}

// Logger returns the underlying logger without scope attributes.
func (l *loggerAdapter) Logger() logging.Logger { return l.logger }

func (l *loggerAdapter) with(args []any) []any {
	return append(slices.Clip(l.scope), args...)
}

// LogDebug logs a debug message with the scope attributes.
func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

// LogInfo logs an info message with the scope attributes.
func (l *loggerAdapter) LogInfo(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

// LogWarn logs a warning with the scope attributes.
func (l *loggerAdapter) LogWarn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

// LogError logs an error with the scope attributes.
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
