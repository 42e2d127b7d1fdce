// Package logger provides structured logging using slog for the
// changelog build pipeline.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with pipeline-scoped convenience constructors.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the specified level and format.
func New(level slog.Level, json bool) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Default creates a logger with default settings (INFO level, text
// format). Output goes to stderr so generated changelogs on stdout stay
// clean.
func Default() *Logger {
	return New(slog.LevelInfo, false)
}

// Discard creates a logger that drops every record. Used by tests and by
// library callers that pass no logger.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithComponent returns a new Logger tagged with the pipeline component
// name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With("component", component),
	}
}

// WithRepo returns a new Logger tagged with the owner/repo pair.
func (l *Logger) WithRepo(owner, repo string) *Logger {
	return &Logger{
		Logger: l.Logger.With("owner", owner, "repo", repo),
	}
}
