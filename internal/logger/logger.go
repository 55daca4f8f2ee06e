package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates the service logger with console output on stdout. The level
// can be lowered or raised with the LOG_LEVEL environment variable.
func New(service string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return newLogger(service, output)
}

// NewWithWriter creates a logger with a custom writer. Tests use this with a
// bytes.Buffer to capture output.
func NewWithWriter(service string, w io.Writer) zerolog.Logger {
	return newLogger(service, w)
}

func newLogger(service string, w io.Writer) zerolog.Logger {
	log := zerolog.New(w).With().Timestamp().Str("service", service).Logger()
	if lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}
	return log
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, log)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return log
	}
	return New("subscription-assistant")
}
