// Package logger wraps zerolog with the small set of helpers the service
// needs: a JSON logger tagged with the component role and request-scoped
// loggers carried through context.
package logger

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger embeds zerolog.Logger so the full zerolog API is available.
type Logger struct {
	zerolog.Logger
}

// New constructs a JSON logger writing to stdout. role labels the
// component emitting the logs ("server", "worker").
func New(role string, level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	l := zerolog.New(os.Stdout).Level(lvl).With().
		Str("role", role).
		Timestamp().
		Logger()

	return &Logger{l}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// WithContext attaches the logger to ctx so handlers further down can
// recover it with FromContext.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, falling back to the
// zerolog global logger when none was attached.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}

// FromRequest is a shorthand for FromContext(r.Context()).
func FromRequest(r *http.Request) *Logger {
	return FromContext(r.Context())
}
