// Package middleware holds the HTTP middleware shared by all routes.
package middleware

import (
	"net/http"
	"time"

	"github.com/questlogger/questlogger/internal/logger"
)

type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// RequestLogger attaches log to every request context and emits one
// access-log line per request.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lw := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(lw, r.WithContext(log.WithContext(r.Context())))

			if lw.status == 0 {
				lw.status = http.StatusOK
			}

			log.Info().
				Str("method", r.Method).
				Str("uri", r.RequestURI).
				Int("status", lw.status).
				Int("size", lw.size).
				Dur("duration", time.Since(start)).
				Send()
		})
	}
}
