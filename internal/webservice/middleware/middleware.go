// Package middleware provides the HTTP middlewares shared by every module of the web service.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
)

type ctxKey struct{}

// HeaderRequestID is the response header carrying the request id.
const HeaderRequestID = "X-Request-Id"

// RequestID returns the id given to the request by Logging, or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Logging gives every request an id and logs it once served.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		w.Header().Set(HeaderRequestID, reqID)
		r = r.WithContext(WithRequestID(r.Context(), reqID))

		m := httpsnoop.CaptureMetrics(next, w, r)

		level := slog.LevelInfo
		if m.Code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "Request served",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration", m.Duration)
	})
}

// Recover answers 500 when a handler panics.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				slog.Error("Handler panicked", "req_id", RequestID(r.Context()), "path", r.URL.Path, "panic", rec)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
