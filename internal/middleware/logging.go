// Package middleware contains the HTTP middleware mounted by the server.
//
// THE CONTRACT
// Every middleware here has the shape
//
//	func(next http.Handler) http.Handler
//
// and, for each request, does exactly one of two things:
//   - pass: call next.ServeHTTP, optionally doing work before and after
//   - short-circuit: write a complete response and return without calling next
//
// Logger always passes. RateLimiter.Middleware short-circuits with 429 when
// a client is over its budget. session.RequireAuth (in the session package)
// short-circuits with a redirect to /login.
//
// ORDER MATTERS
// chi runs middleware in the order it was registered with Use, outermost
// first. server.setupRoutes lists that order explicitly; anything that needs
// the request ID (Logger) must come after chi's RequestID.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int64
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logger logs one line per request: method, path, status, duration, bytes
// written and the chi request id. Redirects are logged with their target.
//
// The line is written after next returns, so it carries the final status.
// A handler that never calls WriteHeader is logged as 200, which is what
// net/http sends in that case.
//
// Example output (JSON handler):
//
//	{"level":"INFO","msg":"request completed","method":"POST","path":"/login",
//	 "status":303,"duration":"41ms","bytes":0,"requestID":"host/abc-000001",
//	 "location":"/secrets"}
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			}
			if id := chimiddleware.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("requestID", id))
			}
			if loc := wrapped.Header().Get("Location"); loc != "" {
				attrs = append(attrs, slog.String("location", loc))
			}

			level := slog.LevelInfo
			if wrapped.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request completed", attrs...)
		})
	}
}
