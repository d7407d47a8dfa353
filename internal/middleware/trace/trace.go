// Package trace tags every request with an id, logs it and records it in
// the HTTP metrics.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	applog "insights/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the id in both directions.
	HeaderRequestID = "X-Request-ID"
)

// Recorder receives one observation per served request.
type Recorder interface {
	ObserveHTTP(route, method string, status int, d time.Duration)
}

// Middleware handles request tracing and logging. It logs through the
// logger already in the request context (see log.Middleware).
type Middleware struct {
	extractIP func(*http.Request) string
	recorder  Recorder
}

// NewMiddleware creates a new trace middleware. extractIP and recorder may be nil.
func NewMiddleware(extractIP func(*http.Request) string, recorder Recorder) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		recorder:  recorder,
	}
}

// Middleware returns HTTP middleware for request tracing
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := requestIDFrom(r)
		w.Header().Set(HeaderRequestID, requestID)

		base := applog.FromContext(r.Context())
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = applog.WithContext(ctx, base.With(applog.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		// The request line carries request_id itself.
		sl := applog.NewStructuredLogger(base)
		sl.LogHTTPStart(ctx, r, requestID, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		sl.LogHTTPEnd(ctx, r, requestID, rw.statusCode, duration.Milliseconds(), clientIP)
		if m.recorder != nil {
			m.recorder.ObserveHTTP(Route(r), r.Method, rw.statusCode, duration)
		}
	})
}

// Route returns the mux pattern that matched r, keeping metric labels
// bounded. It is only populated once the mux has seen the request.
func Route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

// requestIDFrom reuses a well-formed incoming id and otherwise mints one.
func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get(HeaderRequestID); id != "" {
		if parsed, err := uuid.Parse(id); err == nil {
			return parsed.String()
		}
	}
	return uuid.NewString()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
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
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
