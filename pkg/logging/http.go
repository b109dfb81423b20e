package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dograh/blogforge/pkg/tracing"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status       int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// HTTPLoggingMiddleware logs HTTP requests in structured JSON format
func HTTPLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			traceID := tracing.TraceIDFromContext(r.Context())
			spanID := tracing.SpanIDFromContext(r.Context())

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			logger.LogAttrs(r.Context(), slog.LevelInfo, "http_request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", wrapped.status),
				slog.Int64("bytes", wrapped.bytesWritten),
				slog.Float64("duration_ms", float64(duration.Milliseconds())),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("trace_id", traceID),
				slog.String("span_id", spanID),
				slog.String("host", r.Host),
			)
		})
	}
}

// HTTPErrorLogger logs HTTP errors in structured format
func HTTPErrorLogger(logger *slog.Logger, statusCode int, err error, r *http.Request) {
	traceID := tracing.TraceIDFromContext(r.Context())
	spanID := tracing.SpanIDFromContext(r.Context())

	logger.LogAttrs(r.Context(), slog.LevelError, "http_error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("trace_id", traceID),
		slog.String("span_id", spanID),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
