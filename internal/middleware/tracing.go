package middleware

import (
	"net/http"
	"time"

	"github.com/campuslink/platform/internal/logging"
)

// Tracing assigns a trace ID to each request and logs its outcome.
type Tracing struct {
	logger *logging.Logger
}

// NewTracing creates a tracing middleware.
func NewTracing(logger *logging.Logger) *Tracing {
	if logger == nil {
		logger = logging.NewDefault("http")
	}
	return &Tracing{logger: logger}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

// Handler returns the middleware handler.
func (t *Tracing) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = logging.NewTraceID()
		}
		ctx := logging.WithTraceID(r.Context(), traceID)
		w.Header().Set("X-Trace-ID", traceID)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r.WithContext(ctx))
		t.logger.LogRequest(ctx, r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}
