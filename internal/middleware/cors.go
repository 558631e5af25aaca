package middleware

import "net/http"

// CORS applies cross-origin headers for the configured origins. An empty
// list allows any origin.
type CORS struct {
	allowedOrigins map[string]bool
	allowAll       bool
}

// NewCORS creates a CORS middleware for the given origins.
func NewCORS(origins []string) *CORS {
	allowed := make(map[string]bool)
	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = true
	}
	return &CORS{allowedOrigins: allowed, allowAll: allowAll}
}

// Handler returns the middleware handler.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (c.allowAll || c.allowedOrigins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Trace-ID")
			w.Header().Set("Access-Control-Max-Age", "600")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
