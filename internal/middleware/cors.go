package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

const wildcardOrigin = "*"

// CORSConfig lists the browser origins allowed to call the API and open
// question subscriptions.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// DefaultCORSConfig allows every origin when none are configured.
func DefaultCORSConfig(allowedOrigins []string) *CORSConfig {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{wildcardOrigin}
	}
	return &CORSConfig{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", HeaderRequestID},
		ExposedHeaders:   []string{"Content-Type", HeaderRequestID},
		MaxAge:           86400,
		AllowCredentials: true,
	}
}

// AllowsOrigin reports whether origin is listed, either verbatim or via "*".
// The HTTP middleware and the WebSocket upgrader share this check.
func (c *CORSConfig) AllowsOrigin(origin string) bool {
	for _, allowed := range c.AllowedOrigins {
		if allowed == wildcardOrigin || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// CORSMiddleware answers preflight requests and decorates responses for
// allowed origins. The request origin is echoed back instead of "*" so
// credentials keep working with a wildcard list.
func CORSMiddleware(config *CORSConfig) mux.MiddlewareFunc {
	if config == nil {
		config = DefaultCORSConfig(nil)
	}
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	exposed := strings.Join(config.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Add("Vary", "Origin")
			if !config.AllowsOrigin(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			if config.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h.Set("Access-Control-Expose-Headers", exposed)
			next.ServeHTTP(w, r)
		})
	}
}
