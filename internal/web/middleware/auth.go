package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/config"
)

// APIKeyAuth validates the X-API-Key header against the configured keys.
// With RequireAPIKey disabled all requests pass; enabled with no keys
// configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing API key"}`, http.StatusUnauthorized)
				return
			}

			if !isValidAPIKey(apiKey, cfg.APIKeys) {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidAPIKey compares against every configured key in constant time so
// the comparison duration leaks nothing about which key matched.
func isValidAPIKey(key string, validKeys []string) bool {
	valid := 0
	for _, validKey := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
	}
	return valid == 1
}
