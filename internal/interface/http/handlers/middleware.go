// Package handlers contains HTTP handler interfaces and implementations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// API KEY AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyAuth guards the study-hub API with a static key set. Keys are loaded
// from config at startup and the set is immutable afterwards, so lookups
// need no locking.
type APIKeyAuth struct {
	headerName string
	keys       map[string]struct{}
}

// NewAPIKeyAuth creates an authenticator for the given header and key set.
// Empty keys are skipped.
func NewAPIKeyAuth(headerName string, keys []string) *APIKeyAuth {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key != "" {
			set[key] = struct{}{}
		}
	}

	return &APIKeyAuth{
		headerName: headerName,
		keys:       set,
	}
}

// IsValid reports whether the key belongs to the configured set.
func (a *APIKeyAuth) IsValid(key string) bool {
	_, ok := a.keys[key]
	return ok
}

// Middleware rejects requests that carry no valid key. The key is read from
// the configured header or from a Bearer Authorization header.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(a.headerName)
		if key == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key == "" {
			writeMiddlewareError(w, http.StatusUnauthorized, "missing_api_key", "API key is required")
			return
		}
		if !a.IsValid(key) {
			writeMiddlewareError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS
// ══════════════════════════════════════════════════════════════════════════════

// SecurityHeadersMiddleware sets defensive response headers for a JSON-only
// API: no sniffing, no framing, no embedded content.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT
// ══════════════════════════════════════════════════════════════════════════════

// DefaultMaxBodyBytes caps request bodies at 1 MB. Session notes are capped
// at 4000 characters and memory texts at 8000, so legitimate ingest payloads
// stay far below this.
const DefaultMaxBodyBytes int64 = 1 << 20

// RequestSizeLimitMiddleware rejects oversized payloads before the handlers
// decode them.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeMiddlewareError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
				return
			}

			// Declared length can lie; cap the actual read too.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// writeMiddlewareError renders the same response envelope the API handlers
// use, so clients see one error shape regardless of where the rejection
// happened.
func writeMiddlewareError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
		"meta":    map[string]interface{}{"timestamp": time.Now().UTC()},
	})
}
