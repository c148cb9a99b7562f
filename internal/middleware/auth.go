package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const TenantKey contextKey = "tenant"

// publicPaths bypass auth and rate limiting.
var publicPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
	"/live":   true,
}

func isPublic(r *http.Request) bool { return publicPaths[r.URL.Path] }

// APIKeyAuth validates the API key from the Authorization header or
// X-API-Key. validKeys maps tenant to key; an empty map disables auth.
func APIKeyAuth(validKeys map[string]string, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	for tenant := range validKeys {
		if err := ValidateTenantID(tenant); err != nil {
			log.Warn("api key tenant name is not a valid id", "tenant", tenant, "err", err)
		}
	}
	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if apiKey == "" {
				// "Bearer <key>" atau "<key>"
				apiKey = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			}
			if apiKey == "" {
				http.Error(w, "missing API key", http.StatusUnauthorized)
				return
			}

			tenant, ok := matchKey(validKeys, apiKey)
			if !ok {
				log.Warn("rejected API key", "path", r.URL.Path, "ip", clientIP(r))
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), TenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchKey compares every key in constant time so timing does not reveal a prefix.
func matchKey(validKeys map[string]string, apiKey string) (string, bool) {
	var tenant string
	found := false
	for t, key := range validKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			tenant, found = t, true
		}
	}
	return tenant, found
}

// GetTenantFromContext extracts tenant from context
func GetTenantFromContext(ctx context.Context) string {
	if tenant, ok := ctx.Value(TenantKey).(string); ok {
		return tenant
	}
	return ""
}
