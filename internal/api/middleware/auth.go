// Bearer JWT middleware for the gateway's REST surface.
// Reads Authorization: Bearer <token>, validates it, injects the client
// id into the request context.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/orrery-labs/orrery/internal/api/ctxkeys"
	pkgauth "github.com/orrery-labs/orrery/pkg/auth"
)

// KeyVerifier checks a plaintext API key and returns the owning client
// name. Implemented by the apikey service.
type KeyVerifier interface {
	Verify(ctx context.Context, key string) (string, error)
}

// AuthMiddleware validates the Bearer JWT token and injects claims into
// context. Routes mount it only when a signing secret is configured, so
// unauthenticated local use keeps working out of the box.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearerToken(r)
		if tokenString == "" {
			writeUnauthorized(w, "missing or invalid Authorization header")
			return
		}

		claims, err := pkgauth.ParseToken(tokenString)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := ctxkeys.WithValue(r.Context(), ctxkeys.ClientID, claims.ClientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AuthWithKeys accepts a stored API key or, when a signing secret is
// configured, a Bearer JWT. The gateway mounts it once at least one key
// exists, so minting the first key is what turns auth on.
func AuthWithKeys(keys KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := extractBearerToken(r)
			if credential == "" {
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			if name, err := keys.Verify(r.Context(), credential); err == nil {
				ctx := ctxkeys.WithValue(r.Context(), ctxkeys.ClientID, name)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if pkgauth.SecretConfigured() {
				if claims, err := pkgauth.ParseToken(credential); err == nil {
					ctx := ctxkeys.WithValue(r.Context(), ctxkeys.ClientID, claims.ClientID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			writeUnauthorized(w, "invalid api key or token")
		})
	}
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
// Returns empty string if the header is missing, the scheme is wrong, or
// the token is empty.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
