// Shared context keys for the API layer.
// A leaf package so api, middleware, and handlers can all import it
// without cycles.
package ctxkeys

import "context"

// Key is the unexported named type for all API context keys.
// context.Value compares type and value, so a named type cannot collide
// with plain string keys from other packages.
type Key string

const (
	// ClientID identifies the authenticated API client.
	// Injected by AuthMiddleware from JWT claims.
	ClientID Key = "client_id"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}
