package ports

import (
	"context"
	"time"
)

// SessionStore is the ephemeral key/value store holding conversation position
// and interaction correlation between stateless webhook invocations.
type SessionStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrSessionNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
