// Package store persists session-keyed Fitbit state: token records, session
// metadata and pending PKCE attempts.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.New("not found")

// KV is a key-value store with per-key expiry.
// Set replaces the whole value in one write.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Take returns the value and removes it in one step, so two readers can
	// never both consume it.
	Take(ctx context.Context, key string) ([]byte, error)
}
