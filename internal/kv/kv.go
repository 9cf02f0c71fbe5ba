// Package kv defines the key-value store port used by the report cache and
// the usage limiter, together with its Redis (Upstash) adapter.
//
// The port is deliberately small: string keys and values, set-with-expiry,
// and a capped list for the recent-analyses feed. Callers that can operate
// without persistence hold a nil Store and skip these operations entirely;
// the adapters themselves never special-case absence.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
// It is a clean miss, not a backend fault.
var ErrNotFound = errors.New("kv: key not found")

// Store is the persistence contract required by the cache and limiter.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the string value at key, or ErrNotFound on a miss.
	Get(ctx context.Context, key string) (string, error)

	// Set writes value at key with the given expiry. A non-positive ttl
	// stores the value without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// PushCapped prepends value to the list at key, trims the list to at
	// most max entries, and refreshes the list's expiry.
	PushCapped(ctx context.Context, key, value string, max int64, ttl time.Duration) error

	// Range returns list entries between start and stop inclusive, newest
	// first. A missing list yields an empty slice, not an error.
	Range(ctx context.Context, key string, start, stop int64) ([]string, error)
}
