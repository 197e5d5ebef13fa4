// Package store defines the narrow ephemeral state-store interface the
// session subsystem is written against. It exposes only the atomic
// primitives the resolver, command handler, withdrawal tracker and sweeper
// actually use, so the core stays testable with the in-memory implementation.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key does not exist or has expired.
var ErrNotFound = errors.New("store: key not found")

// StateStore is the single shared mutable resource of the session subsystem.
// Every mutation is an atomic store operation; callers never read-modify-write
// across separate calls for the same invariant.
type StateStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// MGet returns values for keys in order; missing keys yield nil entries.
	MGet(ctx context.Context, keys ...string) ([]*string, error)

	// Set writes key=value with a TTL. ttl<=0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetMulti writes all pairs with one TTL in a single round trip, so
	// concurrent readers never observe a partially applied command.
	SetMulti(ctx context.Context, pairs map[string]string, ttl time.Duration) error

	// SetNX writes key=value only if the key is absent. Returns true when
	// the write happened. Used as an idempotency lock.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Incr atomically increments the integer at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// SAdd adds member to the set at key and refreshes the set's TTL.
	SAdd(ctx context.Context, key, member string, ttl time.Duration) error

	// SMembers returns all members of the set at key (empty when absent).
	SMembers(ctx context.Context, key string) ([]string, error)

	// Expire resets the TTL of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Del removes keys. Deleting a missing key is not an error.
	Del(ctx context.Context, keys ...string) error
}
