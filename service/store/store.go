package store

import (
	"context"
	"errors"
	"time"
)

// Common, reusable store errors. Using sentinel variables allows callers to
// reliably detect error conditions via errors.Is instead of brittle string
// comparisons.
var (
	// ErrNotFound is returned when the requested key does not exist. On the
	// read path absence is an expected condition (an expired gate), never an
	// infrastructure failure.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable indicates the backing store itself is unreachable. It
	// must be surfaced to the caller, never swallowed, because swallowing it
	// would make audit data silently incomplete.
	ErrUnavailable = errors.New("store: unavailable")

	// ErrInvalidKey indicates an empty or otherwise invalid key.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Service is the shared-store contract. Every value is an opaque byte slice;
// callers serialise through the model/approval codec. A zero ttl means the
// key does not expire.
type Service interface {
	// Get returns the value at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value at key with the supplied ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// LPush prepends values to the list at key.
	LPush(ctx context.Context, key string, values ...[]byte) error

	// RPush appends values to the list at key.
	RPush(ctx context.Context, key string, values ...[]byte) error

	// LRange returns list elements between start and stop inclusive;
	// negative indices count from the tail, mirroring redis semantics.
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// LTrim trims the list at key to the elements between start and stop.
	LTrim(ctx context.Context, key string, start, stop int64) error

	// LRem removes count occurrences of value from the list at key and
	// returns how many were removed. count==0 removes all occurrences.
	LRem(ctx context.Context, key string, count int64, value []byte) (int64, error)

	// Expire (re)sets the ttl on key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
