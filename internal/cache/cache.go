// Package cache is the read-model cache for leaderboard and stats
// endpoints. Correctness never depends on it: every entry carries a TTL
// and ledger commits invalidate the keys they stale out.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
