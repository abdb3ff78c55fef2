package ports

import (
	"context"
	"time"
)

// FragmentCache caches rendered HTML fragments for the canned embed
// queries. Implementations must be safe to skip: a cache error is never
// fatal to rendering.
type FragmentCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
