package store

import (
	"context"
	"database/sql"
)

// Usage is the outcome of one atomic quota increment.
type Usage struct {
	// Count is the usage count after the increment.
	Count int64
	// LimitOverride is the per-(client, resource) limit override, if one is
	// configured for this key.
	LimitOverride *int64
}

// UsageStore defines the interface for the resource usage counters backing
// the quota limiter. Increment must be indivisible across concurrent
// callers: two concurrent increments on the same key must observe distinct
// counts.
type UsageStore interface {
	// Increment atomically increments the counter for (client, resource),
	// creating it at 1 when absent, and returns the post-increment usage.
	Increment(ctx context.Context, client, resource string) (Usage, error)

	// DefaultLimit returns the configured default limit for the resource
	// name. The boolean is false when no default is configured.
	DefaultLimit(ctx context.Context, resource string) (int64, bool, error)

	// WithTx returns a new UsageStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) UsageStore
}
