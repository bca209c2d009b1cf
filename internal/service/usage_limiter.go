package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soluna-labs/mirage-api/internal/store"
)

// UsageLimiter enforces per-(client, resource) quotas. The check is
// increment-then-compare: the counter grows even when the attempt is
// rejected, so a client that keeps retrying past its limit keeps burning
// count. This matches the recorded behavior of the limiter and is relied on
// by tests.
type UsageLimiter struct {
	usageStore   store.UsageStore
	defaultLimit int64
	logger       *slog.Logger
}

// NewUsageLimiter creates a new UsageLimiter. defaultLimit applies when
// neither a per-key override nor a resource default is configured.
func NewUsageLimiter(usageStore store.UsageStore, defaultLimit int64, logger *slog.Logger) (*UsageLimiter, error) {
	if usageStore == nil {
		return nil, fmt.Errorf("usage store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &UsageLimiter{
		usageStore:   usageStore,
		defaultLimit: defaultLimit,
		logger:       logger.With(slog.String("component", "usage_limiter")),
	}, nil
}

// CheckAndRecord atomically increments the counter for (client, resource)
// and returns ErrQuotaExceeded when the post-increment count is above the
// effective limit. Limit precedence: per-key override, then the resource's
// configured default, then the service-wide default.
func (l *UsageLimiter) CheckAndRecord(ctx context.Context, client, resource string) error {
	usage, err := l.usageStore.Increment(ctx, client, resource)
	if err != nil {
		return fmt.Errorf("failed to record resource usage: %w", err)
	}

	limit := l.defaultLimit
	if resourceDefault, ok, err := l.usageStore.DefaultLimit(ctx, resource); err != nil {
		return fmt.Errorf("failed to resolve resource limit: %w", err)
	} else if ok {
		limit = resourceDefault
	}
	if usage.LimitOverride != nil {
		limit = *usage.LimitOverride
	}

	if usage.Count > limit {
		l.logger.Warn("quota exceeded",
			slog.String("client", client),
			slog.String("resource", resource),
			slog.Int64("count", usage.Count),
			slog.Int64("limit", limit))
		return fmt.Errorf("%w: %s/%s used %d of %d",
			ErrQuotaExceeded, client, resource, usage.Count, limit)
	}

	return nil
}
