package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/soluna-labs/mirage-api/internal/platform/logger"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// UsageStore implements the store.UsageStore interface using a PostgreSQL
// database. The increment is a single upsert statement so two concurrent
// callers on the same (client, resource) key always observe distinct counts.
type UsageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewUsageStore creates a new PostgreSQL implementation of the
// store.UsageStore interface.
func NewUsageStore(db store.DBTX, logger *slog.Logger) *UsageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &UsageStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_store")),
	}
}

// Ensure UsageStore implements store.UsageStore
var _ store.UsageStore = (*UsageStore)(nil)

// Increment implements store.UsageStore.Increment.
// The counter is created at 1 on first use; the post-increment count and any
// per-key limit override come back from the same statement.
func (s *UsageStore) Increment(ctx context.Context, client, resource string) (store.Usage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO resource_usage (client, resource, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (client, resource) DO UPDATE
		SET count = resource_usage.count + 1
		RETURNING count, limit_override
	`

	var usage store.Usage
	err := s.db.QueryRowContext(ctx, query, client, resource).
		Scan(&usage.Count, &usage.LimitOverride)
	if err != nil {
		log.Error("failed to increment usage counter",
			slog.String("error", err.Error()),
			slog.String("client", client),
			slog.String("resource", resource))
		return store.Usage{}, err
	}

	log.Debug("usage counter incremented",
		slog.String("client", client),
		slog.String("resource", resource),
		slog.Int64("count", usage.Count))
	return usage, nil
}

// DefaultLimit implements store.UsageStore.DefaultLimit.
func (s *UsageStore) DefaultLimit(ctx context.Context, resource string) (int64, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var limit int64
	err := s.db.QueryRowContext(ctx,
		`SELECT limit_value FROM resource_limits WHERE resource = $1`,
		resource,
	).Scan(&limit)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		log.Error("failed to get resource default limit",
			slog.String("error", err.Error()),
			slog.String("resource", resource))
		return 0, false, err
	}

	return limit, true, nil
}

// WithTx implements store.UsageStore.WithTx.
func (s *UsageStore) WithTx(tx *sql.Tx) store.UsageStore {
	return &UsageStore{
		db:     tx,
		logger: s.logger,
	}
}
