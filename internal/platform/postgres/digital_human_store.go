package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soluna-labs/mirage-api/internal/domain"
	"github.com/soluna-labs/mirage-api/internal/platform/logger"
	"github.com/soluna-labs/mirage-api/internal/store"
)

// DigitalHumanStore implements the store.DigitalHumanStore interface using
// a PostgreSQL database. Records are keyed by the identity name; Save is an
// upsert so republishing an identity replaces the previous record in one
// statement.
type DigitalHumanStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewDigitalHumanStore creates a new PostgreSQL implementation of the
// store.DigitalHumanStore interface.
func NewDigitalHumanStore(db store.DBTX, logger *slog.Logger) *DigitalHumanStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DigitalHumanStore{
		db:     db,
		logger: logger.With(slog.String("component", "digital_human_store")),
	}
}

// Ensure DigitalHumanStore implements store.DigitalHumanStore
var _ store.DigitalHumanStore = (*DigitalHumanStore)(nil)

// GetByName implements store.DigitalHumanStore.GetByName.
// Returns store.ErrDigitalHumanNotFound if no record exists for the name.
func (s *DigitalHumanStore) GetByName(ctx context.Context, name string) (*domain.DigitalHuman, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM digital_humans WHERE name = $1`,
		name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDigitalHumanNotFound
		}
		log.Error("failed to get digital human",
			slog.String("error", err.Error()),
			slog.String("name", name))
		return nil, err
	}

	var human domain.DigitalHuman
	if err := json.Unmarshal(data, &human); err != nil {
		return nil, fmt.Errorf("failed to unmarshal digital human document: %w", err)
	}

	return &human, nil
}

// Save implements store.DigitalHumanStore.Save.
// Inserts a new record, or replaces the record with the same name.
func (s *DigitalHumanStore) Save(ctx context.Context, human *domain.DigitalHuman) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := human.Validate(); err != nil {
		log.Warn("digital human validation failed during save",
			slog.String("error", err.Error()),
			slog.String("name", human.Name))
		return err
	}

	data, err := json.Marshal(human)
	if err != nil {
		return fmt.Errorf("failed to marshal digital human document: %w", err)
	}

	query := `
		INSERT INTO digital_humans (id, name, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		human.ID,
		human.Name,
		data,
		human.CreatedAt,
		human.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save digital human",
			slog.String("error", err.Error()),
			slog.String("name", human.Name))
		return MapError(err)
	}

	log.Info("digital human saved",
		slog.String("id", human.ID.String()),
		slog.String("name", human.Name))
	return nil
}

// WithTx implements store.DigitalHumanStore.WithTx.
func (s *DigitalHumanStore) WithTx(tx *sql.Tx) store.DigitalHumanStore {
	return &DigitalHumanStore{
		db:     tx,
		logger: s.logger,
	}
}
