package store

import (
	"context"
	"database/sql"

	"github.com/soluna-labs/mirage-api/internal/domain"
)

// DigitalHumanStore defines the interface for published digital human
// persistence. Records are keyed by their identity name.
type DigitalHumanStore interface {
	// GetByName retrieves a digital human by its identity name.
	// Returns ErrDigitalHumanNotFound if no record exists for the name.
	GetByName(ctx context.Context, name string) (*domain.DigitalHuman, error)

	// Save inserts the record, or replaces the existing record with the
	// same identity name.
	Save(ctx context.Context, human *domain.DigitalHuman) error

	// WithTx returns a new DigitalHumanStore instance that uses the
	// provided transaction.
	WithTx(tx *sql.Tx) DigitalHumanStore
}
