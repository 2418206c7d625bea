package transaction

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Repository persists imported bank transactions and exposes their dedup keys
type Repository interface {
	// SaveBatch stores freshly accepted transactions together with their dedup keys
	SaveBatch(ctx context.Context, transactions []Transaction, keys []string) error

	// ExistingKeys returns the subset of keys already recorded by a stored transaction
	ExistingKeys(ctx context.Context, keys []string) ([]string, error)

	GetByIDs(ctx context.Context, ids []string) ([]Transaction, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrIDConflict indicates a line whose id is already taken by a stored transaction with a
// different dedup key
type ErrIDConflict struct {
	ID string
}

func (e ErrIDConflict) Error() string {
	return "bank transaction id already in use: " + e.ID
}

// Is implements the errors.Is interface for ErrIDConflict
func (e ErrIDConflict) Is(target error) bool {
	t, ok := target.(ErrIDConflict)
	if !ok {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}
