package obligation

import (
	"context"
)

// Repository is the queryable read model of rent calls, maintained from ledger events
type Repository interface {
	// Upsert stores the projected state unless a newer revision is already stored
	Upsert(ctx context.Context, o *Obligation) error
	GetByID(ctx context.Context, id string) (*Obligation, error)
	ListByEntityAndMonth(ctx context.Context, entityID, billingMonth string) ([]Obligation, error)
}

// ErrNotFound indicates a rent call missing from the read model
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return "rent call not found in read model: " + e.ID
}

// Is implements the errors.Is interface for ErrNotFound
func (e ErrNotFound) Is(target error) bool {
	t, ok := target.(ErrNotFound)
	if !ok {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}
