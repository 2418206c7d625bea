package ledger

import (
	"context"
)

// EventStore persists rent call streams. Append is conditioned on the stream still being at
// expectedRevision and returns ErrRevisionConflict otherwise; a payment whose source transaction
// is already stored returns ErrDuplicatePayment.
type EventStore interface {
	Load(ctx context.Context, rentCallID string) ([]Event, error)
	Append(ctx context.Context, rentCallID string, expectedRevision int64, events []Event) (int64, error)
}

// PaymentIndex answers which bank transactions already back a recorded payment, on any
// rent call
type PaymentIndex interface {
	RecordedTransactions(ctx context.Context, transactionIDs []string) ([]string, error)
}

// StreamRevision returns the revision of the last loaded event, 0 for an empty stream
func StreamRevision(events []Event) int64 {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Revision
}
