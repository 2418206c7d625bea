package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
)

// EventKind tags the payload carried by an Event
type EventKind string

const (
	EventRentCallIssued  EventKind = "RentCallIssued"
	EventPaymentRecorded EventKind = "PaymentRecorded"
)

// Event is one fact in a rent call stream. Exactly one payload field is set, matching Kind.
type Event struct {
	ID         uuid.UUID        `json:"id"`
	Kind       EventKind        `json:"kind"`
	RentCallID string           `json:"rent_call_id"`
	Revision   int64            `json:"revision"` // 1-based position in the stream, assigned on append
	OccurredAt time.Time        `json:"occurred_at"`
	Issued     *RentCallIssued  `json:"issued,omitempty"`
	Payment    *PaymentRecorded `json:"payment,omitempty"`
}

// RentCallIssued opens a stream when a billing period is generated
type RentCallIssued struct {
	EntityID          string `json:"entity_id"`
	LeaseID           string `json:"lease_id"`
	TenantDisplayName string `json:"tenant_display_name"`
	UnitIdentifier    string `json:"unit_identifier"`
	BillingMonth      string `json:"billing_month"`
	TotalAmountCents  int64  `json:"total_amount_cents"`
}

// PaymentRecorded applies money to the rent call. SourceTransactionID is empty for
// manual, cash or check payments.
type PaymentRecorded struct {
	SourceTransactionID string               `json:"source_transaction_id,omitempty"`
	AmountCents         int64                `json:"amount_cents"`
	PayerName           string               `json:"payer_name"`
	PaymentDate         time.Time            `json:"payment_date"`
	Source              shared.PaymentSource `json:"source"`
}

// SourceTransactionID returns the bank transaction an event is tied to, if any
func (e Event) SourceTransactionID() string {
	if e.Kind == EventPaymentRecorded && e.Payment != nil {
		return e.Payment.SourceTransactionID
	}
	return ""
}

func newEvent(kind EventKind, rentCallID string, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		RentCallID: rentCallID,
		OccurredAt: now.UTC(),
	}
}
