package ledger

import (
	"slices"

	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
)

// State is the aggregate: a rent call stream folded through Apply
type State struct {
	RentCallID        string                  `json:"rent_call_id"`
	EntityID          string                  `json:"entity_id"`
	LeaseID           string                  `json:"lease_id"`
	TenantDisplayName string                  `json:"tenant_display_name"`
	UnitIdentifier    string                  `json:"unit_identifier"`
	BillingMonth      string                  `json:"billing_month"`
	TotalAmountCents  int64                   `json:"total_amount_cents"`
	PaidAmountCents   int64                   `json:"paid_amount_cents"`
	Status            shared.SettlementStatus `json:"settlement_status"`
	Revision          int64                   `json:"revision"`
	Payments          []PaymentRecorded       `json:"payments"`

	sourceTransactions map[string]struct{}
}

// Exists reports whether the stream has been opened by a RentCallIssued event
func (s State) Exists() bool {
	return s.Revision > 0
}

// RemainingBalanceCents goes negative on overpayment
func (s State) RemainingBalanceCents() int64 {
	return s.TotalAmountCents - s.PaidAmountCents
}

// HasPaymentFor reports whether a payment already references the bank transaction
func (s State) HasPaymentFor(sourceTransactionID string) bool {
	if sourceTransactionID == "" {
		return false
	}
	_, ok := s.sourceTransactions[sourceTransactionID]
	return ok
}

// Obligation renders the state as a read-model row
func (s State) Obligation() obligation.Obligation {
	return obligation.Obligation{
		ID:                s.RentCallID,
		EntityID:          s.EntityID,
		LeaseID:           s.LeaseID,
		TenantDisplayName: s.TenantDisplayName,
		UnitIdentifier:    s.UnitIdentifier,
		BillingMonth:      s.BillingMonth,
		TotalAmountCents:  s.TotalAmountCents,
		PaidAmountCents:   s.PaidAmountCents,
		SettlementStatus:  s.Status,
		Revision:          s.Revision,
	}
}

// Apply is the single reducer for every event kind. It never mutates s.
func Apply(s State, e Event) (State, error) {
	switch e.Kind {
	case EventRentCallIssued:
		if s.Exists() {
			return s, ErrCorruptStream{RentCallID: e.RentCallID, Revision: e.Revision, Reason: "rent call issued twice"}
		}
		if e.Issued == nil {
			return s, ErrCorruptStream{RentCallID: e.RentCallID, Revision: e.Revision, Reason: "missing issue payload"}
		}
		return State{
			RentCallID:         e.RentCallID,
			EntityID:           e.Issued.EntityID,
			LeaseID:            e.Issued.LeaseID,
			TenantDisplayName:  e.Issued.TenantDisplayName,
			UnitIdentifier:     e.Issued.UnitIdentifier,
			BillingMonth:       e.Issued.BillingMonth,
			TotalAmountCents:   e.Issued.TotalAmountCents,
			Status:             obligation.StatusFor(0, e.Issued.TotalAmountCents),
			Revision:           nextRevision(s, e),
			sourceTransactions: map[string]struct{}{},
		}, nil

	case EventPaymentRecorded:
		if !s.Exists() {
			return s, ErrCorruptStream{RentCallID: e.RentCallID, Revision: e.Revision, Reason: "payment before issue"}
		}
		if e.Payment == nil {
			return s, ErrCorruptStream{RentCallID: e.RentCallID, Revision: e.Revision, Reason: "missing payment payload"}
		}
		next := s
		next.PaidAmountCents = s.PaidAmountCents + e.Payment.AmountCents
		next.Status = obligation.StatusFor(next.PaidAmountCents, s.TotalAmountCents)
		next.Revision = nextRevision(s, e)
		next.Payments = append(slices.Clone(s.Payments), *e.Payment)
		next.sourceTransactions = make(map[string]struct{}, len(s.sourceTransactions)+1)
		for id := range s.sourceTransactions {
			next.sourceTransactions[id] = struct{}{}
		}
		if id := e.Payment.SourceTransactionID; id != "" {
			next.sourceTransactions[id] = struct{}{}
		}
		return next, nil
	}

	return s, ErrCorruptStream{RentCallID: e.RentCallID, Revision: e.Revision, Reason: "unknown event kind " + string(e.Kind)}
}

// Replay folds a full history into the current state
func Replay(events []Event) (State, error) {
	var s State
	for _, e := range events {
		var err error
		if s, err = Apply(s, e); err != nil {
			return State{}, err
		}
	}
	return s, nil
}

// Events loaded from the store carry their revision; freshly decided ones do not yet.
func nextRevision(s State, e Event) int64 {
	if e.Revision > 0 {
		return e.Revision
	}
	return s.Revision + 1
}
