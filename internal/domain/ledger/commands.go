package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
)

// Common command validation errors
var (
	ErrInvalidAmount  = errors.New("payment amount must be positive")
	ErrInvalidSource  = errors.New("invalid payment source")
	ErrMissingPayer   = errors.New("payer name cannot be empty")
	ErrMissingLeaseID = errors.New("lease id cannot be empty")
)

// IssueRentCall opens a rent call stream for one lease and billing month
type IssueRentCall struct {
	RentCallID        string
	EntityID          string
	LeaseID           string
	TenantDisplayName string
	UnitIdentifier    string
	BillingMonth      string
	TotalAmountCents  int64
}

// RecordPayment applies a payment to a rent call
type RecordPayment struct {
	RentCallID          string
	AmountCents         int64
	SourceTransactionID string // Empty for manual, cash or check payments
	PayerName           string
	PaymentDate         time.Time
	Source              shared.PaymentSource
}

// DecideIssue returns the events opening the stream, or an error if it already exists
func DecideIssue(s State, cmd IssueRentCall, now time.Time) ([]Event, error) {
	if s.Exists() {
		return nil, ErrRentCallAlreadyIssued{RentCallID: cmd.RentCallID}
	}
	if strings.TrimSpace(cmd.LeaseID) == "" {
		return nil, ErrMissingLeaseID
	}
	if cmd.TotalAmountCents < 0 {
		return nil, obligation.ErrNegativeTotal
	}
	if _, err := obligation.ParseBillingMonth(cmd.BillingMonth); err != nil {
		return nil, err
	}

	e := newEvent(EventRentCallIssued, cmd.RentCallID, now)
	e.Issued = &RentCallIssued{
		EntityID:          cmd.EntityID,
		LeaseID:           cmd.LeaseID,
		TenantDisplayName: cmd.TenantDisplayName,
		UnitIdentifier:    cmd.UnitIdentifier,
		BillingMonth:      cmd.BillingMonth,
		TotalAmountCents:  cmd.TotalAmountCents,
	}
	return []Event{e}, nil
}

// DecideRecordPayment enforces the at-most-once guard: a payment whose source transaction
// is already in the stream is rejected and no event is produced.
func DecideRecordPayment(s State, cmd RecordPayment, now time.Time) ([]Event, error) {
	if !s.Exists() {
		return nil, ErrRentCallNotFound{RentCallID: cmd.RentCallID}
	}
	if cmd.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if !cmd.Source.IsValid() {
		return nil, ErrInvalidSource
	}
	if strings.TrimSpace(cmd.PayerName) == "" {
		return nil, ErrMissingPayer
	}
	if s.HasPaymentFor(cmd.SourceTransactionID) {
		return nil, ErrDuplicatePayment{RentCallID: cmd.RentCallID, SourceTransactionID: cmd.SourceTransactionID}
	}

	paymentDate := cmd.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = now
	}

	e := newEvent(EventPaymentRecorded, cmd.RentCallID, now)
	e.Payment = &PaymentRecorded{
		SourceTransactionID: cmd.SourceTransactionID,
		AmountCents:         cmd.AmountCents,
		PayerName:           cmd.PayerName,
		PaymentDate:         paymentDate.UTC(),
		Source:              cmd.Source,
	}
	return []Event{e}, nil
}
