package transaction

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors raised at ingestion
var (
	ErrMissingID      = errors.New("transaction id cannot be empty")
	ErrMissingAccount = errors.New("bank account id cannot be empty")
	ErrMissingDate    = errors.New("transaction date is required")
	ErrZeroAmount     = errors.New("transaction amount cannot be zero")
)

// Transaction is a bank statement line as imported. It is never mutated after import.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	Date        time.Time       `json:"date"`
	AmountCents int64           `json:"amount_cents"` // Negative = debit from the account owner's perspective
	PayerName   string          `json:"payer_name"`
	Reference   string          `json:"reference"`
	RawPayload  json.RawMessage `json:"raw_payload,omitempty"`
	ImportedAt  time.Time       `json:"imported_at"`
}

// New builds a transaction with a generated id and the date truncated to its calendar day
func New(accountID string, date time.Time, amountCents int64, payerName, reference string, raw json.RawMessage) (*Transaction, error) {
	tx := &Transaction{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Date:        CalendarDay(date),
		AmountCents: amountCents,
		PayerName:   payerName,
		Reference:   reference,
		RawPayload:  raw,
		ImportedAt:  time.Now().UTC(),
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Validate rejects structurally invalid transactions before they reach the matcher
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return ErrMissingID
	}
	if t.AccountID == "" {
		return ErrMissingAccount
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if t.AmountCents == 0 {
		return ErrZeroAmount
	}
	return nil
}

// IsCredit reports whether money came into the account
func (t *Transaction) IsCredit() bool {
	return t.AmountCents > 0
}

// AbsAmountCents returns the unsigned amount
func (t *Transaction) AbsAmountCents() int64 {
	if t.AmountCents < 0 {
		return -t.AmountCents
	}
	return t.AmountCents
}

// CalendarDay drops the time-of-day component while keeping the recorded day
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
