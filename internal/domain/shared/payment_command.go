package shared

import (
	"errors"
	"time"
)

var (
	ErrMissingRentCallID = errors.New("rent call id is required")
	ErrInvalidPayment    = errors.New("payment amount must be positive")
	ErrInvalidSource     = errors.New("invalid payment source")
)

// PaymentCommand defines a Kafka message asking the ledger to record a payment.
// Open-banking synchronisation publishes these for confirmed matches.
type PaymentCommand struct {
	CommandID           string        `json:"command_id"`
	RentCallID          string        `json:"rent_call_id"`
	AmountCents         int64         `json:"amount_cents"`
	SourceTransactionID string        `json:"source_transaction_id,omitempty"`
	PayerName           string        `json:"payer_name"`
	PaymentDate         time.Time     `json:"payment_date"`
	Source              PaymentSource `json:"source"`
	CorrelationID       string        `json:"correlation_id,omitempty"`
	Timestamp           time.Time     `json:"timestamp"`
}

// Validate performs the structural checks a command must pass before dispatch
func (c *PaymentCommand) Validate() error {
	if c.RentCallID == "" {
		return ErrMissingRentCallID
	}
	if c.AmountCents <= 0 {
		return ErrInvalidPayment
	}
	if !c.Source.IsValid() {
		return ErrInvalidSource
	}
	return nil
}
