package ledger

import (
	"errors"
	"fmt"
)

// ErrRentCallNotFound indicates a command against a stream that was never issued
type ErrRentCallNotFound struct {
	RentCallID string
}

func (e ErrRentCallNotFound) Error() string {
	return "rent call not found: " + e.RentCallID
}

// Is implements the errors.Is interface for ErrRentCallNotFound
func (e ErrRentCallNotFound) Is(target error) bool {
	t, ok := target.(ErrRentCallNotFound)
	if !ok {
		return false
	}
	// An empty target RentCallID matches any ErrRentCallNotFound
	return t.RentCallID == "" || t.RentCallID == e.RentCallID
}

// ErrRentCallAlreadyIssued indicates an attempt to open an existing stream
type ErrRentCallAlreadyIssued struct {
	RentCallID string
}

func (e ErrRentCallAlreadyIssued) Error() string {
	return "rent call already issued: " + e.RentCallID
}

// Is implements the errors.Is interface for ErrRentCallAlreadyIssued
func (e ErrRentCallAlreadyIssued) Is(target error) bool {
	t, ok := target.(ErrRentCallAlreadyIssued)
	if !ok {
		return false
	}
	return t.RentCallID == "" || t.RentCallID == e.RentCallID
}

// ErrDuplicatePayment indicates the source transaction was already recorded on the rent call.
// The ledger is unchanged; callers may ignore or retry safely.
type ErrDuplicatePayment struct {
	RentCallID          string
	SourceTransactionID string
}

func (e ErrDuplicatePayment) Error() string {
	return fmt.Sprintf("payment for transaction %s already recorded on rent call %s", e.SourceTransactionID, e.RentCallID)
}

// Is implements the errors.Is interface for ErrDuplicatePayment
func (e ErrDuplicatePayment) Is(target error) bool {
	t, ok := target.(ErrDuplicatePayment)
	if !ok {
		return false
	}
	if t.RentCallID != "" && t.RentCallID != e.RentCallID {
		return false
	}
	return t.SourceTransactionID == "" || t.SourceTransactionID == e.SourceTransactionID
}

// ErrRevisionConflict indicates the stream moved between load and append
type ErrRevisionConflict struct {
	RentCallID string
	Expected   int64
	Actual     int64
}

func (e ErrRevisionConflict) Error() string {
	return fmt.Sprintf("revision conflict on rent call %s: expected %d, actual %d", e.RentCallID, e.Expected, e.Actual)
}

// Is implements the errors.Is interface for ErrRevisionConflict
func (e ErrRevisionConflict) Is(target error) bool {
	t, ok := target.(ErrRevisionConflict)
	if !ok {
		return false
	}
	return t.RentCallID == "" || t.RentCallID == e.RentCallID
}

// ErrRetriesExhausted is surfaced when a command kept conflicting or ran out of time.
// It is transient: the caller may resubmit the command.
type ErrRetriesExhausted struct {
	RentCallID string
	Attempts   int
	Cause      error
}

func (e ErrRetriesExhausted) Error() string {
	return fmt.Sprintf("command on rent call %s gave up after %d attempt(s): %v", e.RentCallID, e.Attempts, e.Cause)
}

func (e ErrRetriesExhausted) Unwrap() error {
	return e.Cause
}

// Is implements the errors.Is interface for ErrRetriesExhausted
func (e ErrRetriesExhausted) Is(target error) bool {
	t, ok := target.(ErrRetriesExhausted)
	if !ok {
		return false
	}
	return t.RentCallID == "" || t.RentCallID == e.RentCallID
}

// ErrCorruptStream indicates a history the reducer cannot fold
type ErrCorruptStream struct {
	RentCallID string
	Revision   int64
	Reason     string
}

func (e ErrCorruptStream) Error() string {
	return fmt.Sprintf("corrupt stream for rent call %s at revision %d: %s", e.RentCallID, e.Revision, e.Reason)
}

// IsRetryable reports whether err is a transient failure worth resubmitting
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetriesExhausted{}) || errors.Is(err, ErrRevisionConflict{})
}
