package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func issuedState(t *testing.T, total int64) State {
	t.Helper()
	events, err := DecideIssue(State{}, IssueRentCall{
		RentCallID:        "rc-1",
		EntityID:          "entity-1",
		LeaseID:           "L-42",
		TenantDisplayName: "Jean Dupont",
		UnitIdentifier:    "A12",
		BillingMonth:      "2026-02",
		TotalAmountCents:  total,
	}, testNow)
	require.NoError(t, err)
	s, err := Replay(events)
	require.NoError(t, err)
	return s
}

func pay(t *testing.T, s State, amount int64, sourceTx string) State {
	t.Helper()
	events, err := DecideRecordPayment(s, RecordPayment{
		RentCallID:          s.RentCallID,
		AmountCents:         amount,
		SourceTransactionID: sourceTx,
		PayerName:           "DUPONT JEAN",
		Source:              shared.PaymentSourceBankStatement,
	}, testNow)
	require.NoError(t, err)
	for _, e := range events {
		s, err = Apply(s, e)
		require.NoError(t, err)
	}
	return s
}

func TestDecideIssue(t *testing.T) {
	t.Run("OpensStream", func(t *testing.T) {
		s := issuedState(t, 85000)

		assert.True(t, s.Exists())
		assert.Equal(t, int64(1), s.Revision)
		assert.Equal(t, shared.SettlementStatusUnpaid, s.Status)
		assert.Equal(t, int64(85000), s.RemainingBalanceCents())
	})

	t.Run("ZeroTotalIsPaid", func(t *testing.T) {
		s := issuedState(t, 0)
		assert.Equal(t, shared.SettlementStatusPaid, s.Status)
	})

	t.Run("AlreadyIssued", func(t *testing.T) {
		s := issuedState(t, 85000)
		_, err := DecideIssue(s, IssueRentCall{RentCallID: "rc-1", LeaseID: "L-42", BillingMonth: "2026-02"}, testNow)
		assert.ErrorIs(t, err, ErrRentCallAlreadyIssued{})
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, err := DecideIssue(State{}, IssueRentCall{RentCallID: "rc-1", LeaseID: "L-1", BillingMonth: "2026-02", TotalAmountCents: -1}, testNow)
		assert.Error(t, err)

		_, err = DecideIssue(State{}, IssueRentCall{RentCallID: "rc-1", LeaseID: "L-1", BillingMonth: "feb"}, testNow)
		assert.Error(t, err)

		_, err = DecideIssue(State{}, IssueRentCall{RentCallID: "rc-1", BillingMonth: "2026-02"}, testNow)
		assert.ErrorIs(t, err, ErrMissingLeaseID)
	})
}

func TestDecideRecordPayment(t *testing.T) {
	t.Run("PartialThenPaid", func(t *testing.T) {
		s := issuedState(t, 85000)

		s = pay(t, s, 40000, "tx-1")
		assert.Equal(t, shared.SettlementStatusPartial, s.Status)
		assert.Equal(t, int64(45000), s.RemainingBalanceCents())
		assert.Equal(t, int64(2), s.Revision)

		s = pay(t, s, 45000, "tx-2")
		assert.Equal(t, shared.SettlementStatusPaid, s.Status)
		assert.Equal(t, int64(0), s.RemainingBalanceCents())
		assert.Len(t, s.Payments, 2)
	})

	t.Run("OverpaymentAccepted", func(t *testing.T) {
		s := issuedState(t, 85000)
		s = pay(t, s, 90000, "tx-1")

		assert.Equal(t, shared.SettlementStatusPaid, s.Status)
		assert.Equal(t, int64(-5000), s.RemainingBalanceCents())
	})

	t.Run("DuplicateSourceTransaction", func(t *testing.T) {
		s := issuedState(t, 85000)
		s = pay(t, s, 40000, "tx-1")

		events, err := DecideRecordPayment(s, RecordPayment{
			RentCallID: "rc-1", AmountCents: 40000, SourceTransactionID: "tx-1",
			PayerName: "DUPONT", Source: shared.PaymentSourceOpenBanking,
		}, testNow)

		assert.Nil(t, events)
		assert.ErrorIs(t, err, ErrDuplicatePayment{RentCallID: "rc-1", SourceTransactionID: "tx-1"})
		assert.Equal(t, int64(40000), s.PaidAmountCents, "state must be untouched")
	})

	t.Run("ManualPaymentsAreNotDeduplicated", func(t *testing.T) {
		s := issuedState(t, 85000)
		s = pay(t, s, 10000, "")
		s = pay(t, s, 10000, "")
		assert.Equal(t, int64(20000), s.PaidAmountCents)
	})

	t.Run("Rejections", func(t *testing.T) {
		s := issuedState(t, 85000)

		_, err := DecideRecordPayment(State{}, RecordPayment{RentCallID: "missing", AmountCents: 1, PayerName: "X", Source: shared.PaymentSourceManual}, testNow)
		assert.ErrorIs(t, err, ErrRentCallNotFound{RentCallID: "missing"})

		_, err = DecideRecordPayment(s, RecordPayment{RentCallID: "rc-1", AmountCents: 0, PayerName: "X", Source: shared.PaymentSourceManual}, testNow)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = DecideRecordPayment(s, RecordPayment{RentCallID: "rc-1", AmountCents: 100, PayerName: "X", Source: "cash"}, testNow)
		assert.ErrorIs(t, err, ErrInvalidSource)

		_, err = DecideRecordPayment(s, RecordPayment{RentCallID: "rc-1", AmountCents: 100, PayerName: " ", Source: shared.PaymentSourceManual}, testNow)
		assert.ErrorIs(t, err, ErrMissingPayer)
	})
}

func TestSettlementMonotonicity(t *testing.T) {
	s := issuedState(t, 85000)
	previous := s.Status

	for i, amount := range []int64{10000, 20000, 30000, 25000, 5000} {
		s = pay(t, s, amount, "tx-"+string(rune('a'+i)))
		assert.False(t, s.Status.Precedes(previous), "status went backwards from %s to %s", previous, s.Status)
		previous = s.Status
	}
	assert.Equal(t, shared.SettlementStatusPaid, s.Status)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	s := pay(t, issuedState(t, 85000), 10000, "tx-1")

	events, err := DecideRecordPayment(s, RecordPayment{
		RentCallID: "rc-1", AmountCents: 5000, SourceTransactionID: "tx-2",
		PayerName: "DUPONT", Source: shared.PaymentSourceBankStatement,
	}, testNow)
	require.NoError(t, err)

	next, err := Apply(s, events[0])
	require.NoError(t, err)

	assert.Len(t, s.Payments, 1)
	assert.False(t, s.HasPaymentFor("tx-2"))
	assert.True(t, next.HasPaymentFor("tx-2"))
}

func TestReplay_CorruptStream(t *testing.T) {
	t.Run("PaymentBeforeIssue", func(t *testing.T) {
		_, err := Replay([]Event{{Kind: EventPaymentRecorded, RentCallID: "rc-1", Revision: 1, Payment: &PaymentRecorded{AmountCents: 1}}})
		var corrupt ErrCorruptStream
		assert.True(t, errors.As(err, &corrupt))
		assert.Equal(t, int64(1), corrupt.Revision)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := Replay([]Event{{Kind: "Refunded", RentCallID: "rc-1", Revision: 1}})
		assert.Error(t, err)
	})
}

func TestStreamRevision(t *testing.T) {
	assert.Equal(t, int64(0), StreamRevision(nil))
	assert.Equal(t, int64(3), StreamRevision([]Event{{Revision: 1}, {Revision: 2}, {Revision: 3}}))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRetriesExhausted{RentCallID: "rc-1", Attempts: 5, Cause: ErrRevisionConflict{RentCallID: "rc-1"}}))
	assert.True(t, IsRetryable(ErrRevisionConflict{RentCallID: "rc-1"}))
	assert.False(t, IsRetryable(ErrDuplicatePayment{RentCallID: "rc-1", SourceTransactionID: "tx-1"}))
	assert.False(t, IsRetryable(ErrInvalidAmount))
}
