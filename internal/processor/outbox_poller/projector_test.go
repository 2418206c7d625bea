package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rent-reconciliation-ledger/internal/data/memory"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/outbox"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) (*memory.EventStore, ledger.Event) {
	t.Helper()
	store := memory.NewEventStore()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	issued, err := ledger.DecideIssue(ledger.State{}, ledger.IssueRentCall{
		RentCallID: "rc-1", EntityID: "ent-1", LeaseID: "L-42", BillingMonth: "2026-02", TotalAmountCents: 85000,
	}, now)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), "rc-1", 0, issued)
	require.NoError(t, err)

	events, err := store.Load(context.Background(), "rc-1")
	require.NoError(t, err)
	state, err := ledger.Replay(events)
	require.NoError(t, err)

	paid, err := ledger.DecideRecordPayment(state, ledger.RecordPayment{
		RentCallID: "rc-1", AmountCents: 40000, SourceTransactionID: "tx-1", PayerName: "DUPONT", Source: shared.PaymentSourceBankStatement,
	}, now)
	require.NoError(t, err)
	_, err = store.Append(context.Background(), "rc-1", 1, paid)
	require.NoError(t, err)

	events, err = store.Load(context.Background(), "rc-1")
	require.NoError(t, err)
	return store, events[1]
}

func TestRentCallProjector_Project(t *testing.T) {
	ctx := context.Background()
	store, payment := seededStore(t)
	message, err := outbox.NewMessage(payment)
	require.NoError(t, err)
	message.ID = 7

	t.Run("publishes and refreshes the read model", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		publisher := &MockPublisher{}
		rentCalls := &MockRentCallRepo{}

		publisher.On("Publish", mock.Anything, "rc-1", message.Payload, mock.MatchedBy(func(h map[string]string) bool {
			return h["event-kind"] == string(ledger.EventPaymentRecorded) && h["revision"] == "2"
		})).Return(nil).Once()
		rentCalls.On("Upsert", mock.Anything, mock.MatchedBy(func(o *obligation.Obligation) bool {
			return o.ID == "rc-1" &&
				o.Revision == 2 &&
				o.PaidAmountCents == 40000 &&
				o.SettlementStatus == shared.SettlementStatusPartial
		})).Return(nil).Once()
		repo.On("UpdateStatus", mock.Anything, int64(7), shared.OutboxStatusProcessed).Return(nil).Once()

		projector := NewRentCallProjector(repo, store, rentCalls, publisher, slog.Default())
		require.NoError(t, projector.Project(ctx, message))

		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
		rentCalls.AssertExpectations(t)
	})

	t.Run("publish failure leaves message pending", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		publisher := &MockPublisher{}
		rentCalls := &MockRentCallRepo{}
		publishErr := errors.New("leader not available")

		publisher.On("Publish", mock.Anything, "rc-1", message.Payload, mock.Anything).Return(publishErr).Once()

		projector := NewRentCallProjector(repo, store, rentCalls, publisher, slog.Default())
		assert.ErrorIs(t, projector.Project(ctx, message), publishErr)

		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		rentCalls.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("undecodable payload is marked failed", func(t *testing.T) {
		repo := &MockOutboxRepo{}
		broken := &outbox.Message{ID: 9, RentCallID: "rc-1", Payload: json.RawMessage(`{"kind":`)}
		repo.On("UpdateStatus", mock.Anything, int64(9), shared.OutboxStatusFailedToPublish).Return(nil).Once()

		projector := NewRentCallProjector(repo, store, &MockRentCallRepo{}, &MockPublisher{}, slog.Default())
		assert.Error(t, projector.Project(ctx, broken))
		repo.AssertExpectations(t)
	})
}
