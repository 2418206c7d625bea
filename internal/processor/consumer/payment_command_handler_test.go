package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/rent-reconciliation-ledger/internal/logger"
	"github.com/rent-reconciliation-ledger/internal/platform/messaging/consumers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPaymentRecorder struct {
	mock.Mock
}

func (m *MockPaymentRecorder) RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(ledger.State), args.Error(1)
}

type MockDLQ struct {
	mock.Mock
}

func (m *MockDLQ) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDLQ) Close() error {
	return m.Called().Error(0)
}

// inlineRunner runs tasks on the calling goroutine
type inlineRunner struct{}

func (inlineRunner) Run(ctx context.Context, task func(ctx context.Context) error) error {
	return task(ctx)
}

func commandMessage(t *testing.T, cmd shared.PaymentCommand) consumers.Message {
	t.Helper()
	value, err := json.Marshal(cmd)
	require.NoError(t, err)
	return consumers.Message{Key: []byte(cmd.RentCallID), Value: value, Headers: map[string]string{}}
}

func TestPaymentCommandHandler_HandleMessage(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	cmd := shared.PaymentCommand{
		CommandID:           "cmd-1",
		RentCallID:          "rc-1",
		AmountCents:         85000,
		SourceTransactionID: "ob-77",
		PayerName:           "DUPONT JEAN",
		PaymentDate:         time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
		Source:              shared.PaymentSourceOpenBanking,
		CorrelationID:       "corr-1",
	}
	expected := ledger.RecordPayment{
		RentCallID:          "rc-1",
		AmountCents:         85000,
		SourceTransactionID: "ob-77",
		PayerName:           "DUPONT JEAN",
		PaymentDate:         cmd.PaymentDate,
		Source:              shared.PaymentSourceOpenBanking,
	}

	tests := []struct {
		name        string
		msg         func() consumers.Message
		setupMocks  func(r *MockPaymentRecorder, d *MockDLQ)
		expectError bool
	}{
		{
			name: "records payment",
			msg:  func() consumers.Message { return commandMessage(t, cmd) },
			setupMocks: func(r *MockPaymentRecorder, d *MockDLQ) {
				r.On("RecordPayment", mock.MatchedBy(func(ctx context.Context) bool {
					return logger.CorrelationID(ctx) == "corr-1"
				}), expected).Return(ledger.State{Status: shared.SettlementStatusPaid}, nil).Once()
			},
		},
		{
			name: "duplicate is acknowledged",
			msg:  func() consumers.Message { return commandMessage(t, cmd) },
			setupMocks: func(r *MockPaymentRecorder, d *MockDLQ) {
				r.On("RecordPayment", mock.Anything, expected).
					Return(ledger.State{}, ledger.ErrDuplicatePayment{RentCallID: "rc-1", SourceTransactionID: "ob-77"}).Once()
			},
		},
		{
			name: "unknown rent call goes to DLQ",
			msg:  func() consumers.Message { return commandMessage(t, cmd) },
			setupMocks: func(r *MockPaymentRecorder, d *MockDLQ) {
				r.On("RecordPayment", mock.Anything, expected).
					Return(ledger.State{}, ledger.ErrRentCallNotFound{RentCallID: "rc-1"}).Once()
				d.On("PublishToDLQ", mock.Anything, "rc-1", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()
			},
		},
		{
			name: "retryable failure is redelivered",
			msg:  func() consumers.Message { return commandMessage(t, cmd) },
			setupMocks: func(r *MockPaymentRecorder, d *MockDLQ) {
				r.On("RecordPayment", mock.Anything, expected).
					Return(ledger.State{}, ledger.ErrRetriesExhausted{RentCallID: "rc-1", Attempts: 5}).Once()
			},
			expectError: true,
		},
		{
			name: "invalid command goes to DLQ",
			msg: func() consumers.Message {
				bad := cmd
				bad.AmountCents = 0
				return commandMessage(t, bad)
			},
			setupMocks: func(r *MockPaymentRecorder, d *MockDLQ) {
				d.On("PublishToDLQ", mock.Anything, "rc-1", mock.Anything, shared.ErrInvalidPayment.Error()).Return(nil).Once()
			},
		},
		{
			name: "malformed message goes to DLQ",
			msg: func() consumers.Message {
				return consumers.Message{Key: []byte("k"), Value: []byte("{not json")}
			},
			setupMocks: func(r *MockPaymentRecorder, d *MockDLQ) {
				d.On("PublishToDLQ", mock.Anything, "k", []byte("{not json"), mock.AnythingOfType("string")).Return(nil).Once()
			},
		},
		{
			name: "DLQ failure keeps message uncommitted",
			msg: func() consumers.Message {
				return consumers.Message{Key: []byte("k"), Value: []byte("{not json")}
			},
			setupMocks: func(r *MockPaymentRecorder, d *MockDLQ) {
				d.On("PublishToDLQ", mock.Anything, "k", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &MockPaymentRecorder{}
			dlq := &MockDLQ{}
			tt.setupMocks(recorder, dlq)

			handler := NewPaymentCommandHandler(log, recorder, inlineRunner{}, dlq)
			err := handler.HandleMessage(ctx, tt.msg())

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			recorder.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}
