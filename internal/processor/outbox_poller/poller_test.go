package outbox_poller

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/rent-reconciliation-ledger/internal/domain/outbox"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPoller_ProcessPendingMessages(t *testing.T) {
	logger := slog.Default()
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	message1 := &outbox.Message{ID: 1, RentCallID: "rc-1", Revision: 1, Status: shared.OutboxStatusPending}
	message2 := &outbox.Message{ID: 2, RentCallID: "rc-2", Revision: 2, Status: shared.OutboxStatusPending}
	lastChance := &outbox.Message{ID: 3, RentCallID: "rc-3", Revision: 1, Status: shared.OutboxStatusPending, Attempts: 2}

	tests := []struct {
		name          string
		setupMocks    func(repo *MockOutboxRepo, projector *MockProjector)
		expectedError string
	}{
		{
			name: "projects every pending message",
			setupMocks: func(repo *MockOutboxRepo, projector *MockProjector) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				projector.On("Project", mock.Anything, message1).Return(nil).Once()
				projector.On("Project", mock.Anything, message2).Return(nil).Once()
			},
		},
		{
			name: "error getting pending messages",
			setupMocks: func(repo *MockOutboxRepo, projector *MockProjector) {
				repo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: "failed to get pending outbox messages",
		},
		{
			name: "no pending messages",
			setupMocks: func(repo *MockOutboxRepo, projector *MockProjector) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
		},
		{
			name: "failed message does not block the batch",
			setupMocks: func(repo *MockOutboxRepo, projector *MockProjector) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				projector.On("Project", mock.Anything, message1).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()
				projector.On("Project", mock.Anything, message2).Return(nil).Once()
			},
		},
		{
			name: "max retry attempts reached",
			setupMocks: func(repo *MockOutboxRepo, projector *MockProjector) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{lastChance}, nil).Once()
				projector.On("Project", mock.Anything, lastChance).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(3), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockOutboxRepo{}
			projector := &MockProjector{}
			tt.setupMocks(repo, projector)

			poller := NewPoller(cfg, repo, projector, logger)
			err := poller.processPendingMessages(context.Background())

			if tt.expectedError != "" {
				assert.ErrorContains(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
			projector.AssertExpectations(t)
		})
	}
}

func TestPoller_Start(t *testing.T) {
	repo := &MockOutboxRepo{}
	projector := &MockProjector{}
	cfg := &config.OutboxConfig{PollingInterval: 10 * time.Millisecond, BatchSize: 10, MaxRetryAttempts: 3}

	repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		NewPoller(cfg, repo, projector, slog.Default()).Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
	repo.AssertCalled(t, "GetPending", mock.Anything, 10)
}
