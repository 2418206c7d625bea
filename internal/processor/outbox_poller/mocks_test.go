package outbox_poller

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/outbox"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) GetByEventID(ctx context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockProjector struct {
	mock.Mock
}

func (m *MockProjector) Project(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value any, headers map[string]string) error {
	return m.Called(ctx, key, value, headers).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

type MockRentCallRepo struct {
	mock.Mock
}

func (m *MockRentCallRepo) Upsert(ctx context.Context, o *obligation.Obligation) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockRentCallRepo) GetByID(ctx context.Context, id string) (*obligation.Obligation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*obligation.Obligation), args.Error(1)
}

func (m *MockRentCallRepo) ListByEntityAndMonth(ctx context.Context, entityID, billingMonth string) ([]obligation.Obligation, error) {
	args := m.Called(ctx, entityID, billingMonth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]obligation.Obligation), args.Error(1)
}
