package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) SaveBatch(ctx context.Context, transactions []transaction.Transaction, keys []string) error {
	args := m.Called(ctx, transactions, keys)
	return args.Error(0)
}

func (m *MockTransactionRepo) ExistingKeys(ctx context.Context, keys []string) ([]string, error) {
	args := m.Called(ctx, keys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTransactionRepo) GetByIDs(ctx context.Context, ids []string) ([]transaction.Transaction, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m
}

type MockRentCallRepo struct {
	mock.Mock
}

func (m *MockRentCallRepo) Upsert(ctx context.Context, o *obligation.Obligation) error {
	args := m.Called(ctx, o)
	return args.Error(0)
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

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) IssueRentCall(ctx context.Context, cmd ledger.IssueRentCall) (ledger.State, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(ledger.State), args.Error(1)
}

func (m *MockDispatcher) RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(ledger.State), args.Error(1)
}

func (m *MockDispatcher) Get(ctx context.Context, rentCallID string) (ledger.State, error) {
	args := m.Called(ctx, rentCallID)
	return args.Get(0).(ledger.State), args.Error(1)
}
