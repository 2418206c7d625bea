package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/rent-reconciliation-ledger/internal/api/service"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) IssueRentCall(ctx context.Context, cmd ledger.IssueRentCall) (ledger.State, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(ledger.State), args.Error(1)
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(ledger.State), args.Error(1)
}

func (m *MockPaymentService) GetRentCall(ctx context.Context, rentCallID string) (ledger.State, error) {
	args := m.Called(ctx, rentCallID)
	return args.Get(0).(ledger.State), args.Error(1)
}

func (m *MockPaymentService) ListRentCalls(ctx context.Context, entityID, billingMonth string) ([]obligation.Obligation, error) {
	args := m.Called(ctx, entityID, billingMonth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]obligation.Obligation), args.Error(1)
}

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) Import(ctx context.Context, batches []service.AccountBatch) (*service.ImportResult, error) {
	args := m.Called(ctx, batches)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportResult), args.Error(1)
}

func (m *MockImportService) ImportStatement(ctx context.Context, accountID string, statement io.Reader) (*service.ImportResult, error) {
	args := m.Called(ctx, accountID, statement)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportResult), args.Error(1)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Reconcile(ctx context.Context, req service.ReconcileRequest) (*service.ReconcileResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReconcileResult), args.Error(1)
}
