package service

import (
	"context"
	"io"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
)

// LedgerDispatcher runs commands against rent call streams
type LedgerDispatcher interface {
	IssueRentCall(ctx context.Context, cmd ledger.IssueRentCall) (ledger.State, error)
	RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error)
	Get(ctx context.Context, rentCallID string) (ledger.State, error)
}

// ImportService records bank statement batches, skipping lines already imported
type ImportService interface {
	Import(ctx context.Context, batches []AccountBatch) (*ImportResult, error)
	ImportStatement(ctx context.Context, accountID string, statement io.Reader) (*ImportResult, error)
}

// ReconciliationService matches bank transactions against a month of rent calls
type ReconciliationService interface {
	Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error)
}

// PaymentService exposes rent call streams and their read model
type PaymentService interface {
	IssueRentCall(ctx context.Context, cmd ledger.IssueRentCall) (ledger.State, error)
	RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error)
	GetRentCall(ctx context.Context, rentCallID string) (ledger.State, error)
	ListRentCalls(ctx context.Context, entityID, billingMonth string) ([]obligation.Obligation, error)
}
