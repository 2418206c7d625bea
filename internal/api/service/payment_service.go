package service

import (
	"context"
	"log/slog"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/logger"
)

type PaymentServiceImpl struct {
	dispatcher LedgerDispatcher
	rentCalls  obligation.Repository
	logger     *slog.Logger
}

func NewPaymentService(logger *slog.Logger, dispatcher LedgerDispatcher, rentCalls obligation.Repository) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		dispatcher: dispatcher,
		rentCalls:  rentCalls,
		logger:     logger,
	}
}

func (s *PaymentServiceImpl) IssueRentCall(ctx context.Context, cmd ledger.IssueRentCall) (ledger.State, error) {
	state, err := s.dispatcher.IssueRentCall(ctx, cmd)
	if err != nil {
		return ledger.State{}, err
	}
	logger.FromContext(ctx, s.logger).Info("Issued rent call",
		"rent_call_id", state.RentCallID,
		"lease_id", state.LeaseID,
		"billing_month", state.BillingMonth,
	)
	return state, nil
}

func (s *PaymentServiceImpl) RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error) {
	state, err := s.dispatcher.RecordPayment(ctx, cmd)
	if err != nil {
		return ledger.State{}, err
	}
	logger.FromContext(ctx, s.logger).Info("Recorded payment",
		"rent_call_id", state.RentCallID,
		"source", string(cmd.Source),
		"amount_cents", cmd.AmountCents,
		"settlement_status", string(state.Status),
	)
	return state, nil
}

// GetRentCall replays the stream, so it reflects every recorded payment immediately
func (s *PaymentServiceImpl) GetRentCall(ctx context.Context, rentCallID string) (ledger.State, error) {
	return s.dispatcher.Get(ctx, rentCallID)
}

// ListRentCalls reads the projected read model, which trails the streams by one poll
func (s *PaymentServiceImpl) ListRentCalls(ctx context.Context, entityID, billingMonth string) ([]obligation.Obligation, error) {
	if _, err := obligation.ParseBillingMonth(billingMonth); err != nil {
		return nil, err
	}
	return s.rentCalls.ListByEntityAndMonth(ctx, entityID, billingMonth)
}
