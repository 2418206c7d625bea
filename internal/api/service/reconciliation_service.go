package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
	"github.com/rent-reconciliation-ledger/internal/logger"
	"github.com/rent-reconciliation-ledger/internal/reconciliation"
)

var (
	// ErrUnknownTransactions is returned when a reconciliation names transactions never imported
	ErrUnknownTransactions = errors.New("unknown transactions")

	// ErrConflictingTransactionIDs is returned when one id stands for two different lines of a request
	ErrConflictingTransactionIDs = errors.New("transaction id used more than once")

	// ErrInvalidReadModel is returned when the rent calls loaded for matching are malformed
	ErrInvalidReadModel = errors.New("rent call read model holds invalid data")
)

// ReconcileRequest names the transactions to match, by stored id or inline, and the
// month of rent calls to match them against
type ReconcileRequest struct {
	EntityID            string
	BillingMonth        string
	TransactionIDs      []string
	Transactions        []transaction.Transaction
	ExcludedRentCallIDs []string
	AutoRecord          bool // Record high-confidence matches right away
}

// RecordOutcome reports what auto-recording did with one match
type RecordOutcome string

const (
	OutcomeRecorded  RecordOutcome = "recorded"
	OutcomeDuplicate RecordOutcome = "duplicate"
	OutcomeSkipped   RecordOutcome = "skipped_debit"
	OutcomeFailed    RecordOutcome = "failed"
)

type RecordedMatch struct {
	TransactionID string        `json:"transaction_id"`
	RentCallID    string        `json:"rent_call_id"`
	Outcome       RecordOutcome `json:"outcome"`
	Error         string        `json:"error,omitempty"`
}

// ReconcileResult is the engine's proposal plus what auto-recording did. AlreadyRecorded
// lists transactions left out of matching because a payment was recorded from them before.
type ReconcileResult struct {
	*reconciliation.Result
	AlreadyRecorded []transaction.Transaction `json:"already_recorded,omitempty"`
	Recorded        []RecordedMatch           `json:"recorded,omitempty"`
}

type ReconciliationServiceImpl struct {
	transactions transaction.Repository
	rentCalls    obligation.Repository
	payments     ledger.PaymentIndex
	engine       *reconciliation.Engine
	dispatcher   LedgerDispatcher
	logger       *slog.Logger
}

func NewReconciliationService(
	logger *slog.Logger,
	transactions transaction.Repository,
	rentCalls obligation.Repository,
	payments ledger.PaymentIndex,
	engine *reconciliation.Engine,
	dispatcher LedgerDispatcher,
) *ReconciliationServiceImpl {
	return &ReconciliationServiceImpl{
		transactions: transactions,
		rentCalls:    rentCalls,
		payments:     payments,
		engine:       engine,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

func (s *ReconciliationServiceImpl) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	log := logger.FromContext(ctx, s.logger).With("entity_id", req.EntityID, "billing_month", req.BillingMonth)

	if _, err := obligation.ParseBillingMonth(req.BillingMonth); err != nil {
		return nil, err
	}

	txs, err := s.collectTransactions(ctx, req)
	if err != nil {
		return nil, err
	}
	candidates, alreadyRecorded, err := s.dropRecorded(ctx, txs)
	if err != nil {
		return nil, err
	}

	rentCalls, err := s.rentCalls.ListByEntityAndMonth(ctx, req.EntityID, req.BillingMonth)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(req.ExcludedRentCallIDs))
	for _, id := range req.ExcludedRentCallIDs {
		excluded[id] = struct{}{}
	}
	excluded = reconciliation.ExcludeSettled(rentCalls, excluded)

	// The request was validated above, so a matching failure points at the read model
	matched, err := s.engine.Match(candidates, rentCalls, excluded)
	if err != nil {
		log.Error("Rent calls of the month cannot be matched", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidReadModel, err)
	}
	log.Info("Reconciled transactions",
		"matched", matched.Summary.Matched,
		"ambiguous", matched.Summary.Ambiguous,
		"unmatched", matched.Summary.Unmatched,
		"already_recorded", len(alreadyRecorded),
		"rent_calls", matched.Summary.RentCallCount,
	)

	result := &ReconcileResult{Result: matched, AlreadyRecorded: alreadyRecorded}
	if req.AutoRecord {
		result.Recorded = s.recordHighConfidence(ctx, log, matched.Matches)
	}
	return result, nil
}

// collectTransactions merges inline lines with the stored ones named by id. A stored id
// listed twice is loaded once; an id carried by two different lines is rejected.
func (s *ReconciliationServiceImpl) collectTransactions(ctx context.Context, req ReconcileRequest) ([]transaction.Transaction, error) {
	txs := slices.Clone(req.Transactions)
	seen := make(map[string]struct{}, len(txs)+len(req.TransactionIDs))
	for i := range txs {
		if err := txs[i].Validate(); err != nil {
			return nil, fmt.Errorf("transaction %q: %w", txs[i].ID, err)
		}
		if _, dup := seen[txs[i].ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrConflictingTransactionIDs, txs[i].ID)
		}
		seen[txs[i].ID] = struct{}{}
	}

	ids := slices.Clone(req.TransactionIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return txs, nil
	}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q is both inline and stored", ErrConflictingTransactionIDs, id)
		}
	}

	stored, err := s.transactions.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(stored) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d transactions found", ErrUnknownTransactions, len(stored), len(ids))
	}
	for i := range stored {
		if err := stored[i].Validate(); err != nil {
			return nil, fmt.Errorf("transaction %q: %w", stored[i].ID, err)
		}
	}
	return append(txs, stored...), nil
}

// dropRecorded splits off transactions that already back a recorded payment
func (s *ReconciliationServiceImpl) dropRecorded(ctx context.Context, txs []transaction.Transaction) (candidates, recorded []transaction.Transaction, err error) {
	if len(txs) == 0 {
		return txs, nil, nil
	}
	ids := make([]string, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	recordedIDs, err := s.payments.RecordedTransactions(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	if len(recordedIDs) == 0 {
		return txs, nil, nil
	}

	for _, tx := range txs {
		if slices.Contains(recordedIDs, tx.ID) {
			recorded = append(recorded, tx)
			continue
		}
		candidates = append(candidates, tx)
	}
	return candidates, recorded, nil
}

// recordHighConfidence turns high-confidence matches into payments. Each match is
// independent: a failure is reported and the next match is still attempted.
func (s *ReconciliationServiceImpl) recordHighConfidence(ctx context.Context, log *slog.Logger, matches []reconciliation.Match) []RecordedMatch {
	var recorded []RecordedMatch
	for _, m := range matches {
		if m.Confidence != shared.ConfidenceHigh {
			continue
		}
		outcome := RecordedMatch{TransactionID: m.Transaction.ID, RentCallID: m.RentCallID}

		if !m.Transaction.IsCredit() {
			outcome.Outcome = OutcomeSkipped
			recorded = append(recorded, outcome)
			continue
		}

		_, err := s.dispatcher.RecordPayment(ctx, ledger.RecordPayment{
			RentCallID:          m.RentCallID,
			AmountCents:         m.Transaction.AmountCents,
			SourceTransactionID: m.Transaction.ID,
			PayerName:           m.Transaction.PayerName,
			PaymentDate:         m.Transaction.Date,
			Source:              shared.PaymentSourceBankStatement,
		})
		switch {
		case err == nil:
			outcome.Outcome = OutcomeRecorded
		case errors.Is(err, ledger.ErrDuplicatePayment{}):
			outcome.Outcome = OutcomeDuplicate
		default:
			log.Error("Failed to record matched payment",
				"transaction_id", m.Transaction.ID,
				"rent_call_id", m.RentCallID,
				"error", err,
			)
			outcome.Outcome = OutcomeFailed
			outcome.Error = err.Error()
		}
		recorded = append(recorded, outcome)
	}
	return recorded
}
