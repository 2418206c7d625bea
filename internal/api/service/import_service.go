package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
	"github.com/rent-reconciliation-ledger/internal/importer"
	"github.com/rent-reconciliation-ledger/internal/logger"
	"github.com/rent-reconciliation-ledger/internal/platform/persistence"
	"github.com/rent-reconciliation-ledger/internal/reconciliation"
)

// AccountBatch is the statement of one bank account
type AccountBatch struct {
	AccountID    string
	Transactions []transaction.Transaction
}

// BatchOutcome splits one batch into stored lines and lines already seen
type BatchOutcome struct {
	AccountID  string                    `json:"account_id"`
	Imported   []transaction.Transaction `json:"imported"`
	Duplicates []transaction.Transaction `json:"duplicates"`
}

type ImportResult struct {
	Batches    []BatchOutcome      `json:"batches"`
	Imported   int                 `json:"imported"`
	Duplicates int                 `json:"duplicates"`
	Rejected   []importer.RowError `json:"rejected,omitempty"`
}

type ImportServiceImpl struct {
	db     persistence.TxBeginner
	repo   transaction.Repository
	logger *slog.Logger
}

func NewImportService(logger *slog.Logger, db persistence.TxBeginner, repo transaction.Repository) *ImportServiceImpl {
	return &ImportServiceImpl{
		db:     db,
		repo:   repo,
		logger: logger,
	}
}

// Import processes batches in order against one running key set, seeded with every stored
// key the incoming lines carry, whatever their booking date. A line repeated by a later
// batch of the same pass is a duplicate; lines repeated inside one batch are kept, as real
// statements can carry them.
func (s *ImportServiceImpl) Import(ctx context.Context, batches []AccountBatch) (*ImportResult, error) {
	log := logger.FromContext(ctx, s.logger)

	normalized := make([]AccountBatch, len(batches))
	for i, batch := range batches {
		txs := slices.Clone(batch.Transactions)
		for j := range txs {
			if txs[j].AccountID == "" {
				txs[j].AccountID = batch.AccountID
			}
			if err := txs[j].Validate(); err != nil {
				return nil, fmt.Errorf("batch %s line %d: %w", batch.AccountID, j+1, err)
			}
		}
		normalized[i] = AccountBatch{AccountID: batch.AccountID, Transactions: txs}
	}

	seen, err := s.storedKeys(ctx, normalized)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Batches: make([]BatchOutcome, 0, len(normalized))}
	for _, batch := range normalized {
		fresh, duplicates := reconciliation.FilterNew(batch.Transactions, seen)

		if len(fresh) > 0 {
			freshKeys := make([]string, len(fresh))
			for i, tx := range fresh {
				freshKeys[i] = reconciliation.TransactionKey(tx)
			}
			err := persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
				return s.repo.WithTx(tx).SaveBatch(ctx, fresh, freshKeys)
			})
			if err != nil {
				log.Error("Failed to store statement batch", "account_id", batch.AccountID, "error", err)
				return nil, fmt.Errorf("import batch %s: %w", batch.AccountID, err)
			}
			seen.AddTransactions(fresh)
		}

		log.Info("Imported statement batch",
			"account_id", batch.AccountID,
			"imported", len(fresh),
			"duplicates", len(duplicates),
		)
		result.Batches = append(result.Batches, BatchOutcome{
			AccountID:  batch.AccountID,
			Imported:   fresh,
			Duplicates: duplicates,
		})
		result.Imported += len(fresh)
		result.Duplicates += len(duplicates)
	}
	return result, nil
}

// storedKeys looks up which of the incoming lines' keys are already recorded
func (s *ImportServiceImpl) storedKeys(ctx context.Context, batches []AccountBatch) (reconciliation.KeySet, error) {
	incoming := make([]string, 0)
	for _, batch := range batches {
		for _, tx := range batch.Transactions {
			incoming = append(incoming, reconciliation.TransactionKey(tx))
		}
	}
	if len(incoming) == 0 {
		return reconciliation.NewKeySet(), nil
	}
	slices.Sort(incoming)
	incoming = slices.Compact(incoming)

	keys, err := s.repo.ExistingKeys(ctx, incoming)
	if err != nil {
		return nil, err
	}
	return reconciliation.NewKeySet(keys...), nil
}

// ImportStatement parses a CSV statement and imports its valid lines. Rejected lines are
// reported alongside the outcome instead of failing the upload.
func (s *ImportServiceImpl) ImportStatement(ctx context.Context, accountID string, statement io.Reader) (*ImportResult, error) {
	parsed, err := importer.ParseStatement(statement, accountID)
	if err != nil {
		return nil, err
	}

	result, err := s.Import(ctx, []AccountBatch{{AccountID: accountID, Transactions: parsed.Transactions}})
	if err != nil {
		return nil, err
	}
	result.Rejected = parsed.Rejected
	return result, nil
}
