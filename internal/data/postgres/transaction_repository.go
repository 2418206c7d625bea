package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
	"github.com/rent-reconciliation-ledger/internal/platform/persistence"
)

// TransactionRepository stores imported bank lines with their dedup key
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) *TransactionRepository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// SaveBatch inserts transactions with keys[i] belonging to transactions[i]. Run it through
// WithTx to make a batch atomic. A line whose id is already stored fails the batch with
// ErrIDConflict instead of being counted as imported.
func (r *TransactionRepository) SaveBatch(ctx context.Context, transactions []transaction.Transaction, keys []string) error {
	if len(transactions) != len(keys) {
		return fmt.Errorf("save batch: %d transactions but %d keys", len(transactions), len(keys))
	}

	query := `
		INSERT INTO bank_transactions (id, account_id, booked_on, amount_cents, payer_name, reference, dedup_key, raw_payload, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	for i, tx := range transactions {
		result, err := r.querier.Exec(ctx, query,
			tx.ID,
			tx.AccountID,
			tx.Date,
			tx.AmountCents,
			tx.PayerName,
			tx.Reference,
			keys[i],
			nullableJSON(tx.RawPayload),
			tx.ImportedAt,
		)
		if err != nil {
			r.logger.Error("Failed to save bank transaction",
				"transaction_id", tx.ID,
				"account_id", tx.AccountID,
				"error", err,
			)
			return fmt.Errorf("failed to save bank transaction %s: %w", tx.ID, err)
		}
		if result.RowsAffected() == 0 {
			r.logger.Warn("Bank transaction id already stored",
				"transaction_id", tx.ID,
				"account_id", tx.AccountID,
			)
			return transaction.ErrIDConflict{ID: tx.ID}
		}
	}
	return nil
}

// ExistingKeys returns which of keys are already recorded, regardless of booking date
func (r *TransactionRepository) ExistingKeys(ctx context.Context, keys []string) ([]string, error) {
	query := `SELECT DISTINCT dedup_key FROM bank_transactions WHERE dedup_key = ANY($1)`

	rows, err := r.querier.Query(ctx, query, keys)
	if err != nil {
		r.logger.Error("Failed to load existing dedup keys", "count", len(keys), "error", err)
		return nil, fmt.Errorf("failed to load existing dedup keys: %w", err)
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan dedup key: %w", err)
		}
		existing = append(existing, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over dedup keys: %w", err)
	}
	return existing, nil
}

// GetByIDs returns the stored transactions among ids, ordered by id; unknown ids are skipped
func (r *TransactionRepository) GetByIDs(ctx context.Context, ids []string) ([]transaction.Transaction, error) {
	query := `
		SELECT id, account_id, booked_on, amount_cents, payer_name, reference, raw_payload, imported_at
		FROM bank_transactions
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to get bank transactions", "count", len(ids), "error", err)
		return nil, fmt.Errorf("failed to get bank transactions: %w", err)
	}
	defer rows.Close()

	var transactions []transaction.Transaction
	for rows.Next() {
		var tx transaction.Transaction
		var raw []byte
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Date, &tx.AmountCents, &tx.PayerName, &tx.Reference, &raw, &tx.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bank transaction: %w", err)
		}
		tx.RawPayload = raw
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over bank transactions: %w", err)
	}
	return transactions, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
