package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/outbox"
	"github.com/rent-reconciliation-ledger/internal/platform/persistence"
)

const (
	eventsPrimaryKey     = "rent_call_events_pkey"
	eventsSourceTxUnique = "rent_call_events_source_tx_key"
)

// EventStore keeps one append-only stream per rent call in rent_call_events. Every appended
// event is written to the outbox in the same transaction.
type EventStore struct {
	db     persistence.TxBeginner
	outbox outbox.Repository
	logger *slog.Logger
}

func NewEventStore(logger *slog.Logger, db *persistence.PostgresDB, outboxRepo outbox.Repository) *EventStore {
	return &EventStore{
		db:     db.Pool(),
		outbox: outboxRepo,
		logger: logger,
	}
}

// Load returns the stream in revision order; an unknown rent call yields an empty stream
func (s *EventStore) Load(ctx context.Context, rentCallID string) ([]ledger.Event, error) {
	query := `
		SELECT revision, payload
		FROM rent_call_events
		WHERE rent_call_id = $1
		ORDER BY revision ASC
	`

	rows, err := s.db.Query(ctx, query, rentCallID)
	if err != nil {
		s.logger.Error("Failed to load rent call stream", "rent_call_id", rentCallID, "error", err)
		return nil, fmt.Errorf("failed to load rent call stream: %w", err)
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var revision int64
		var payload []byte
		if err := rows.Scan(&revision, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan rent call event: %w", err)
		}
		var e ledger.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			s.logger.Error("Failed to decode rent call event",
				"rent_call_id", rentCallID,
				"revision", revision,
				"error", err,
			)
			return nil, fmt.Errorf("failed to decode rent call event %s/%d: %w", rentCallID, revision, err)
		}
		e.Revision = revision
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rent call events: %w", err)
	}
	return events, nil
}

// RecordedTransactions returns the ids among transactionIDs that are the source of a stored payment
func (s *EventStore) RecordedTransactions(ctx context.Context, transactionIDs []string) ([]string, error) {
	query := `
		SELECT DISTINCT source_transaction_id
		FROM rent_call_events
		WHERE source_transaction_id = ANY($1)
	`

	rows, err := s.db.Query(ctx, query, transactionIDs)
	if err != nil {
		s.logger.Error("Failed to look up recorded transactions", "count", len(transactionIDs), "error", err)
		return nil, fmt.Errorf("failed to look up recorded transactions: %w", err)
	}
	defer rows.Close()

	var recorded []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recorded transaction id: %w", err)
		}
		recorded = append(recorded, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over recorded transactions: %w", err)
	}
	return recorded, nil
}

// Append writes events after expectedRevision and returns the new stream revision
func (s *EventStore) Append(ctx context.Context, rentCallID string, expectedRevision int64, events []ledger.Event) (int64, error) {
	if len(events) == 0 {
		return expectedRevision, nil
	}

	revision := expectedRevision
	err := persistence.ExecuteTx(ctx, s.db, func(tx pgx.Tx) error {
		var current int64
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(revision), 0) FROM rent_call_events WHERE rent_call_id = $1`,
			rentCallID,
		).Scan(&current)
		if err != nil {
			return fmt.Errorf("failed to read stream revision: %w", err)
		}
		if current != expectedRevision {
			return ledger.ErrRevisionConflict{RentCallID: rentCallID, Expected: expectedRevision, Actual: current}
		}

		outboxRepo := s.outbox.WithTx(tx)
		for _, e := range events {
			revision++
			e.RentCallID = rentCallID
			e.Revision = revision
			if err := s.insertEvent(ctx, tx, e); err != nil {
				return err
			}

			message, err := outbox.NewMessage(e)
			if err != nil {
				return fmt.Errorf("failed to build outbox message: %w", err)
			}
			if err := outboxRepo.Create(ctx, message); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ledger.ErrRevisionConflict{}) && !errors.Is(err, ledger.ErrDuplicatePayment{}) {
			s.logger.Error("Failed to append rent call events",
				"rent_call_id", rentCallID,
				"expected_revision", expectedRevision,
				"error", err,
			)
		}
		return 0, err
	}
	return revision, nil
}

func (s *EventStore) insertEvent(ctx context.Context, tx pgx.Tx, e ledger.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode rent call event: %w", err)
	}

	var sourceTx *string
	if id := e.SourceTransactionID(); id != "" {
		sourceTx = &id
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rent_call_events (rent_call_id, revision, event_id, kind, source_transaction_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.RentCallID, e.Revision, e.ID, e.Kind, sourceTx, payload, e.OccurredAt)
	if err == nil {
		return nil
	}

	switch constraint, ok := persistence.UniqueViolation(err); {
	case ok && constraint == eventsSourceTxUnique:
		return ledger.ErrDuplicatePayment{RentCallID: e.RentCallID, SourceTransactionID: e.SourceTransactionID()}
	case ok && constraint == eventsPrimaryKey:
		return ledger.ErrRevisionConflict{RentCallID: e.RentCallID, Expected: e.Revision - 1, Actual: e.Revision}
	}
	return fmt.Errorf("failed to insert rent call event: %w", err)
}
