package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
)

// EventStore is an in-process ledger.EventStore. It enforces the same revision and
// source transaction guards as the Postgres store and is safe for concurrent use.
type EventStore struct {
	mu      sync.Mutex
	streams map[string][]ledger.Event
}

func NewEventStore() *EventStore {
	return &EventStore{streams: make(map[string][]ledger.Event)}
}

func (s *EventStore) Load(ctx context.Context, rentCallID string) ([]ledger.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.streams[rentCallID]), nil
}

func (s *EventStore) Append(ctx context.Context, rentCallID string, expectedRevision int64, events []ledger.Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[rentCallID]
	current := ledger.StreamRevision(stream)
	if current != expectedRevision {
		return 0, ledger.ErrRevisionConflict{RentCallID: rentCallID, Expected: expectedRevision, Actual: current}
	}

	for _, e := range events {
		id := e.SourceTransactionID()
		if id == "" {
			continue
		}
		for _, stored := range stream {
			if stored.SourceTransactionID() == id {
				return 0, ledger.ErrDuplicatePayment{RentCallID: rentCallID, SourceTransactionID: id}
			}
		}
	}

	revision := current
	appended := slices.Clone(stream)
	for _, e := range events {
		revision++
		e.RentCallID = rentCallID
		e.Revision = revision
		appended = append(appended, e)
	}
	s.streams[rentCallID] = appended
	return revision, nil
}

func (s *EventStore) RecordedTransactions(ctx context.Context, transactionIDs []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var recorded []string
	for _, id := range transactionIDs {
		if slices.Contains(recorded, id) {
			continue
		}
	streams:
		for _, stream := range s.streams {
			for _, e := range stream {
				if e.SourceTransactionID() == id {
					recorded = append(recorded, id)
					break streams
				}
			}
		}
	}
	return recorded, nil
}
