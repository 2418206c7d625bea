package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/logger"
)

// decideFunc turns the current state of a stream into the events a command produces
type decideFunc func(s ledger.State, now time.Time) ([]ledger.Event, error)

// Dispatcher runs ledger commands with optimistic concurrency: load the stream, replay it,
// decide, and append conditioned on the revision that was read. A conflicting append is
// retried against the fresh stream until MaxAttempts or CommandTimeout runs out.
type Dispatcher struct {
	store  ledger.EventStore
	cfg    config.LedgerConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger, store ledger.EventStore, cfg config.LedgerConfig) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Dispatcher{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// IssueRentCall opens the stream of a new rent call
func (d *Dispatcher) IssueRentCall(ctx context.Context, cmd ledger.IssueRentCall) (ledger.State, error) {
	return d.execute(ctx, cmd.RentCallID, func(s ledger.State, now time.Time) ([]ledger.Event, error) {
		return ledger.DecideIssue(s, cmd, now)
	})
}

// RecordPayment records at most one payment per source transaction on a rent call
func (d *Dispatcher) RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error) {
	return d.execute(ctx, cmd.RentCallID, func(s ledger.State, now time.Time) ([]ledger.Event, error) {
		return ledger.DecideRecordPayment(s, cmd, now)
	})
}

// Get replays the stream of a rent call
func (d *Dispatcher) Get(ctx context.Context, rentCallID string) (ledger.State, error) {
	events, err := d.store.Load(ctx, rentCallID)
	if err != nil {
		return ledger.State{}, err
	}
	state, err := ledger.Replay(events)
	if err != nil {
		return ledger.State{}, err
	}
	if !state.Exists() {
		return ledger.State{}, ledger.ErrRentCallNotFound{RentCallID: rentCallID}
	}
	return state, nil
}

func (d *Dispatcher) execute(ctx context.Context, rentCallID string, decide decideFunc) (ledger.State, error) {
	log := logger.FromContext(ctx, d.logger).With("rent_call_id", rentCallID)

	if d.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.CommandTimeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		state, err := d.attempt(ctx, rentCallID, decide)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, ledger.ErrRevisionConflict{}) {
			if ctx.Err() != nil {
				return ledger.State{}, ledger.ErrRetriesExhausted{RentCallID: rentCallID, Attempts: attempt, Cause: err}
			}
			return ledger.State{}, err
		}

		lastErr = err
		log.Debug("Revision conflict, retrying command", "attempt", attempt, "error", err)
		if attempt == d.cfg.MaxAttempts {
			break
		}
		if err := d.backoff(ctx); err != nil {
			return ledger.State{}, ledger.ErrRetriesExhausted{RentCallID: rentCallID, Attempts: attempt, Cause: err}
		}
	}

	log.Warn("Command retries exhausted", "attempts", d.cfg.MaxAttempts, "error", lastErr)
	return ledger.State{}, ledger.ErrRetriesExhausted{RentCallID: rentCallID, Attempts: d.cfg.MaxAttempts, Cause: lastErr}
}

func (d *Dispatcher) attempt(ctx context.Context, rentCallID string, decide decideFunc) (ledger.State, error) {
	events, err := d.store.Load(ctx, rentCallID)
	if err != nil {
		return ledger.State{}, err
	}
	state, err := ledger.Replay(events)
	if err != nil {
		return ledger.State{}, err
	}

	decided, err := decide(state, d.now())
	if err != nil {
		return ledger.State{}, err
	}

	if _, err := d.store.Append(ctx, rentCallID, state.Revision, decided); err != nil {
		return ledger.State{}, err
	}

	for i, e := range decided {
		e.Revision = state.Revision + int64(i) + 1
		if state, err = ledger.Apply(state, e); err != nil {
			return ledger.State{}, err
		}
	}
	return state, nil
}

func (d *Dispatcher) backoff(ctx context.Context) error {
	if d.cfg.RetryBackoff <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
