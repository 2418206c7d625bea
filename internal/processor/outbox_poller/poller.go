package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/rent-reconciliation-ledger/internal/domain/outbox"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
)

// Poller drains the outbox written by event appends and hands each message to a Projector
type Poller struct {
	outboxRepo       outbox.Repository
	projector        Projector
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	projector Projector,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		projector:        projector,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start polls until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Failed to process pending outbox messages", "error", err)
			}
		}
	}
}

// processPendingMessages handles one batch. A failing message does not block the rest of
// the batch; it is retried on later ticks until maxRetryAttempts.
func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger.With(
			"outbox_id", msg.ID,
			"rent_call_id", msg.RentCallID,
			"revision", msg.Revision,
		)

		if err := p.projector.Project(ctx, msg); err != nil {
			logger.Error("Failed to project outbox message", "attempts", msg.Attempts, "error", err)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				logger.Error("Failed to increment outbox message attempts", "error", errInc)
				continue
			}
			if msg.Attempts+1 >= p.maxRetryAttempts {
				logger.Warn("Max retry attempts reached, marking outbox message as failed", "attempts", msg.Attempts+1)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to mark outbox message as failed", "error", errUpdate)
				}
			}
			continue
		}
		logger.Debug("Projected outbox message", "event_kind", string(msg.EventKind))
	}
	return nil
}
