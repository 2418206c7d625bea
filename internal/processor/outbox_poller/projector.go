package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/outbox"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/rent-reconciliation-ledger/internal/platform/messaging/producers"
)

// Projector delivers one outbox message to its consumers and marks it processed
type Projector interface {
	Project(ctx context.Context, message *outbox.Message) error
}

// RentCallProjector publishes the event on the events topic and refreshes the rent call
// read model from the replayed stream. Both steps are idempotent, so a message that fails
// half-way can simply be projected again.
type RentCallProjector struct {
	outboxRepo outbox.Repository
	events     ledger.EventStore
	rentCalls  obligation.Repository
	publisher  producers.MessagePublisher
	logger     *slog.Logger
}

func NewRentCallProjector(
	outboxRepo outbox.Repository,
	events ledger.EventStore,
	rentCalls obligation.Repository,
	publisher producers.MessagePublisher,
	logger *slog.Logger,
) *RentCallProjector {
	return &RentCallProjector{
		outboxRepo: outboxRepo,
		events:     events,
		rentCalls:  rentCalls,
		publisher:  publisher,
		logger:     logger,
	}
}

func (p *RentCallProjector) Project(ctx context.Context, message *outbox.Message) error {
	if _, err := message.Event(); err != nil {
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Failed to mark undecodable outbox message as failed", "outbox_id", message.ID, "error", updateErr)
		}
		return fmt.Errorf("decode payload of outbox message %d: %w", message.ID, err)
	}

	headers := map[string]string{
		"event-kind": string(message.EventKind),
		"revision":   strconv.FormatInt(message.Revision, 10),
		"event-id":   message.EventID.String(),
	}
	if err := p.publisher.Publish(ctx, message.RentCallID, message.Payload, headers); err != nil {
		return err
	}

	stream, err := p.events.Load(ctx, message.RentCallID)
	if err != nil {
		return fmt.Errorf("load stream %s: %w", message.RentCallID, err)
	}
	state, err := ledger.Replay(stream)
	if err != nil {
		return fmt.Errorf("replay stream %s: %w", message.RentCallID, err)
	}
	if !state.Exists() {
		return ledger.ErrRentCallNotFound{RentCallID: message.RentCallID}
	}

	projected := state.Obligation()
	if err := p.rentCalls.Upsert(ctx, &projected); err != nil {
		return err
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		return fmt.Errorf("projected %s@%d but failed to mark outbox %d processed: %w",
			message.RentCallID, message.Revision, message.ID, err)
	}
	return nil
}
