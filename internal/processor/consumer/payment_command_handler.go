package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/rent-reconciliation-ledger/internal/logger"
	"github.com/rent-reconciliation-ledger/internal/platform/messaging/consumers"
	"github.com/rent-reconciliation-ledger/internal/platform/messaging/producers"
)

const correlationHeader = "correlation-id"

// PaymentRecorder records a payment against a rent call stream
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, cmd ledger.RecordPayment) (ledger.State, error)
}

// TaskRunner runs a task on a bounded pool and waits for it
type TaskRunner interface {
	Run(ctx context.Context, task func(ctx context.Context) error) error
}

// PaymentCommandHandler turns RecordPayment commands from Kafka into ledger commands.
// Returning nil commits the offset: recorded payments, duplicates and rejected commands
// (parked on the DLQ) are all final. Transient failures return an error so the message
// is delivered again.
type PaymentCommandHandler struct {
	recorder PaymentRecorder
	runner   TaskRunner
	dlq      producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewPaymentCommandHandler(
	logger *slog.Logger,
	recorder PaymentRecorder,
	runner TaskRunner,
	dlq producers.DeadLetterPublisher,
) *PaymentCommandHandler {
	return &PaymentCommandHandler{
		recorder: recorder,
		runner:   runner,
		dlq:      dlq,
		logger:   logger,
	}
}

func (h *PaymentCommandHandler) HandleMessage(ctx context.Context, msg consumers.Message) error {
	var cmd shared.PaymentCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		h.logger.Error("Failed to unmarshal payment command", "key", string(msg.Key), "error", err)
		return h.reject(ctx, msg, fmt.Sprintf("malformed payment command: %v", err))
	}

	correlationID := cmd.CorrelationID
	if correlationID == "" {
		correlationID = msg.Headers[correlationHeader]
	}
	if correlationID != "" {
		ctx = logger.WithCorrelationID(ctx, correlationID)
	}
	log := logger.FromContext(ctx, h.logger).With(
		"command_id", cmd.CommandID,
		"rent_call_id", cmd.RentCallID,
		"source_transaction_id", cmd.SourceTransactionID,
	)

	if err := cmd.Validate(); err != nil {
		log.Warn("Rejecting invalid payment command", "error", err)
		return h.reject(ctx, msg, err.Error())
	}

	err := h.runner.Run(ctx, func(ctx context.Context) error {
		_, err := h.recorder.RecordPayment(ctx, ledger.RecordPayment{
			RentCallID:          cmd.RentCallID,
			AmountCents:         cmd.AmountCents,
			SourceTransactionID: cmd.SourceTransactionID,
			PayerName:           cmd.PayerName,
			PaymentDate:         cmd.PaymentDate,
			Source:              cmd.Source,
		})
		return err
	})

	switch {
	case err == nil:
		log.Info("Recorded payment from command", "amount_cents", cmd.AmountCents)
		return nil
	case errors.Is(err, ledger.ErrDuplicatePayment{}):
		log.Info("Payment already recorded, acknowledging command")
		return nil
	case isRejection(err):
		log.Warn("Ledger rejected payment command", "error", err)
		return h.reject(ctx, msg, err.Error())
	default:
		log.Error("Failed to record payment, command will be redelivered",
			"retryable", ledger.IsRetryable(err),
			"error", err,
		)
		return fmt.Errorf("recording payment on %s failed: %w", cmd.RentCallID, err)
	}
}

func isRejection(err error) bool {
	var corrupt ledger.ErrCorruptStream
	return errors.Is(err, ledger.ErrRentCallNotFound{}) ||
		errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrInvalidSource) ||
		errors.Is(err, ledger.ErrMissingPayer) ||
		errors.As(err, &corrupt)
}

// reject parks the message on the DLQ; without a DLQ the message stays uncommitted
func (h *PaymentCommandHandler) reject(ctx context.Context, msg consumers.Message, reason string) error {
	if err := h.dlq.PublishToDLQ(ctx, string(msg.Key), msg.Value, reason); err != nil {
		h.logger.Error("Failed to publish payment command to DLQ",
			"key", string(msg.Key),
			"reason", reason,
			"error", err,
		)
		return fmt.Errorf("dead-lettering payment command: %w", err)
	}
	return nil
}
