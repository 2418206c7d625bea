package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/rent-reconciliation-ledger/internal/api/service"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/obligation"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
	"github.com/rent-reconciliation-ledger/internal/importer"
)

var validationErrors = []error{
	ledger.ErrInvalidAmount,
	ledger.ErrInvalidSource,
	ledger.ErrMissingPayer,
	ledger.ErrMissingLeaseID,
	obligation.ErrNegativeTotal,
	obligation.ErrInvalidBillingMonth,
	obligation.ErrMissingID,
	transaction.ErrMissingID,
	transaction.ErrMissingAccount,
	transaction.ErrMissingDate,
	transaction.ErrZeroAmount,
	importer.ErrEmptyStatement,
	importer.ErrMissingColumn,
	service.ErrConflictingTransactionIDs,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps service errors onto HTTP statuses, logging only the unexpected ones
func respondError(c *gin.Context, log *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidReadModel):
		// Wraps validation errors of stored rent calls, which are not the caller's fault
		log.Error(msg, "error", err)
		RespondInternalError(c)
	case isValidationError(err):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrRentCallNotFound{}), errors.Is(err, obligation.ErrNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.Is(err, service.ErrUnknownTransactions):
		RespondNotFound(c, err.Error())
	case errors.Is(err, ledger.ErrDuplicatePayment{}):
		RespondConflict(c, "DUPLICATE_PAYMENT", err.Error())
	case errors.Is(err, ledger.ErrRentCallAlreadyIssued{}):
		RespondConflict(c, "ALREADY_ISSUED", err.Error())
	case errors.Is(err, transaction.ErrIDConflict{}):
		RespondConflict(c, "TRANSACTION_ID_CONFLICT", err.Error())
	case ledger.IsRetryable(err):
		log.Warn(msg, "error", err)
		RespondRetryable(c, err.Error())
	default:
		log.Error(msg, "error", err)
		RespondInternalError(c)
	}
}
