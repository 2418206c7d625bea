package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/rent-reconciliation-ledger/internal/api/service"
	"github.com/rent-reconciliation-ledger/internal/domain/transaction"
	"github.com/rent-reconciliation-ledger/internal/logger"
)

type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// Reconcile proposes matches between transactions and a month of rent calls, recording
// the high-confidence ones when auto_record is set
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if len(req.TransactionIDs) == 0 && len(req.Transactions) == 0 {
		RespondBadRequest(c, "transaction_ids or transactions is required")
		return
	}

	txs := make([]transaction.Transaction, 0, len(req.Transactions))
	for _, line := range req.Transactions {
		tx, err := line.toTransaction(line.AccountID)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		txs = append(txs, tx)
	}

	result, err := h.reconciliationService.Reconcile(c.Request.Context(), service.ReconcileRequest{
		EntityID:            req.EntityID,
		BillingMonth:        req.BillingMonth,
		TransactionIDs:      req.TransactionIDs,
		Transactions:        txs,
		ExcludedRentCallIDs: req.ExcludedRentCallIDs,
		AutoRecord:          req.AutoRecord,
	})
	if err != nil {
		respondError(c, log, "Failed to reconcile transactions", err)
		return
	}
	RespondOK(c, result)
}
