package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rent-reconciliation-ledger/internal/api/service"
	"github.com/rent-reconciliation-ledger/internal/domain/ledger"
	"github.com/rent-reconciliation-ledger/internal/domain/shared"
	"github.com/rent-reconciliation-ledger/internal/logger"
)

// RentCallHandler handles HTTP requests for rent calls and their payments
type RentCallHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

func NewRentCallHandler(logger *slog.Logger, paymentService service.PaymentService) *RentCallHandler {
	return &RentCallHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Issue opens a new rent call stream
func (h *RentCallHandler) Issue(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var req IssueRentCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.RentCallID == "" {
		req.RentCallID = uuid.New().String()
	}

	state, err := h.paymentService.IssueRentCall(c.Request.Context(), ledger.IssueRentCall{
		RentCallID:        req.RentCallID,
		EntityID:          req.EntityID,
		LeaseID:           req.LeaseID,
		TenantDisplayName: req.Tenant.DisplayName(),
		UnitIdentifier:    req.UnitIdentifier,
		BillingMonth:      req.BillingMonth,
		TotalAmountCents:  req.TotalAmountCents,
	})
	if err != nil {
		respondError(c, log, "Failed to issue rent call", err)
		return
	}
	RespondCreated(c, mapStateToResponse(state))
}

// GetByID replays the rent call stream
func (h *RentCallHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	state, err := h.paymentService.GetRentCall(c.Request.Context(), id)
	if err != nil {
		respondError(c, logger.FromContext(c.Request.Context(), h.logger), "Failed to get rent call", err)
		return
	}
	RespondOK(c, mapStateToResponse(state))
}

// List returns the read model of one entity's rent calls for a billing month
func (h *RentCallHandler) List(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var params ListRentCallsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "entity_id and billing_month query parameters are required")
		return
	}

	rentCalls, err := h.paymentService.ListRentCalls(c.Request.Context(), params.EntityID, params.BillingMonth)
	if err != nil {
		respondError(c, log, "Failed to list rent calls", err)
		return
	}

	resp := make([]RentCallResponse, 0, len(rentCalls))
	for _, o := range rentCalls {
		resp = append(resp, mapObligationToResponse(o))
	}
	RespondOK(c, resp)
}

// RecordPayment applies a payment; a replay of the same source transaction is a 409
func (h *RentCallHandler) RecordPayment(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)
	rentCallID := c.Param("id")

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "rent_call_id", rentCallID, "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var paymentDate time.Time
	if req.PaymentDate != "" {
		d, err := time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			RespondBadRequest(c, "payment_date must be formatted as YYYY-MM-DD")
			return
		}
		paymentDate = d
	}

	state, err := h.paymentService.RecordPayment(c.Request.Context(), ledger.RecordPayment{
		RentCallID:          rentCallID,
		AmountCents:         req.AmountCents,
		SourceTransactionID: req.SourceTransactionID,
		PayerName:           req.PayerName,
		PaymentDate:         paymentDate,
		Source:              shared.PaymentSource(req.Source),
	})
	if err != nil {
		respondError(c, log.With("rent_call_id", rentCallID), "Failed to record payment", err)
		return
	}
	RespondCreated(c, mapStateToResponse(state))
}
