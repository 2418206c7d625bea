package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rent-reconciliation-ledger/internal/api/service"
	"github.com/rent-reconciliation-ledger/internal/logger"
)

// ImportHandler handles bank statement uploads
type ImportHandler struct {
	importService  service.ImportService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewImportHandler(logger *slog.Logger, importService service.ImportService, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{
		importService:  importService,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Import records JSON account batches in order
func (h *ImportHandler) Import(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	batches := make([]service.AccountBatch, 0, len(req.Batches))
	for _, b := range req.Batches {
		batch := service.AccountBatch{AccountID: b.AccountID}
		for _, line := range b.Transactions {
			tx, err := line.toTransaction(b.AccountID)
			if err != nil {
				RespondBadRequest(c, err.Error())
				return
			}
			batch.Transactions = append(batch.Transactions, tx)
		}
		batches = append(batches, batch)
	}

	result, err := h.importService.Import(c.Request.Context(), batches)
	if err != nil {
		respondError(c, log, "Failed to import transactions", err)
		return
	}
	RespondCreated(c, result)
}

// ImportCSV records a CSV statement uploaded as the multipart "file" field for "account_id"
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	log := logger.FromContext(c.Request.Context(), h.logger)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondRequestTooLarge(c, "statement file is too large")
			return
		}
		RespondBadRequest(c, "multipart field \"file\" is required")
		return
	}
	accountID := c.PostForm("account_id")
	if accountID == "" {
		RespondBadRequest(c, "multipart field \"account_id\" is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("Failed to open uploaded statement", "error", err)
		RespondInternalError(c)
		return
	}
	defer file.Close()

	result, err := h.importService.ImportStatement(c.Request.Context(), accountID, file)
	if err != nil {
		respondError(c, log.With("account_id", accountID, "file", fileHeader.Filename), "Failed to import statement", err)
		return
	}
	RespondCreated(c, result)
}
