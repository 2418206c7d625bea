package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rent-reconciliation-ledger/internal/api/handler"
	"github.com/rent-reconciliation-ledger/internal/api/middleware"
)

func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	importHandler *handler.ImportHandler,
	reconciliationHandler *handler.ReconciliationHandler,
	rentCallHandler *handler.RentCallHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	v1 := r.Group("/api/v1")
	{
		imports := v1.Group("/imports")
		{
			imports.POST("", importHandler.Import)
			imports.POST("/csv", importHandler.ImportCSV)
		}

		v1.POST("/reconciliations", reconciliationHandler.Reconcile)

		rentCalls := v1.Group("/rent-calls")
		{
			rentCalls.POST("", rentCallHandler.Issue)
			rentCalls.GET("", rentCallHandler.List)
			rentCalls.GET("/:id", rentCallHandler.GetByID)
			rentCalls.POST("/:id/payments", rentCallHandler.RecordPayment)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
