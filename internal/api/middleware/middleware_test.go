package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rent-reconciliation-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("GeneratesCorrelationIDIfNotProvided", func(t *testing.T) {
		router := gin.New()
		router.Use(CorrelationID())
		var fromGin, fromRequest string
		router.GET("/test", func(c *gin.Context) {
			fromGin = c.GetString(CorrelationIDKey)
			fromRequest = logger.CorrelationID(c.Request.Context())
			c.Status(http.StatusOK)
		})

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))

		headerID := rr.Header().Get(CorrelationIDHeader)
		_, err := uuid.Parse(headerID)
		require.NoError(t, err)
		assert.Equal(t, headerID, fromGin)
		assert.Equal(t, headerID, fromRequest)
	})

	t.Run("UsesCorrelationIDIfProvided", func(t *testing.T) {
		router := gin.New()
		router.Use(CorrelationID())
		var captured string
		router.GET("/test", func(c *gin.Context) {
			captured = GetCorrelationID(c)
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(CorrelationIDHeader, "import-2026-02")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, "import-2026-02", rr.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "import-2026-02", captured)
	})

	t.Run("EmptyWithoutMiddleware", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(CorrelationIDKey, 12345)
		assert.Empty(t, GetCorrelationID(c))
	})
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		status int
		level  string
	}{
		{name: "success", status: http.StatusCreated, level: "INFO"},
		{name: "client error", status: http.StatusConflict, level: "WARN"},
		{name: "server error", status: http.StatusServiceUnavailable, level: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			testLogger := slog.New(slog.NewJSONHandler(&buf, nil))

			router := gin.New()
			router.Use(CorrelationID())
			router.Use(Logger(testLogger))
			router.POST("/api/v1/rent-calls/rc-1/payments", func(c *gin.Context) {
				c.Status(tt.status)
			})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/rent-calls/rc-1/payments?dry=1", nil)
			req.Header.Set(CorrelationIDHeader, "corr-42")
			router.ServeHTTP(httptest.NewRecorder(), req)

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.level, line["level"])
			assert.Equal(t, "HTTP request", line["msg"])
			assert.Equal(t, "/api/v1/rent-calls/rc-1/payments?dry=1", line["path"])
			assert.Equal(t, float64(tt.status), line["status"])
			assert.Equal(t, "corr-42", line["correlation_id"])
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("RecoversFromPanic", func(t *testing.T) {
		var buf bytes.Buffer
		testLogger := slog.New(slog.NewJSONHandler(&buf, nil))

		router := gin.New()
		router.Use(CorrelationID())
		router.Use(Recovery(testLogger))
		router.GET("/panic", func(c *gin.Context) {
			panic("replay exploded")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		req.Header.Set(CorrelationIDHeader, "corr-7")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "corr-7", body["correlation_id"])
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body["error"].(map[string]any)["code"])

		assert.Contains(t, buf.String(), `"msg":"Panic recovered"`)
		assert.Contains(t, buf.String(), `"error":"replay exploded"`)
		assert.Contains(t, buf.String(), `"stack":`)
	})

	t.Run("NoPanicNoEffect", func(t *testing.T) {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(Recovery(slog.New(slog.NewJSONHandler(&buf, nil))))
		router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, buf.String())
	})
}
