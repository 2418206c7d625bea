package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/rent-reconciliation-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name              string
		logLevel          string
		expectedSlogLevel slog.Level
		debugEnabled      bool
	}{
		{"DebugLevel", "debug", slog.LevelDebug, true},
		{"InfoLevel", "info", slog.LevelInfo, false},
		{"WarnLevel", "WARN", slog.LevelWarn, false},
		{"ErrorLevel", "error", slog.LevelError, false},
		{"DefaultToInfo", "unknown", slog.LevelInfo, false},
		{"EmptyToInfo", "", slog.LevelInfo, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{Logging: config.LoggingConfig{Level: tc.logLevel}}

			logger := NewLogger(cfg)
			require.NotNil(t, logger)

			assert.True(t, logger.Enabled(context.Background(), tc.expectedSlogLevel))
			assert.Equal(t, tc.debugEnabled, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

func TestNewLogger_ServiceAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "rent-reconciler", Env: "test"},
		Logging:     config.LoggingConfig{Level: "info"},
	}

	newLogger(cfg, &buf)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "rent-reconciler", line["service"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, "logger initialized", line["msg"])
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithCorrelationID(context.Background(), "corr-123")
	assert.Equal(t, "corr-123", CorrelationID(ctx))

	FromContext(ctx, base).Info("payment recorded")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "corr-123", line["correlation_id"])

	assert.Same(t, base, FromContext(context.Background(), base))
	assert.Empty(t, CorrelationID(context.Background()))
}
