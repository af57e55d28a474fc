package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-diagnostics/internal/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud", Format: "text"})
	assert.Error(t, err)
}

func TestAnalysisLoggerEvents(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)
	a := NewAnalysisLogger(logger)

	a.Started("single", "cells.csv", 2048)
	a.Completed("single", "cells.csv", 96, 4, 12*time.Millisecond)
	a.Failed("single", "bad.csv", errors.New("missing required columns"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var completed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &completed))
	assert.Equal(t, "analysis_completed", completed["event"])
	assert.Equal(t, "analysis", completed["component"])
	assert.Equal(t, float64(96), completed["records"])
	assert.Equal(t, 12.0, completed["duration_ms"])

	var failed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &failed))
	assert.Equal(t, "warning", failed["level"])
	assert.Equal(t, "missing required columns", failed["error"])
}

func TestAnalysisLoggerNil(t *testing.T) {
	assert.NotPanics(t, func() {
		NewAnalysisLogger(nil).Started("single", "x.csv", 1)
	})
}
