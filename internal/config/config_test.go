package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Thresholds.Anomaly.RTWP.StdMultiplier)
	assert.Equal(t, 0.7, cfg.Thresholds.Correlation.Strong)
	assert.Equal(t, -95.0, cfg.Thresholds.Comparison.Baseline.RTWP.Mean)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(testLogger(), "")
	require.NoError(t, err)

	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Analysis.Normalize.SyntheticInterval)
	assert.Equal(t, Default().Thresholds, cfg.Thresholds)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
analysis:
  significance: approximate
thresholds:
  comparison:
    stable_percent: 10
  anomaly:
    rtwp:
      upper: -65
`)

	cfg, err := Load(testLogger(), path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "approximate", cfg.Analysis.Significance)
	assert.Equal(t, 10.0, cfg.Thresholds.Comparison.StablePercent)
	assert.Equal(t, -65.0, cfg.Thresholds.Anomaly.RTWP.Upper)
	assert.Equal(t, -120.0, cfg.Thresholds.Anomaly.RTWP.Lower)
	assert.Equal(t, 40.0, cfg.Thresholds.Comparison.PRBHealthyLow)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KPI_SERVER_PORT", "9200")
	t.Setenv("KPI_THRESHOLDS_ANOMALY_SEVERITY_HIGH", "70")
	t.Setenv("KPI_LOGGING_FORMAT", "text")

	cfg, err := Load(testLogger(), "")
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 70, cfg.Thresholds.Anomaly.SeverityHigh)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, "analysis:\n  significance: bayesian\n")
	_, err := Load(testLogger(), path)
	assert.Error(t, err)

	path = writeConfig(t, "store:\n  driver: mongo\n")
	_, err = Load(testLogger(), path)
	assert.Error(t, err)

	_, err = Load(testLogger(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
