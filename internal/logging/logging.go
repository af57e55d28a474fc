package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"kpi-diagnostics/internal/config"
)

// New creates a logger writing to stderr with the configured level and format
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput creates a logger writing to out
func NewWithOutput(cfg config.LoggingConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	if err := Apply(logger, cfg); err != nil {
		return nil, err
	}
	return logger, nil
}

// Apply applies the configuration to the logger
func Apply(logger *logrus.Logger, cfg config.LoggingConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}
	return nil
}

// AnalysisLogger records the lifecycle of analysis requests
type AnalysisLogger struct {
	logger logrus.FieldLogger
}

// NewAnalysisLogger wraps a logger; nil discards everything
func NewAnalysisLogger(logger logrus.FieldLogger) *AnalysisLogger {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &AnalysisLogger{logger: logger.WithField("component", "analysis")}
}

// Started logs the start of an analysis
func (a *AnalysisLogger) Started(mode, filename string, size int) {
	a.logger.WithFields(logrus.Fields{
		"event":    "analysis_started",
		"mode":     mode,
		"filename": filename,
		"bytes":    size,
	}).Info("Analysis started")
}

// Completed logs a successful analysis
func (a *AnalysisLogger) Completed(mode, filename string, records, anomalies int, duration time.Duration) {
	a.logger.WithFields(logrus.Fields{
		"event":       "analysis_completed",
		"mode":        mode,
		"filename":    filename,
		"records":     records,
		"anomalies":   anomalies,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}).Info("Analysis completed")
}

// Failed logs a rejected or aborted analysis
func (a *AnalysisLogger) Failed(mode, filename string, err error) {
	a.logger.WithFields(logrus.Fields{
		"event":    "analysis_failed",
		"mode":     mode,
		"filename": filename,
	}).WithError(err).Warn("Analysis failed")
}
