// Package events announces finished analyses to downstream consumers
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kpi-diagnostics/internal/models"
)

// Event types
const (
	TypeAnalysisCompleted   = "analysis.completed"
	TypeComparisonCompleted = "comparison.completed"
	TypeBaselineCompleted   = "baseline.completed"
)

// AnalysisEvent is the message body published for every finished request.
// It carries the numeric outcome only, never the uploaded data.
type AnalysisEvent struct {
	EventID        string                    `json:"event_id"`
	Type           string                    `json:"type"`
	AnalysisID     string                    `json:"analysis_id,omitempty"`
	Files          []string                  `json:"files"`
	TotalRecords   int                       `json:"total_records"`
	TotalAnomalies int                       `json:"total_anomalies"`
	Severity       models.Severity           `json:"severity,omitempty"`
	Means          map[models.Metric]float64 `json:"means,omitempty"`
	Verdict        string                    `json:"verdict,omitempty"`
	Score          *float64                  `json:"score,omitempty"`
	Timestamp      time.Time                 `json:"timestamp"`
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, event AnalysisEvent) error
	Close() error
}

// NoopPublisher drops every event. It is used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AnalysisEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

func newEvent(eventType string) AnalysisEvent {
	return AnalysisEvent{
		EventID:   uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

func means(stats map[models.Metric]models.MetricStats) map[models.Metric]float64 {
	out := make(map[models.Metric]float64, len(stats))
	for m, s := range stats {
		out[m] = s.Mean
	}
	return out
}

// AnalysisCompleted builds the event for a single-file analysis
func AnalysisCompleted(record *models.AnalysisRecord) AnalysisEvent {
	e := newEvent(TypeAnalysisCompleted)
	e.AnalysisID = record.ID
	e.Files = []string{record.Filename}
	e.TotalRecords = record.Metadata.TotalRecords
	e.TotalAnomalies = record.Anomalies.Summary.TotalAnomalies
	e.Severity = record.Anomalies.Summary.Severity
	e.Means = means(record.Statistics)
	return e
}

// ComparisonCompleted builds the event for a before/after comparison
func ComparisonCompleted(report *models.ComparisonReport) AnalysisEvent {
	e := newEvent(TypeComparisonCompleted)
	e.Files = []string{report.Metadata.BeforeFile, report.Metadata.AfterFile}
	e.TotalRecords = report.Metadata.BeforeRecords + report.Metadata.AfterRecords
	e.TotalAnomalies = report.Anomalies.AfterTotal
	e.Severity = report.Anomalies.AfterSeverity
	e.Verdict = string(report.Assessment.ImprovementLevel)
	score := report.Assessment.ImprovementScore
	e.Score = &score
	return e
}

// BaselineCompleted builds the event for a baseline comparison
func BaselineCompleted(report *models.BaselineReport) AnalysisEvent {
	e := newEvent(TypeBaselineCompleted)
	e.Files = []string{report.Metadata.CurrentFile}
	e.TotalRecords = report.Metadata.CurrentRecords
	e.Severity = report.Assessment.AnomalySeverity
	e.Verdict = string(report.Assessment.OverallStatus)
	score := report.Assessment.PerformanceScore
	e.Score = &score
	if report.Analysis != nil {
		e.AnalysisID = report.Analysis.ID
		e.TotalAnomalies = report.Analysis.Anomalies.Summary.TotalAnomalies
		e.Means = means(report.Analysis.Statistics)
	}
	return e
}
