package models

import "time"

// TimeRange is the span of a panel; nil bounds mean the panel is empty
type TimeRange struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// Metadata describes how the Normalizer produced a panel
type Metadata struct {
	Filename          string             `json:"filename"`
	TotalRecords      int                `json:"total_records"`
	TimeRange         TimeRange          `json:"time_range"`
	Columns           []string           `json:"columns"`
	MissingValues     map[Metric]int     `json:"missing_values"`
	Means             map[Metric]float64 `json:"means"`
	OutliersRemoved   int                `json:"outliers_removed"`
	MalformedRows     int                `json:"malformed_rows"`
	InvalidTimestamps int                `json:"invalid_timestamps"`
	SyntheticTime     bool               `json:"synthetic_time"`
}

// MetricStats are the descriptive statistics of one column
type MetricStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// AnalysisRecord is the single-panel pipeline output consumed by the
// persistence, summarization and reporting collaborators
type AnalysisRecord struct {
	ID               string                 `json:"id"`
	Filename         string                 `json:"filename"`
	AnalyzedAt       time.Time              `json:"analyzed_at"`
	Metadata         Metadata               `json:"metadata"`
	Statistics       map[Metric]MetricStats `json:"kpi_statistics"`
	Anomalies        AnomalyResult          `json:"anomaly_analysis"`
	Correlations     CorrelationResult      `json:"correlation_analysis"`
	ProcessingTimeMS float64                `json:"processing_time_ms"`

	// Panel is kept for collaborators that store raw samples
	Panel *Panel `json:"-" yaml:"-"`
}

// ComparisonMetadata identifies the two sides of a before/after comparison
type ComparisonMetadata struct {
	BeforeFile    string    `json:"before_file"`
	AfterFile     string    `json:"after_file"`
	BeforeRecords int       `json:"before_records"`
	AfterRecords  int       `json:"after_records"`
	ComparedAt    time.Time `json:"comparison_timestamp"`
}

// ComparisonReport is returned for before/after requests
type ComparisonReport struct {
	Metadata ComparisonMetadata `json:"comparison_metadata"`
	ComparisonResult
}

// BaselineMetadata identifies the current file and the baseline it was compared with
type BaselineMetadata struct {
	CurrentFile    string    `json:"current_file"`
	BaselineSource string    `json:"baseline_source"`
	CurrentRecords int       `json:"current_records"`
	ComparedAt     time.Time `json:"comparison_timestamp"`
}

// BaselineReport is returned for baseline requests
type BaselineReport struct {
	Metadata   BaselineMetadata   `json:"comparison_metadata"`
	Baseline   BaselineRecord     `json:"baseline_metrics"`
	Current    BaselineRecord     `json:"current_metrics"`
	Assessment BaselineAssessment `json:"performance_assessment"`
	Analysis   *AnalysisRecord    `json:"analysis"`
}
