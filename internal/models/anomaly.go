package models

// AnomalyType tags why a position was flagged
type AnomalyType string

const (
	AnomalyStatistical  AnomalyType = "statistical"
	AnomalyHighAbsolute AnomalyType = "high_absolute"
	AnomalyLowAbsolute  AnomalyType = "low_absolute"
)

// Severity is the coarse anomaly-volume classification
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities low < medium < high. Unknown values rank as medium.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityHigh:
		return 3
	default:
		return 2
	}
}

// MetricAnomalyReport holds per-metric anomaly flags.
// FlaggedIndices has no duplicates and Types runs parallel to it.
type MetricAnomalyReport struct {
	Metric         Metric        `json:"metric"`
	Computed       bool          `json:"computed"`
	Note           string        `json:"note,omitempty"`
	Count          int           `json:"count"`
	FlaggedIndices []int         `json:"flagged_indices"`
	Types          []AnomalyType `json:"types"`
	Mean           float64       `json:"mean"`
	Std            float64       `json:"std"`
}

// CorrelationAnomalyReport flags windows where metric relationships become unexpectedly strong
type CorrelationAnomalyReport struct {
	Computed            bool    `json:"computed"`
	Note                string  `json:"note,omitempty"`
	Window              int     `json:"window"`
	Count               int     `json:"count"`
	FlaggedIndices      []int   `json:"flagged_indices"`
	RTWPSINRCorrelation float64 `json:"rtwp_sinr_correlation"`
	RTWPPRBCorrelation  float64 `json:"rtwp_prb_correlation"`
	SINRPRBCorrelation  float64 `json:"sinr_prb_correlation"`
}

// TrendMetricStatus records whether one metric took part in trend detection
type TrendMetricStatus struct {
	Metric   Metric `json:"metric"`
	Computed bool   `json:"computed"`
	Note     string `json:"note,omitempty"`
	Count    int    `json:"count"`
}

// TrendAnomalyReport flags positions where the short moving average departs from the long one.
// Metrics lists every metric in canonical order; FlaggedIndices is their union.
type TrendAnomalyReport struct {
	Computed       bool                `json:"computed"`
	Note           string              `json:"note,omitempty"`
	ShortWindow    int                 `json:"short_window"`
	LongWindow     int                 `json:"long_window"`
	Count          int                 `json:"count"`
	FlaggedIndices []int               `json:"flagged_indices"`
	Metrics        []TrendMetricStatus `json:"metrics"`
}

// AnomalySummary aggregates report counts. An index may count once per report.
type AnomalySummary struct {
	TotalAnomalies    int      `json:"total_anomalies"`
	Severity          Severity `json:"severity"`
	RTWPAnomalies     int      `json:"rtwp_anomaly_rate"`
	SINRAnomalies     int      `json:"sinr_anomaly_rate"`
	PRBAnomalies      int      `json:"prb_anomaly_rate"`
	CorrelationIssues int      `json:"correlation_issues"`
	TrendIssues       int      `json:"trend_issues"`
}

// AnomalyResult is the full AnomalyDetector output for one panel
type AnomalyResult struct {
	RTWP        MetricAnomalyReport      `json:"rtwp_anomalies"`
	SINR        MetricAnomalyReport      `json:"sinr_anomalies"`
	PRB         MetricAnomalyReport      `json:"prb_anomalies"`
	Correlation CorrelationAnomalyReport `json:"correlation_anomalies"`
	Trend       TrendAnomalyReport       `json:"trend_anomalies"`
	Summary     AnomalySummary           `json:"summary"`
}

// ForMetric returns the per-metric report
func (r AnomalyResult) ForMetric(m Metric) MetricAnomalyReport {
	switch m {
	case MetricRTWP:
		return r.RTWP
	case MetricSINR:
		return r.SINR
	default:
		return r.PRB
	}
}
