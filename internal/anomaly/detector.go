// Package anomaly flags unusual KPI samples with statistical, absolute-range,
// cross-metric correlation and trend detectors.
package anomaly

import (
	"math"
	"sort"

	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/stats"
)

const (
	noteInsufficientData = "insufficient data"
	noteColumnAbsent     = "column not present"
	noteConstant         = "constant series"
)

// Detector runs every anomaly check over a cleaned panel
type Detector struct {
	thresholds Thresholds
}

// NewDetector creates a new anomaly detector
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// Thresholds returns the detector configuration
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Detect runs all five detectors and aggregates their counts
func (d *Detector) Detect(panel *models.Panel) models.AnomalyResult {
	result := models.AnomalyResult{
		RTWP:        d.DetectMetric(panel, models.MetricRTWP),
		SINR:        d.DetectMetric(panel, models.MetricSINR),
		PRB:         d.DetectMetric(panel, models.MetricPRB),
		Correlation: d.DetectCorrelation(panel),
		Trend:       d.DetectTrend(panel),
	}

	total := result.RTWP.Count + result.SINR.Count + result.PRB.Count +
		result.Correlation.Count + result.Trend.Count

	result.Summary = models.AnomalySummary{
		TotalAnomalies:    total,
		Severity:          d.thresholds.Severity(total),
		RTWPAnomalies:     result.RTWP.Count,
		SINRAnomalies:     result.SINR.Count,
		PRBAnomalies:      result.PRB.Count,
		CorrelationIssues: result.Correlation.Count,
		TrendIssues:       result.Trend.Count,
	}
	return result
}

// DetectMetric applies the statistical test and then the absolute-range test.
// An index keeps the type of the first test that flagged it.
func (d *Detector) DetectMetric(panel *models.Panel, m models.Metric) models.MetricAnomalyReport {
	report := models.MetricAnomalyReport{
		Metric:         m,
		FlaggedIndices: []int{},
		Types:          []models.AnomalyType{},
	}

	values, ok := panel.Column(m)
	if !ok {
		report.Note = noteColumnAbsent
		return report
	}
	report.Computed = true

	bounds := d.thresholds.For(m)
	mean := stats.Mean(values)
	std := stats.StdDev(values)
	report.Mean = mean
	report.Std = std

	seen := make(map[int]bool)
	flag := func(i int, typ models.AnomalyType) {
		if seen[i] {
			return
		}
		seen[i] = true
		report.FlaggedIndices = append(report.FlaggedIndices, i)
		report.Types = append(report.Types, typ)
	}

	limit := bounds.StdMultiplier * std
	for i, v := range values {
		if math.Abs(v-mean) > limit {
			flag(i, models.AnomalyStatistical)
		}
	}
	if bounds.CheckUpper {
		for i, v := range values {
			if v > bounds.Upper {
				flag(i, models.AnomalyHighAbsolute)
			}
		}
	}
	if bounds.CheckLower {
		for i, v := range values {
			if v < bounds.Lower {
				flag(i, models.AnomalyLowAbsolute)
			}
		}
	}

	report.Count = len(report.FlaggedIndices)
	return report
}

// DetectCorrelation flags window-end positions where RTWP correlates too strongly
// with SINR or PRB
func (d *Detector) DetectCorrelation(panel *models.Panel) models.CorrelationAnomalyReport {
	report := models.CorrelationAnomalyReport{FlaggedIndices: []int{}}

	if !panel.HasAll(models.AllMetrics...) {
		report.Note = noteInsufficientData
		return report
	}

	window := stats.AdaptiveWindow(panel.Len(), d.thresholds.MaxWindow)
	report.Window = window
	if window < d.thresholds.MinWindow {
		report.Note = noteInsufficientData
		return report
	}
	report.Computed = true

	rtwp, _ := panel.Column(models.MetricRTWP)
	sinr, _ := panel.Column(models.MetricSINR)
	prb, _ := panel.Column(models.MetricPRB)

	report.RTWPSINRCorrelation = coefficient(rtwp, sinr)
	report.RTWPPRBCorrelation = coefficient(rtwp, prb)
	report.SINRPRBCorrelation = coefficient(sinr, prb)

	flagged := make(map[int]bool)
	limit := d.thresholds.CorrelationLimit
	for _, series := range [][]float64{
		stats.RollingCorrelation(rtwp, sinr, window),
		stats.RollingCorrelation(rtwp, prb, window),
	} {
		for i, r := range series {
			// NaN compares false on both sides
			if r < -limit || r > limit {
				flagged[i] = true
			}
		}
	}

	report.FlaggedIndices = sortedIndices(flagged)
	report.Count = len(report.FlaggedIndices)
	return report
}

// DetectTrend flags positions where the short moving average departs from the
// long one by more than a multiple of the metric's standard deviation.
// Absent and constant metrics are listed as not computed.
func (d *Detector) DetectTrend(panel *models.Panel) models.TrendAnomalyReport {
	t := d.thresholds
	report := models.TrendAnomalyReport{
		ShortWindow:    t.TrendShortWindow,
		LongWindow:     t.TrendLongWindow,
		FlaggedIndices: []int{},
		Metrics:        make([]models.TrendMetricStatus, 0, len(models.AllMetrics)),
	}

	enough := panel.Len() >= t.TrendMinRows
	if !enough {
		report.Note = noteInsufficientData
	}
	report.Computed = enough

	flagged := make(map[int]bool)
	for _, m := range models.AllMetrics {
		status := models.TrendMetricStatus{Metric: m}
		values, ok := panel.Column(m)
		std := stats.StdDev(values)
		switch {
		case !ok:
			status.Note = noteColumnAbsent
		case !enough:
			status.Note = noteInsufficientData
		case std == 0:
			status.Note = noteConstant
		default:
			status.Computed = true
			short := stats.MovingAverage(values, t.TrendShortWindow)
			long := stats.MovingAverage(values, t.TrendLongWindow)
			limit := t.TrendStdMultiplier * std
			for i := range values {
				if math.Abs(short[i]-long[i]) > limit {
					flagged[i] = true
					status.Count++
				}
			}
		}
		report.Metrics = append(report.Metrics, status)
	}

	report.FlaggedIndices = sortedIndices(flagged)
	report.Count = len(report.FlaggedIndices)
	return report
}

func coefficient(x, y []float64) float64 {
	r, ok := stats.Pearson(x, y)
	if !ok {
		return 0
	}
	return r
}

func sortedIndices(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
