package comparison

import (
	"math"

	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/stats"
)

// DefaultBaseline returns the configured industry reference profile
func (e *Engine) DefaultBaseline() models.BaselineRecord {
	b := e.thresholds.Baseline
	return models.BaselineRecord{
		Source: SourceIndustryDefault,
		Metrics: map[models.Metric]models.BaselineMetric{
			models.MetricRTWP: b.RTWP,
			models.MetricSINR: b.SINR,
			models.MetricPRB:  b.PRB,
		},
	}
}

// CurrentBaseline extracts the reference profile of an analysis
func CurrentBaseline(record *models.AnalysisRecord, source string) models.BaselineRecord {
	out := models.BaselineRecord{
		Source:  source,
		Metrics: make(map[models.Metric]models.BaselineMetric, len(record.Statistics)),
	}
	for m, s := range record.Statistics {
		out.Metrics[m] = models.BaselineMetric{
			Mean:      s.Mean,
			Std:       s.Std,
			Anomalies: record.Anomalies.ForMetric(m).Count,
		}
	}
	return out
}

// CompareBaseline measures how far each metric mean sits from the baseline and
// combines the result with the current anomaly severity
func (e *Engine) CompareBaseline(current *models.AnalysisRecord, baseline models.BaselineRecord) models.BaselineAssessment {
	t := e.thresholds
	out := models.BaselineAssessment{
		Deviations:      []models.BaselineDeviation{},
		AnomalySeverity: current.Anomalies.Summary.Severity,
	}
	if out.AnomalySeverity == "" {
		out.AnomalySeverity = models.SeverityLow
	}

	for _, m := range models.AllMetrics {
		ref, okRef := baseline.Metrics[m]
		cur, okCur := current.Statistics[m]
		if !okRef || !okCur {
			continue
		}

		deviation := cur.Mean - ref.Mean
		pct := stats.PercentChange(ref.Mean, cur.Mean)
		status := t.Deviation(math.Abs(pct))

		out.Deviations = append(out.Deviations, models.BaselineDeviation{
			Metric:           m,
			BaselineValue:    ref.Mean,
			CurrentValue:     cur.Mean,
			Deviation:        deviation,
			DeviationPercent: pct,
			Status:           status,
		})
		if status.Acceptable() {
			out.AcceptableDeviations++
		}
	}

	out.TotalDeviations = len(out.Deviations)
	out.PerformanceScore = 100
	if out.TotalDeviations > 0 {
		out.PerformanceScore = float64(out.AcceptableDeviations) / float64(out.TotalDeviations) * 100
	}

	severity := out.AnomalySeverity
	switch {
	case out.PerformanceScore >= t.ExcellentScore && severity == models.SeverityLow:
		out.OverallStatus = models.StatusExcellent
	case out.PerformanceScore >= t.GoodScore && severity != models.SeverityHigh:
		out.OverallStatus = models.StatusGood
	case out.PerformanceScore >= t.FairScore:
		out.OverallStatus = models.StatusFair
	default:
		out.OverallStatus = models.StatusPoor
	}
	return out
}
