// Package comparison scores how a cell changed between two analyses, or how
// one analysis deviates from a reference baseline.
package comparison

import (
	"math"

	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/stats"
)

// SourceIndustryDefault names the built-in baseline profile
const SourceIndustryDefault = "industry_default"

// Engine compares analysis records
type Engine struct {
	thresholds Thresholds
}

// NewEngine creates a new comparison engine
func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// CompareBeforeAfter scores the change from before to after
func (e *Engine) CompareBeforeAfter(before, after *models.AnalysisRecord) models.ComparisonResult {
	result := models.ComparisonResult{
		KPI:          []models.KPIComparison{},
		Correlations: []models.CorrelationComparison{},
	}

	for _, m := range models.AllMetrics {
		b, okBefore := before.Statistics[m]
		a, okAfter := after.Statistics[m]
		if !okBefore || !okAfter {
			continue
		}
		result.KPI = append(result.KPI, e.compareKPI(m, b, a))
	}

	result.Anomalies = compareAnomalies(before.Anomalies.Summary, after.Anomalies.Summary)

	for _, pair := range models.AllPairs {
		b, okBefore := before.Correlations.PairwiseFor(pair)
		a, okAfter := after.Correlations.PairwiseFor(pair)
		if !okBefore || !okAfter {
			continue
		}
		change := a.Coefficient - b.Coefficient
		result.Correlations = append(result.Correlations, models.CorrelationComparison{
			Pair:              pair.String(),
			BeforeCorrelation: b.Coefficient,
			AfterCorrelation:  a.Coefficient,
			CorrelationChange: change,
			StabilityChange:   e.thresholds.StabilityChange(change),
		})
	}

	result.Assessment = e.assess(result)
	result.Summary = e.summarize(result)
	return result
}

func (e *Engine) compareKPI(m models.Metric, before, after models.MetricStats) models.KPIComparison {
	pct := stats.PercentChange(before.Mean, after.Mean)
	return models.KPIComparison{
		Metric:            m,
		BeforeMean:        before.Mean,
		AfterMean:         after.Mean,
		MeanChange:        after.Mean - before.Mean,
		MeanChangePercent: pct,
		BeforeStd:         before.Std,
		AfterStd:          after.Std,
		StdChange:         after.Std - before.Std,
		Improvement:       e.verdict(m, before.Mean, after.Mean, pct),
	}
}

// verdict applies the direction rule of each metric: lower RTWP is better,
// higher SINR is better, PRB is judged against its healthy band
func (e *Engine) verdict(m models.Metric, before, after, pct float64) models.Verdict {
	if math.Abs(pct) < e.thresholds.StablePercent {
		return models.VerdictStable
	}

	switch m {
	case models.MetricRTWP:
		if after < before {
			return models.VerdictImproved
		}
		return models.VerdictDegraded
	case models.MetricSINR:
		if after > before {
			return models.VerdictImproved
		}
		return models.VerdictDegraded
	default:
		healthy := func(v float64) bool {
			return v >= e.thresholds.PRBHealthyLow && v <= e.thresholds.PRBHealthyHigh
		}
		switch {
		case healthy(after) && !healthy(before):
			return models.VerdictImproved
		case healthy(before) && !healthy(after):
			return models.VerdictDegraded
		default:
			return models.VerdictStable
		}
	}
}

func compareAnomalies(before, after models.AnomalySummary) models.AnomalyComparison {
	verdict := models.VerdictStable
	switch {
	case after.Severity.Rank() < before.Severity.Rank():
		verdict = models.VerdictImproved
	case after.Severity.Rank() > before.Severity.Rank():
		verdict = models.VerdictDegraded
	}

	return models.AnomalyComparison{
		BeforeTotal:         before.TotalAnomalies,
		AfterTotal:          after.TotalAnomalies,
		TotalChange:         after.TotalAnomalies - before.TotalAnomalies,
		BeforeSeverity:      before.Severity,
		AfterSeverity:       after.Severity,
		SeverityImprovement: verdict,
	}
}

// assess weighs anomaly reduction (all or nothing) with the net count of improved KPIs
func (e *Engine) assess(result models.ComparisonResult) models.ImprovementAssessment {
	t := e.thresholds

	anomalyScore := 0.0
	if result.Anomalies.TotalChange < 0 {
		anomalyScore = t.AnomalyWeight
	}

	improved, degraded := countVerdicts(result.KPI)
	kpiScore := 0.0
	if len(result.KPI) > 0 {
		kpiScore = float64(improved-degraded) / float64(len(result.KPI)) * t.KPIWeight
	}

	maxScore := t.AnomalyWeight + t.KPIWeight
	score := 0.0
	if maxScore > 0 {
		score = (anomalyScore + kpiScore) / maxScore * 100
	}
	score = stats.Clamp(score, 0, 100)

	return models.ImprovementAssessment{
		ImprovementScore: score,
		ImprovementLevel: t.Level(score),
		AnomalyReduction: -result.Anomalies.TotalChange,
		KPIImprovements:  improved,
		TotalKPIs:        len(result.KPI),
	}
}

func (e *Engine) summarize(result models.ComparisonResult) models.ComparisonSummary {
	summary := models.ComparisonSummary{
		KeyImprovements: []models.Finding{},
		AreasOfConcern:  []models.Finding{},
	}

	change := result.Anomalies.TotalChange
	switch {
	case change < 0:
		summary.KeyImprovements = append(summary.KeyImprovements, models.Finding{
			Kind: models.FindingAnomalies, Amount: float64(-change),
		})
	case change > 0:
		summary.AreasOfConcern = append(summary.AreasOfConcern, models.Finding{
			Kind: models.FindingAnomalies, Amount: float64(change),
		})
	}

	for _, k := range result.KPI {
		finding := models.Finding{Kind: models.FindingKPI, Metric: k.Metric, Amount: math.Abs(k.MeanChangePercent)}
		switch k.Improvement {
		case models.VerdictImproved:
			summary.KeyImprovements = append(summary.KeyImprovements, finding)
		case models.VerdictDegraded:
			summary.AreasOfConcern = append(summary.AreasOfConcern, finding)
		}
	}

	improved, _ := countVerdicts(result.KPI)
	switch {
	case change < -e.thresholds.SignificantAnomalyDrop && improved >= 2:
		summary.OverallAssessment = models.AssessmentSignificantImprovement
	case change < 0 && improved >= 1:
		summary.OverallAssessment = models.AssessmentModerateImprovement
	case change == 0 && improved == 0:
		summary.OverallAssessment = models.AssessmentStable
	case change > 0 && improved == 0:
		summary.OverallAssessment = models.AssessmentPossibleDegradation
	default:
		summary.OverallAssessment = models.AssessmentMixed
	}
	return summary
}

func countVerdicts(kpis []models.KPIComparison) (improved, degraded int) {
	for _, k := range kpis {
		switch k.Improvement {
		case models.VerdictImproved:
			improved++
		case models.VerdictDegraded:
			degraded++
		}
	}
	return improved, degraded
}
