package comparison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-diagnostics/internal/models"
)

func record(rtwp, sinr, prb float64, anomalies int, severity models.Severity) *models.AnalysisRecord {
	return &models.AnalysisRecord{
		Statistics: map[models.Metric]models.MetricStats{
			models.MetricRTWP: {Mean: rtwp, Std: 2},
			models.MetricSINR: {Mean: sinr, Std: 1},
			models.MetricPRB:  {Mean: prb, Std: 5},
		},
		Anomalies: models.AnomalyResult{
			Summary: models.AnomalySummary{TotalAnomalies: anomalies, Severity: severity},
		},
		Correlations: models.CorrelationResult{
			Pairwise: []models.CorrelationPair{
				{Pair: "RTWP_SINR", Coefficient: -0.6},
				{Pair: "RTWP_PRB", Coefficient: 0.2},
			},
		},
	}
}

func TestCompareIdenticalRecords(t *testing.T) {
	r := record(-95, 15, 60, 12, models.SeverityLow)

	result := NewEngine(DefaultThresholds()).CompareBeforeAfter(r, r)

	assert.Equal(t, 0, result.Anomalies.TotalChange)
	require.Len(t, result.KPI, 3)
	for _, k := range result.KPI {
		assert.Equal(t, models.VerdictStable, k.Improvement, string(k.Metric))
	}
	assert.Equal(t, 0.0, result.Assessment.ImprovementScore)
	assert.Equal(t, models.ImprovementDegraded, result.Assessment.ImprovementLevel)
	assert.Equal(t, models.VerdictStable, result.Anomalies.SeverityImprovement)
	assert.Equal(t, models.AssessmentStable, result.Summary.OverallAssessment)
	require.Len(t, result.Correlations, 2)
	for _, c := range result.Correlations {
		assert.Equal(t, models.StabilityUnchanged, c.StabilityChange)
	}
}

func TestCompareRTWPRiseIsDegraded(t *testing.T) {
	before := record(-95, 15, 60, 5, models.SeverityLow)
	after := record(-90, 15, 60, 5, models.SeverityLow)

	result := NewEngine(DefaultThresholds()).CompareBeforeAfter(before, after)

	k, ok := result.KPIFor(models.MetricRTWP)
	require.True(t, ok)
	assert.InDelta(t, -5.263, k.MeanChangePercent, 1e-3)
	assert.Equal(t, 5.0, k.MeanChange)
	assert.Equal(t, models.VerdictDegraded, k.Improvement)
	require.Len(t, result.Summary.AreasOfConcern, 1)
	assert.Equal(t, models.MetricRTWP, result.Summary.AreasOfConcern[0].Metric)
}

func TestVerdictRules(t *testing.T) {
	e := NewEngine(DefaultThresholds())

	tests := []struct {
		name   string
		metric models.Metric
		before float64
		after  float64
		want   models.Verdict
	}{
		{"rtwp drop", models.MetricRTWP, -90, -100, models.VerdictImproved},
		{"rtwp small change", models.MetricRTWP, -95, -96, models.VerdictStable},
		{"sinr rise", models.MetricSINR, 10, 15, models.VerdictImproved},
		{"sinr drop", models.MetricSINR, 15, 10, models.VerdictDegraded},
		{"prb into band", models.MetricPRB, 30, 60, models.VerdictImproved},
		{"prb out of band", models.MetricPRB, 60, 90, models.VerdictDegraded},
		{"prb outside both", models.MetricPRB, 20, 90, models.VerdictStable},
		{"prb inside both", models.MetricPRB, 45, 70, models.VerdictStable},
		{"zero reference", models.MetricSINR, 0, 10, models.VerdictStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := e.compareKPI(tt.metric, models.MetricStats{Mean: tt.before}, models.MetricStats{Mean: tt.after})
			assert.Equal(t, tt.want, k.Improvement)
		})
	}
}

func TestCompareSignificantImprovement(t *testing.T) {
	before := record(-90, 10, 60, 30, models.SeverityMedium)
	after := record(-100, 15, 61, 10, models.SeverityLow)

	result := NewEngine(DefaultThresholds()).CompareBeforeAfter(before, after)

	assert.InDelta(t, 80.0, result.Assessment.ImprovementScore, 1e-9)
	assert.Equal(t, models.ImprovementSignificant, result.Assessment.ImprovementLevel)
	assert.Equal(t, 20, result.Assessment.AnomalyReduction)
	assert.Equal(t, 2, result.Assessment.KPIImprovements)
	assert.Equal(t, models.VerdictImproved, result.Anomalies.SeverityImprovement)
	assert.Equal(t, models.AssessmentSignificantImprovement, result.Summary.OverallAssessment)
	assert.Len(t, result.Summary.KeyImprovements, 3)
	assert.Equal(t, models.FindingAnomalies, result.Summary.KeyImprovements[0].Kind)
	assert.Equal(t, 20.0, result.Summary.KeyImprovements[0].Amount)
}

func TestCompareScoreIsClamped(t *testing.T) {
	before := record(-100, 15, 60, 10, models.SeverityLow)
	after := record(-80, 10, 95, 60, models.SeverityHigh)

	result := NewEngine(DefaultThresholds()).CompareBeforeAfter(before, after)

	assert.Equal(t, 0.0, result.Assessment.ImprovementScore)
	assert.Equal(t, models.ImprovementDegraded, result.Assessment.ImprovementLevel)
	assert.Equal(t, models.VerdictDegraded, result.Anomalies.SeverityImprovement)
	assert.Equal(t, models.AssessmentPossibleDegradation, result.Summary.OverallAssessment)
	assert.Len(t, result.Summary.AreasOfConcern, 4)
}

func TestCompareMixed(t *testing.T) {
	before := record(-95, 10, 60, 10, models.SeverityLow)
	after := record(-95, 15, 60, 15, models.SeverityLow)

	result := NewEngine(DefaultThresholds()).CompareBeforeAfter(before, after)

	assert.Equal(t, models.AssessmentMixed, result.Summary.OverallAssessment)
	// 0 anomaly credit, 1 of 3 KPIs improved
	assert.InDelta(t, 20.0, result.Assessment.ImprovementScore, 1e-9)
}

func TestCompareCorrelationChange(t *testing.T) {
	before := record(-95, 15, 60, 0, models.SeverityLow)
	after := record(-95, 15, 60, 0, models.SeverityLow)
	after.Correlations.Pairwise = []models.CorrelationPair{
		{Pair: "RTWP_SINR", Coefficient: -0.4},
		{Pair: "RTWP_PRB", Coefficient: 0.7},
	}

	result := NewEngine(DefaultThresholds()).CompareBeforeAfter(before, after)

	require.Len(t, result.Correlations, 2)
	assert.Equal(t, models.StabilityModerateChange, result.Correlations[0].StabilityChange)
	assert.Equal(t, models.StabilitySignificantChange, result.Correlations[1].StabilityChange)
	assert.InDelta(t, 0.5, result.Correlations[1].CorrelationChange, 1e-9)
}

func TestCompareSkipsMissingMetric(t *testing.T) {
	before := record(-95, 15, 60, 0, models.SeverityLow)
	after := record(-95, 15, 60, 0, models.SeverityLow)
	delete(after.Statistics, models.MetricPRB)

	result := NewEngine(DefaultThresholds()).CompareBeforeAfter(before, after)

	assert.Len(t, result.KPI, 2)
	_, ok := result.KPIFor(models.MetricPRB)
	assert.False(t, ok)
}

func TestImprovementLevels(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, models.ImprovementSignificant, th.Level(80))
	assert.Equal(t, models.ImprovementModerate, th.Level(79.9))
	assert.Equal(t, models.ImprovementMinimal, th.Level(40))
	assert.Equal(t, models.ImprovementDegraded, th.Level(39.9))
}
