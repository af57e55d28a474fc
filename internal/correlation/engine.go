// Package correlation measures how RTWP, SINR and PRB move together:
// whole-panel coefficients, their stability over rolling windows, and lead/lag structure.
package correlation

import (
	"math"

	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/stats"
)

const noteInsufficientData = "insufficient data"

// Engine runs the correlation analysis
type Engine struct {
	thresholds Thresholds
	test       SignificanceTest
}

// NewEngine creates a new correlation engine. A nil test selects the exact test.
func NewEngine(thresholds Thresholds, test SignificanceTest) *Engine {
	if test == nil {
		test = ExactTest{Alpha: thresholds.Alpha}
	}
	return &Engine{thresholds: thresholds, test: test}
}

// Method reports which significance strategy the engine applies
func (e *Engine) Method() models.SignificanceMethod {
	return e.test.Method()
}

// Analyze runs pairwise, rolling and lagged correlation and derives insights
func (e *Engine) Analyze(panel *models.Panel) models.CorrelationResult {
	result := models.CorrelationResult{
		Pairwise:          []models.CorrelationPair{},
		Rolling:           []models.RollingCorrelationStats{},
		CrossCorrelations: []models.CrossCorrelationResult{},
	}

	for _, pair := range presentPairs(panel) {
		x, _ := panel.Column(pair.A)
		y, _ := panel.Column(pair.B)
		result.Pairwise = append(result.Pairwise, e.Pairwise(pair, x, y))
		result.Rolling = append(result.Rolling, e.Rolling(pair, x, y))
	}

	if panel.HasAll(models.MetricRTWP, models.MetricSINR) {
		rtwp, _ := panel.Column(models.MetricRTWP)
		sinr, _ := panel.Column(models.MetricSINR)
		result.CrossCorrelations = append(result.CrossCorrelations, e.CrossCorrelation(models.PairRTWPSINR, rtwp, sinr))
	}

	result.Insights = e.Insights(result)
	return result
}

// Pairwise correlates two full columns. An undefined coefficient reports as 0.
func (e *Engine) Pairwise(pair models.Pair, x, y []float64) models.CorrelationPair {
	r, ok := stats.Pearson(x, y)
	if !ok {
		r = 0
	}

	var p float64
	var significant bool
	if ok {
		p, significant = e.test.Test(r, len(x))
	} else {
		p = 1
	}

	significance := models.NotSignificant
	if significant {
		significance = models.Significant
	}

	return models.CorrelationPair{
		Pair:         pair.String(),
		MetricA:      pair.A,
		MetricB:      pair.B,
		Coefficient:  r,
		PValue:       stats.Finite(p, 1),
		Method:       e.test.Method(),
		Strength:     e.thresholds.Strength(r),
		Significance: significance,
		SampleSize:   len(x),
	}
}

// Rolling summarizes the sliding-window correlation of a pair and scores its stability
func (e *Engine) Rolling(pair models.Pair, x, y []float64) models.RollingCorrelationStats {
	window := stats.AdaptiveWindow(len(x), e.thresholds.MaxWindow)
	out := models.RollingCorrelationStats{Pair: pair.String(), Window: window}
	if window < e.thresholds.MinWindow {
		out.Note = noteInsufficientData
		return out
	}
	out.Computed = true

	valid := stats.Valid(stats.RollingCorrelation(x, y, window))
	if len(valid) > 0 {
		out.Mean = stats.Mean(valid)
		out.Std = stats.StdDev(valid)
		out.Min, out.Max = stats.MinMax(valid)
	}

	out.StabilityScore = StabilityScore(out.Mean, out.Std, len(valid))
	out.StabilityClass = e.thresholds.Stability(out.StabilityScore)
	return out
}

// StabilityScore maps the variation of a rolling series to [0,1].
// Series with no variation score 1; a zero mean scores 0.
func StabilityScore(mean, std float64, windows int) float64 {
	if windows < 2 || std == 0 {
		return 1
	}
	if mean == 0 {
		return 0
	}
	return stats.Clamp(1/(1+std/math.Abs(mean)), 0, 1)
}

// CrossCorrelation correlates x against y shifted by each lag in [-L, L] except 0.
// A positive lag means x leads y.
func (e *Engine) CrossCorrelation(pair models.Pair, x, y []float64) models.CrossCorrelationResult {
	n := len(x)
	maxLag := n / 4
	if maxLag > e.thresholds.MaxLag {
		maxLag = e.thresholds.MaxLag
	}

	out := models.CrossCorrelationResult{Pair: pair.String(), MaxLag: maxLag, Lags: []models.LagCoefficient{}}
	if maxLag < 1 {
		out.Note = noteInsufficientData
		return out
	}

	for lag := -maxLag; lag <= maxLag; lag++ {
		if lag == 0 {
			continue
		}

		var r float64
		var ok bool
		if lag > 0 {
			r, ok = stats.Pearson(x[lag:], y[:n-lag])
		} else {
			r, ok = stats.Pearson(x[:n+lag], y[-lag:])
		}
		if ok {
			out.Lags = append(out.Lags, models.LagCoefficient{Lag: lag, Coefficient: r})
		}
	}

	if len(out.Lags) == 0 {
		out.Note = "no lag produced a defined coefficient"
		return out
	}
	out.Computed = true

	best := out.Lags[0]
	for _, lc := range out.Lags[1:] {
		if math.Abs(lc.Coefficient) > math.Abs(best.Coefficient) {
			best = lc
		}
	}
	out.BestLag = best.Lag
	out.MaxCorrelation = best.Coefficient
	return out
}

// Insights lists the findings worth surfacing to a reader
func (e *Engine) Insights(result models.CorrelationResult) []models.CorrelationInsight {
	insights := []models.CorrelationInsight{}

	for _, p := range result.Pairwise {
		if p.Significance != models.Significant {
			continue
		}
		if p.Strength.IsStrong() || p.Strength.IsModerate() {
			insights = append(insights, models.CorrelationInsight{
				Kind:        models.InsightPairwise,
				Pair:        p.Pair,
				Strength:    p.Strength,
				Coefficient: p.Coefficient,
			})
		}
	}

	for _, r := range result.Rolling {
		if r.Computed && r.StabilityClass == models.HighlyUnstable {
			insights = append(insights, models.CorrelationInsight{
				Kind:           models.InsightUnstable,
				Pair:           r.Pair,
				Coefficient:    r.Mean,
				StabilityScore: r.StabilityScore,
				StabilityClass: r.StabilityClass,
			})
		}
	}

	for _, c := range result.CrossCorrelations {
		if c.Computed && math.Abs(c.MaxCorrelation) > e.thresholds.LaggedInsight {
			insights = append(insights, models.CorrelationInsight{
				Kind:        models.InsightLaggedCorrelate,
				Pair:        c.Pair,
				Coefficient: c.MaxCorrelation,
				Lag:         c.BestLag,
			})
		}
	}

	return insights
}

func presentPairs(panel *models.Panel) []models.Pair {
	var pairs []models.Pair
	for _, p := range models.AllPairs {
		if panel.HasAll(p.A, p.B) {
			pairs = append(pairs, p)
		}
	}
	return pairs
}
