package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-diagnostics/internal/models"
)

func newPanel(t *testing.T, columns map[models.Metric][]float64) *models.Panel {
	t.Helper()
	n := 0
	for _, col := range columns {
		n = len(col)
	}
	times := models.SyntheticTimes(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), n, 15*time.Minute)
	p, err := models.NewPanel(times, columns)
	require.NoError(t, err)
	return p
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

var (
	scenarioRTWP = []float64{-95, -96, -94, -97, -98, -99}
	scenarioSINR = []float64{18, 19, 17, 16, 15, 14}
)

func TestPairwiseApproximate(t *testing.T) {
	th := DefaultThresholds()
	e := NewEngine(th, ApproximateTest{Cutoff: th.ApproximateCutoff})

	p := e.Pairwise(models.PairRTWPSINR, scenarioRTWP, scenarioSINR)

	assert.Equal(t, "RTWP_SINR", p.Pair)
	assert.InDelta(t, 0.7714, p.Coefficient, 1e-4)
	assert.Greater(t, p.Coefficient*p.Coefficient, 0.49)
	assert.True(t, p.Strength.IsStrong())
	assert.Equal(t, models.Significant, p.Significance)
	assert.Equal(t, models.MethodApproximate, p.Method)
	assert.Equal(t, 0.05, p.PValue)
	assert.Equal(t, 6, p.SampleSize)
}

func TestPairwiseStrongNegative(t *testing.T) {
	th := DefaultThresholds()
	e := NewEngine(th, ApproximateTest{Cutoff: th.ApproximateCutoff})

	reversed := []float64{14, 15, 16, 17, 18, 19}
	p := e.Pairwise(models.PairRTWPSINR, []float64{-99, -98, -97, -96, -95, -94}, reversed)

	assert.InDelta(t, 1.0, p.Coefficient, 1e-9)
	p = e.Pairwise(models.PairRTWPSINR, scenarioRTWP, []float64{14, 15, 16, 17, 18, 19})
	assert.Less(t, p.Coefficient, -0.7)
	assert.Equal(t, models.StrengthStrongNegative, p.Strength)
	assert.Equal(t, models.Significant, p.Significance)
}

func TestPairwiseExact(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)

	p := e.Pairwise(models.PairRTWPSINR, scenarioRTWP, scenarioSINR)

	assert.Equal(t, models.MethodExact, p.Method)
	assert.InDelta(t, 0.0724, p.PValue, 1e-3)
	assert.Equal(t, models.NotSignificant, p.Significance)
}

func TestPairwiseDegenerate(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)

	p := e.Pairwise(models.PairSINRPRB, []float64{1, 2, 3}, []float64{5, 5, 5})

	assert.Equal(t, 0.0, p.Coefficient)
	assert.Equal(t, 1.0, p.PValue)
	assert.Equal(t, models.StrengthWeak, p.Strength)
	assert.Equal(t, models.NotSignificant, p.Significance)
}

func TestRollingConstantSeriesIsStable(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)

	r := e.Rolling(models.PairRTWPPRB, repeat(-95, 24), repeat(60, 24))

	require.True(t, r.Computed)
	assert.Equal(t, 6, r.Window)
	assert.Equal(t, 1.0, r.StabilityScore)
	assert.Equal(t, models.HighlyStable, r.StabilityClass)
}

func TestRollingInsufficientData(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)

	r := e.Rolling(models.PairRTWPPRB, repeat(-95, 16), repeat(60, 16))

	assert.False(t, r.Computed)
	assert.Equal(t, "insufficient data", r.Note)
}

func TestRollingScoreInRange(t *testing.T) {
	n := 60
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64((i * i * 37) % 101)
		y[i] = float64((i * 53) % 29)
	}
	e := NewEngine(DefaultThresholds(), nil)

	r := e.Rolling(models.PairSINRPRB, x, y)

	require.True(t, r.Computed)
	assert.GreaterOrEqual(t, r.StabilityScore, 0.0)
	assert.LessOrEqual(t, r.StabilityScore, 1.0)
	assert.GreaterOrEqual(t, r.Min, -1.0)
	assert.LessOrEqual(t, r.Max, 1.0)
}

func TestStabilityScore(t *testing.T) {
	assert.Equal(t, 1.0, StabilityScore(0.4, 0.1, 1))
	assert.Equal(t, 1.0, StabilityScore(0.4, 0, 10))
	assert.Equal(t, 0.0, StabilityScore(0, 0.2, 10))
	assert.InDelta(t, 0.5, StabilityScore(-0.5, 0.5, 10), 1e-12)

	th := DefaultThresholds()
	assert.Equal(t, models.ModeratelyStable, th.Stability(0.6))
	assert.Equal(t, models.SomewhatUnstable, th.Stability(0.5))
	assert.Equal(t, models.HighlyUnstable, th.Stability(0.39))
}

func TestCrossCorrelationFindsLag(t *testing.T) {
	n := 40
	sinr := make([]float64, n)
	rtwp := make([]float64, n)
	for i := 0; i < n; i++ {
		sinr[i] = float64((i * i * 37) % 101)
	}
	for i := 0; i < n; i++ {
		if i >= 2 {
			rtwp[i] = -sinr[i-2]
		} else {
			rtwp[i] = 50
		}
	}
	e := NewEngine(DefaultThresholds(), nil)

	c := e.CrossCorrelation(models.PairRTWPSINR, rtwp, sinr)

	require.True(t, c.Computed)
	assert.Equal(t, 10, c.MaxLag)
	assert.Len(t, c.Lags, 20)
	assert.Equal(t, 2, c.BestLag)
	assert.InDelta(t, -1.0, c.MaxCorrelation, 1e-9)
	for _, lc := range c.Lags {
		assert.NotZero(t, lc.Lag)
	}
}

func TestCrossCorrelationShortSeries(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)

	c := e.CrossCorrelation(models.PairRTWPSINR, []float64{1, 2, 3}, []float64{3, 2, 1})

	assert.False(t, c.Computed)
	assert.Equal(t, 0, c.MaxLag)
}

func TestAnalyzeInsights(t *testing.T) {
	n := 40
	rtwp := make([]float64, n)
	sinr := make([]float64, n)
	prb := make([]float64, n)
	for i := 0; i < n; i++ {
		rtwp[i] = -110 + float64(i)
		sinr[i] = 30 - float64(i)*0.5
		prb[i] = float64((i * 53) % 29)
	}
	panel := newPanel(t, map[models.Metric][]float64{
		models.MetricRTWP: rtwp,
		models.MetricSINR: sinr,
		models.MetricPRB:  prb,
	})

	result := NewEngine(DefaultThresholds(), nil).Analyze(panel)

	require.Len(t, result.Pairwise, 3)
	require.Len(t, result.Rolling, 3)
	require.Len(t, result.CrossCorrelations, 1)

	p, ok := result.PairwiseFor(models.PairRTWPSINR)
	require.True(t, ok)
	assert.Equal(t, models.StrengthStrongNegative, p.Strength)

	var kinds []models.InsightKind
	for _, in := range result.Insights {
		kinds = append(kinds, in.Kind)
	}
	assert.Contains(t, kinds, models.InsightPairwise)
	assert.Contains(t, kinds, models.InsightLaggedCorrelate)
	assert.Equal(t, models.InsightPairwise, result.Insights[0].Kind)
	assert.Equal(t, "RTWP_SINR", result.Insights[0].Pair)
}

func TestAnalyzeSingleMetric(t *testing.T) {
	panel := newPanel(t, map[models.Metric][]float64{models.MetricRTWP: repeat(-95, 30)})

	result := NewEngine(DefaultThresholds(), nil).Analyze(panel)

	assert.Empty(t, result.Pairwise)
	assert.Empty(t, result.CrossCorrelations)
	assert.Empty(t, result.Insights)
}

func TestNewSignificanceTest(t *testing.T) {
	th := DefaultThresholds()

	exact, err := NewSignificanceTest("exact", th)
	require.NoError(t, err)
	assert.Equal(t, models.MethodExact, exact.Method())

	approx, err := NewSignificanceTest("approximate", th)
	require.NoError(t, err)
	assert.Equal(t, models.MethodApproximate, approx.Method())

	_, err = NewSignificanceTest("bayesian", th)
	assert.Error(t, err)
}

func TestStrengthBands(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, models.StrengthStrongPositive, th.Strength(0.7))
	assert.Equal(t, models.StrengthModerateNegative, th.Strength(-0.3))
	assert.Equal(t, models.StrengthWeak, th.Strength(0.29))
	assert.Equal(t, models.StrengthWeak, th.Strength(0))
}
