package models

// Strength classifies a correlation coefficient
type Strength string

const (
	StrengthStrongPositive   Strength = "strong_positive"
	StrengthStrongNegative   Strength = "strong_negative"
	StrengthModeratePositive Strength = "moderate_positive"
	StrengthModerateNegative Strength = "moderate_negative"
	StrengthWeak             Strength = "weak"
)

// IsStrong reports whether the strength is strong in either direction
func (s Strength) IsStrong() bool {
	return s == StrengthStrongPositive || s == StrengthStrongNegative
}

// IsModerate reports whether the strength is moderate in either direction
func (s Strength) IsModerate() bool {
	return s == StrengthModeratePositive || s == StrengthModerateNegative
}

type Significance string

const (
	Significant    Significance = "significant"
	NotSignificant Significance = "not_significant"
)

// SignificanceMethod records which test produced a p-value.
// Approximate p-values are placeholders and must not be read as probabilities.
type SignificanceMethod string

const (
	MethodExact       SignificanceMethod = "exact"
	MethodApproximate SignificanceMethod = "approximate"
)

// StabilityClass buckets a rolling-correlation stability score
type StabilityClass string

const (
	HighlyStable     StabilityClass = "highly_stable"
	ModeratelyStable StabilityClass = "moderately_stable"
	SomewhatUnstable StabilityClass = "somewhat_unstable"
	HighlyUnstable   StabilityClass = "highly_unstable"
)

// CorrelationPair is the whole-panel correlation of two metrics
type CorrelationPair struct {
	Pair         string             `json:"pair"`
	MetricA      Metric             `json:"metric_a"`
	MetricB      Metric             `json:"metric_b"`
	Coefficient  float64            `json:"correlation"`
	PValue       float64            `json:"p_value"`
	Method       SignificanceMethod `json:"method"`
	Strength     Strength           `json:"strength"`
	Significance Significance       `json:"significance"`
	SampleSize   int                `json:"sample_size"`
}

// RollingCorrelationStats summarizes a sliding-window correlation series
type RollingCorrelationStats struct {
	Pair           string         `json:"pair"`
	Computed       bool           `json:"computed"`
	Note           string         `json:"note,omitempty"`
	Window         int            `json:"window"`
	Mean           float64        `json:"mean"`
	Std            float64        `json:"std"`
	Min            float64        `json:"min"`
	Max            float64        `json:"max"`
	StabilityScore float64        `json:"stability_score"`
	StabilityClass StabilityClass `json:"stability_class"`
}

// LagCoefficient is the correlation at one lag
type LagCoefficient struct {
	Lag         int     `json:"lag"`
	Coefficient float64 `json:"correlation"`
}

// CrossCorrelationResult holds lagged correlations of a pair
type CrossCorrelationResult struct {
	Pair           string           `json:"pair"`
	Computed       bool             `json:"computed"`
	Note           string           `json:"note,omitempty"`
	MaxLag         int              `json:"max_lag"`
	Lags           []LagCoefficient `json:"lags"`
	BestLag        int              `json:"best_lag"`
	MaxCorrelation float64          `json:"max_correlation"`
}

type InsightKind string

const (
	InsightPairwise        InsightKind = "pairwise_correlation"
	InsightUnstable        InsightKind = "unstable_correlation"
	InsightLaggedCorrelate InsightKind = "lagged_correlation"
)

// CorrelationInsight is a structured finding; rendering it into prose is left to the caller
type CorrelationInsight struct {
	Kind           InsightKind    `json:"kind"`
	Pair           string         `json:"pair"`
	Strength       Strength       `json:"strength,omitempty"`
	Coefficient    float64        `json:"correlation"`
	StabilityScore float64        `json:"stability_score,omitempty"`
	StabilityClass StabilityClass `json:"stability_class,omitempty"`
	Lag            int            `json:"lag,omitempty"`
}

// CorrelationResult is the full CorrelationEngine output for one panel
type CorrelationResult struct {
	Pairwise          []CorrelationPair         `json:"pairwise_correlations"`
	Rolling           []RollingCorrelationStats `json:"rolling_correlations"`
	CrossCorrelations []CrossCorrelationResult  `json:"cross_correlations"`
	Insights          []CorrelationInsight      `json:"insights"`
}

// PairwiseFor looks up the whole-panel correlation of a pair
func (r CorrelationResult) PairwiseFor(pair Pair) (CorrelationPair, bool) {
	for _, p := range r.Pairwise {
		if p.Pair == pair.String() {
			return p, true
		}
	}
	return CorrelationPair{}, false
}
