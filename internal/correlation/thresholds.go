package correlation

import "kpi-diagnostics/internal/models"

// Thresholds holds the correlation bands and window limits
type Thresholds struct {
	Strong   float64 `mapstructure:"strong" yaml:"strong"`
	Moderate float64 `mapstructure:"moderate" yaml:"moderate"`

	Alpha             float64 `mapstructure:"alpha" yaml:"alpha"`
	ApproximateCutoff float64 `mapstructure:"approximate_cutoff" yaml:"approximate_cutoff"`

	MaxWindow int `mapstructure:"max_window" yaml:"max_window"`
	MinWindow int `mapstructure:"min_window" yaml:"min_window"`
	MaxLag    int `mapstructure:"max_lag" yaml:"max_lag"`

	HighlyStable     float64 `mapstructure:"highly_stable" yaml:"highly_stable"`
	ModeratelyStable float64 `mapstructure:"moderately_stable" yaml:"moderately_stable"`
	SomewhatUnstable float64 `mapstructure:"somewhat_unstable" yaml:"somewhat_unstable"`

	// Lagged correlations stronger than this become insights
	LaggedInsight float64 `mapstructure:"lagged_insight" yaml:"lagged_insight"`
}

// DefaultThresholds returns the standard correlation bands
func DefaultThresholds() Thresholds {
	return Thresholds{
		Strong:            0.7,
		Moderate:          0.3,
		Alpha:             0.05,
		ApproximateCutoff: 0.3,
		MaxWindow:         20,
		MinWindow:         5,
		MaxLag:            10,
		HighlyStable:      0.8,
		ModeratelyStable:  0.6,
		SomewhatUnstable:  0.4,
		LaggedInsight:     0.5,
	}
}

// Strength classifies a coefficient by magnitude and sign
func (t Thresholds) Strength(r float64) models.Strength {
	abs := r
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= t.Strong && r > 0:
		return models.StrengthStrongPositive
	case abs >= t.Strong:
		return models.StrengthStrongNegative
	case abs >= t.Moderate && r > 0:
		return models.StrengthModeratePositive
	case abs >= t.Moderate:
		return models.StrengthModerateNegative
	default:
		return models.StrengthWeak
	}
}

// Stability buckets a stability score
func (t Thresholds) Stability(score float64) models.StabilityClass {
	switch {
	case score >= t.HighlyStable:
		return models.HighlyStable
	case score >= t.ModeratelyStable:
		return models.ModeratelyStable
	case score >= t.SomewhatUnstable:
		return models.SomewhatUnstable
	default:
		return models.HighlyUnstable
	}
}
