package comparison

import "kpi-diagnostics/internal/models"

// BaselineDefaults is the industry reference profile used when no stored baseline is given
type BaselineDefaults struct {
	RTWP models.BaselineMetric `mapstructure:"rtwp" yaml:"rtwp"`
	SINR models.BaselineMetric `mapstructure:"sinr" yaml:"sinr"`
	PRB  models.BaselineMetric `mapstructure:"prb" yaml:"prb"`
}

// Thresholds holds the comparison policy constants
type Thresholds struct {
	// KPIs changing less than this percentage are stable
	StablePercent  float64 `mapstructure:"stable_percent" yaml:"stable_percent"`
	PRBHealthyLow  float64 `mapstructure:"prb_healthy_low" yaml:"prb_healthy_low"`
	PRBHealthyHigh float64 `mapstructure:"prb_healthy_high" yaml:"prb_healthy_high"`

	AnomalyWeight float64 `mapstructure:"anomaly_weight" yaml:"anomaly_weight"`
	KPIWeight     float64 `mapstructure:"kpi_weight" yaml:"kpi_weight"`

	SignificantScore float64 `mapstructure:"significant_score" yaml:"significant_score"`
	ModerateScore    float64 `mapstructure:"moderate_score" yaml:"moderate_score"`
	MinimalScore     float64 `mapstructure:"minimal_score" yaml:"minimal_score"`

	CorrelationStable   float64 `mapstructure:"correlation_stable" yaml:"correlation_stable"`
	CorrelationModerate float64 `mapstructure:"correlation_moderate" yaml:"correlation_moderate"`

	// An anomaly drop larger than this with two improved KPIs is a significant improvement
	SignificantAnomalyDrop int `mapstructure:"significant_anomaly_drop" yaml:"significant_anomaly_drop"`

	NormalDeviation      float64 `mapstructure:"normal_deviation" yaml:"normal_deviation"`
	MinorDeviation       float64 `mapstructure:"minor_deviation" yaml:"minor_deviation"`
	SignificantDeviation float64 `mapstructure:"significant_deviation" yaml:"significant_deviation"`

	ExcellentScore float64 `mapstructure:"excellent_score" yaml:"excellent_score"`
	GoodScore      float64 `mapstructure:"good_score" yaml:"good_score"`
	FairScore      float64 `mapstructure:"fair_score" yaml:"fair_score"`

	Baseline BaselineDefaults `mapstructure:"baseline" yaml:"baseline"`
}

// DefaultThresholds returns the standard comparison policy
func DefaultThresholds() Thresholds {
	return Thresholds{
		StablePercent:  5,
		PRBHealthyLow:  40,
		PRBHealthyHigh: 80,

		AnomalyWeight: 40,
		KPIWeight:     60,

		SignificantScore: 80,
		ModerateScore:    60,
		MinimalScore:     40,

		CorrelationStable:   0.1,
		CorrelationModerate: 0.3,

		SignificantAnomalyDrop: 10,

		NormalDeviation:      5,
		MinorDeviation:       15,
		SignificantDeviation: 30,

		ExcellentScore: 80,
		GoodScore:      60,
		FairScore:      40,

		Baseline: BaselineDefaults{
			RTWP: models.BaselineMetric{Mean: -95, Std: 3},
			SINR: models.BaselineMetric{Mean: 15, Std: 2},
			PRB:  models.BaselineMetric{Mean: 60, Std: 15},
		},
	}
}

// Level buckets an improvement score
func (t Thresholds) Level(score float64) models.ImprovementLevel {
	switch {
	case score >= t.SignificantScore:
		return models.ImprovementSignificant
	case score >= t.ModerateScore:
		return models.ImprovementModerate
	case score >= t.MinimalScore:
		return models.ImprovementMinimal
	default:
		return models.ImprovementDegraded
	}
}

// Deviation buckets the magnitude of a percent deviation from baseline
func (t Thresholds) Deviation(percent float64) models.DeviationStatus {
	switch {
	case percent < t.NormalDeviation:
		return models.DeviationNormal
	case percent < t.MinorDeviation:
		return models.DeviationMinor
	case percent < t.SignificantDeviation:
		return models.DeviationSignificant
	default:
		return models.DeviationMajor
	}
}

// StabilityChange buckets the absolute change of a correlation coefficient
func (t Thresholds) StabilityChange(delta float64) models.StabilityChange {
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta < t.CorrelationStable:
		return models.StabilityUnchanged
	case delta < t.CorrelationModerate:
		return models.StabilityModerateChange
	default:
		return models.StabilitySignificantChange
	}
}
