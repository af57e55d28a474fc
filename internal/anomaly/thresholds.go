package anomaly

import "kpi-diagnostics/internal/models"

// Bounds configures the statistical and absolute-range checks for one metric
type Bounds struct {
	StdMultiplier float64 `mapstructure:"std_multiplier" yaml:"std_multiplier"`
	Lower         float64 `mapstructure:"lower" yaml:"lower"`
	Upper         float64 `mapstructure:"upper" yaml:"upper"`
	CheckLower    bool    `mapstructure:"check_lower" yaml:"check_lower"`
	CheckUpper    bool    `mapstructure:"check_upper" yaml:"check_upper"`
}

// Thresholds holds every constant the detector applies
type Thresholds struct {
	RTWP Bounds `mapstructure:"rtwp" yaml:"rtwp"`
	SINR Bounds `mapstructure:"sinr" yaml:"sinr"`
	PRB  Bounds `mapstructure:"prb" yaml:"prb"`

	// Rolling correlation outside [-CorrelationLimit, CorrelationLimit] is flagged
	CorrelationLimit float64 `mapstructure:"correlation_limit" yaml:"correlation_limit"`
	MaxWindow        int     `mapstructure:"max_window" yaml:"max_window"`
	MinWindow        int     `mapstructure:"min_window" yaml:"min_window"`

	TrendMinRows       int     `mapstructure:"trend_min_rows" yaml:"trend_min_rows"`
	TrendShortWindow   int     `mapstructure:"trend_short_window" yaml:"trend_short_window"`
	TrendLongWindow    int     `mapstructure:"trend_long_window" yaml:"trend_long_window"`
	TrendStdMultiplier float64 `mapstructure:"trend_std_multiplier" yaml:"trend_std_multiplier"`

	// Totals above these counts raise severity
	SeverityHigh   int `mapstructure:"severity_high" yaml:"severity_high"`
	SeverityMedium int `mapstructure:"severity_medium" yaml:"severity_medium"`
}

// DefaultThresholds returns the standard RAN detection thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		RTWP: Bounds{StdMultiplier: 2.5, Lower: -120, Upper: -70, CheckLower: true, CheckUpper: true},
		SINR: Bounds{StdMultiplier: 2.0, Lower: 0, CheckLower: true},
		PRB:  Bounds{StdMultiplier: 2.0, Lower: 0, Upper: 100, CheckLower: true, CheckUpper: true},

		CorrelationLimit: 0.8,
		MaxWindow:        20,
		MinWindow:        5,

		TrendMinRows:       10,
		TrendShortWindow:   5,
		TrendLongWindow:    15,
		TrendStdMultiplier: 2.0,

		SeverityHigh:   50,
		SeverityMedium: 20,
	}
}

// For returns the bounds of a metric
func (t Thresholds) For(m models.Metric) Bounds {
	switch m {
	case models.MetricRTWP:
		return t.RTWP
	case models.MetricSINR:
		return t.SINR
	default:
		return t.PRB
	}
}

// Severity classifies a total anomaly count
func (t Thresholds) Severity(total int) models.Severity {
	switch {
	case total > t.SeverityHigh:
		return models.SeverityHigh
	case total > t.SeverityMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
