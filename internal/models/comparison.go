package models

// Verdict is the direction of change of a KPI or severity
type Verdict string

const (
	VerdictImproved Verdict = "improved"
	VerdictDegraded Verdict = "degraded"
	VerdictStable   Verdict = "stable"
)

type StabilityChange string

const (
	StabilityUnchanged         StabilityChange = "stable"
	StabilityModerateChange    StabilityChange = "moderate_change"
	StabilitySignificantChange StabilityChange = "significant_change"
)

type ImprovementLevel string

const (
	ImprovementSignificant ImprovementLevel = "significant"
	ImprovementModerate    ImprovementLevel = "moderate"
	ImprovementMinimal     ImprovementLevel = "minimal"
	ImprovementDegraded    ImprovementLevel = "degraded"
)

// OverallAssessment is a coarse before/after classification
type OverallAssessment string

const (
	AssessmentSignificantImprovement OverallAssessment = "significant_improvement"
	AssessmentModerateImprovement    OverallAssessment = "moderate_improvement"
	AssessmentStable                 OverallAssessment = "stable"
	AssessmentPossibleDegradation    OverallAssessment = "possible_degradation"
	AssessmentMixed                  OverallAssessment = "mixed"
)

// KPIComparison compares one metric across two panels
type KPIComparison struct {
	Metric            Metric  `json:"metric"`
	BeforeMean        float64 `json:"before_mean"`
	AfterMean         float64 `json:"after_mean"`
	MeanChange        float64 `json:"mean_change"`
	MeanChangePercent float64 `json:"mean_change_percent"`
	BeforeStd         float64 `json:"before_std"`
	AfterStd          float64 `json:"after_std"`
	StdChange         float64 `json:"std_change"`
	Improvement       Verdict `json:"improvement"`
}

type AnomalyComparison struct {
	BeforeTotal         int      `json:"before_total"`
	AfterTotal          int      `json:"after_total"`
	TotalChange         int      `json:"total_change"`
	BeforeSeverity      Severity `json:"before_severity"`
	AfterSeverity       Severity `json:"after_severity"`
	SeverityImprovement Verdict  `json:"severity_improvement"`
}

type CorrelationComparison struct {
	Pair              string          `json:"pair"`
	BeforeCorrelation float64         `json:"before_correlation"`
	AfterCorrelation  float64         `json:"after_correlation"`
	CorrelationChange float64         `json:"correlation_change"`
	StabilityChange   StabilityChange `json:"stability_change"`
}

// ImprovementAssessment is the weighted before/after score
type ImprovementAssessment struct {
	ImprovementScore float64          `json:"improvement_score"`
	ImprovementLevel ImprovementLevel `json:"improvement_level"`
	AnomalyReduction int              `json:"anomaly_reduction"`
	KPIImprovements  int              `json:"kpi_improvements"`
	TotalKPIs        int              `json:"total_kpis"`
}

type FindingKind string

const (
	FindingAnomalies FindingKind = "anomalies"
	FindingKPI       FindingKind = "kpi"
)

// Finding is a structured improvement or concern. Amount is a count for
// anomaly findings and an absolute percent change for KPI findings.
type Finding struct {
	Kind   FindingKind `json:"kind"`
	Metric Metric      `json:"metric,omitempty"`
	Amount float64     `json:"amount"`
}

type ComparisonSummary struct {
	OverallAssessment OverallAssessment `json:"overall_assessment"`
	KeyImprovements   []Finding         `json:"key_improvements"`
	AreasOfConcern    []Finding         `json:"areas_of_concern"`
}

// ComparisonResult is the ComparisonEngine before/after output
type ComparisonResult struct {
	KPI          []KPIComparison         `json:"kpi_comparison"`
	Anomalies    AnomalyComparison       `json:"anomaly_comparison"`
	Correlations []CorrelationComparison `json:"correlation_comparison"`
	Assessment   ImprovementAssessment   `json:"improvement_assessment"`
	Summary      ComparisonSummary       `json:"summary"`
}

// KPIFor looks up the comparison of one metric
func (r ComparisonResult) KPIFor(m Metric) (KPIComparison, bool) {
	for _, k := range r.KPI {
		if k.Metric == m {
			return k, true
		}
	}
	return KPIComparison{}, false
}

type DeviationStatus string

const (
	DeviationNormal      DeviationStatus = "within_normal_range"
	DeviationMinor       DeviationStatus = "minor_deviation"
	DeviationSignificant DeviationStatus = "significant_deviation"
	DeviationMajor       DeviationStatus = "major_deviation"
)

// Acceptable reports whether the deviation counts toward the performance score
func (s DeviationStatus) Acceptable() bool {
	return s == DeviationNormal || s == DeviationMinor
}

type OverallStatus string

const (
	StatusExcellent OverallStatus = "excellent"
	StatusGood      OverallStatus = "good"
	StatusFair      OverallStatus = "fair"
	StatusPoor      OverallStatus = "poor"
)

// BaselineMetric is the reference level of one metric
type BaselineMetric struct {
	Mean      float64 `json:"mean" yaml:"mean"`
	Std       float64 `json:"std" yaml:"std"`
	Anomalies int     `json:"anomalies" yaml:"anomalies"`
}

// BaselineRecord is a reference profile, either stored or an industry default.
// Metrics missing from the map are not compared.
type BaselineRecord struct {
	Source  string                    `json:"source" yaml:"source"`
	Metrics map[Metric]BaselineMetric `json:"metrics" yaml:"metrics"`
}

type BaselineDeviation struct {
	Metric           Metric          `json:"metric"`
	BaselineValue    float64         `json:"baseline_value"`
	CurrentValue     float64         `json:"current_value"`
	Deviation        float64         `json:"deviation"`
	DeviationPercent float64         `json:"deviation_percent"`
	Status           DeviationStatus `json:"status"`
}

// BaselineAssessment is the ComparisonEngine baseline output
type BaselineAssessment struct {
	Deviations           []BaselineDeviation `json:"deviations"`
	PerformanceScore     float64             `json:"performance_score"`
	OverallStatus        OverallStatus       `json:"overall_status"`
	AcceptableDeviations int                 `json:"acceptable_deviations"`
	TotalDeviations      int                 `json:"total_deviations"`
	AnomalySeverity      Severity            `json:"anomaly_severity"`
}
