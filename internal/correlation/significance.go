package correlation

import (
	"fmt"
	"math"

	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/stats"
)

// SignificanceTest decides whether a coefficient computed over n samples is significant
type SignificanceTest interface {
	Test(r float64, n int) (pValue float64, significant bool)
	Method() models.SignificanceMethod
}

// ExactTest is the two-sided Student t test on the coefficient
type ExactTest struct {
	Alpha float64
}

func (e ExactTest) Test(r float64, n int) (float64, bool) {
	p := stats.CorrelationPValue(r, n)
	return p, p < e.Alpha
}

func (e ExactTest) Method() models.SignificanceMethod {
	return models.MethodExact
}

// ApproximateTest judges significance from the coefficient magnitude alone.
// The reported p-value is a placeholder, not a probability.
type ApproximateTest struct {
	Cutoff float64
}

const (
	approximateSignificantP   = 0.05
	approximateInsignificantP = 0.1
)

func (a ApproximateTest) Test(r float64, _ int) (float64, bool) {
	if math.Abs(r) > a.Cutoff {
		return approximateSignificantP, true
	}
	return approximateInsignificantP, false
}

func (a ApproximateTest) Method() models.SignificanceMethod {
	return models.MethodApproximate
}

// NewSignificanceTest selects a strategy by method name
func NewSignificanceTest(method string, t Thresholds) (SignificanceTest, error) {
	switch models.SignificanceMethod(method) {
	case "", models.MethodExact:
		return ExactTest{Alpha: t.Alpha}, nil
	case models.MethodApproximate:
		return ApproximateTest{Cutoff: t.ApproximateCutoff}, nil
	default:
		return nil, fmt.Errorf("unknown significance method %q", method)
	}
}
