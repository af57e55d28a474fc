// Package stats holds the numeric kernels shared by the analysis components.
// Every function is total: degenerate input yields a documented fallback, never a panic.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mean returns the arithmetic mean, or 0 for an empty slice.
// When the plain sum overflows it falls back to an incremental mean, which
// stays finite for any finite input.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	if m := stat.Mean(x, nil); !math.IsInf(m, 0) && !math.IsNaN(m) {
		return m
	}

	m := 0.0
	for i, v := range x {
		k := float64(i + 1)
		m += v/k - m/k
	}
	return m
}

// StdDev returns the sample standard deviation (n-1 denominator), or 0 below two values
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	sd := stat.StdDev(x, nil)
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0
	}
	return sd
}

// Median returns the middle value, averaging the two central values for even lengths
func Median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return sorted[mid-1]/2 + sorted[mid]/2
	}
	return sorted[mid]
}

// MinMax returns the extremes, or zeros for an empty slice
func MinMax(x []float64) (min, max float64) {
	if len(x) == 0 {
		return 0, 0
	}
	min, max = x[0], x[0]
	for _, v := range x[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Pearson returns the correlation coefficient of two equal-length series.
// ok is false when the coefficient is undefined (fewer than two points or zero variance).
func Pearson(x, y []float64) (r float64, ok bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	r = stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return Clamp(r, -1, 1), true
}

// CorrelationPValue returns the two-sided p-value of a Pearson coefficient
// under the Student t distribution with n-2 degrees of freedom
func CorrelationPValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 || math.IsNaN(r) {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}

	t := r * math.Sqrt(df/(1-r*r))
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - tDist.CDF(math.Abs(t)))
	return Clamp(p, 0, 1)
}

// RollingCorrelation correlates x and y over a trailing window.
// Position i holds the coefficient of [i-window+1, i]; undefined positions are NaN.
func RollingCorrelation(x, y []float64, window int) []float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 2 {
		return out
	}

	for end := window - 1; end < n; end++ {
		start := end - window + 1
		if r, ok := Pearson(x[start:end+1], y[start:end+1]); ok {
			out[end] = r
		}
	}
	return out
}

// MovingAverage returns the trailing mean over window; positions before the first full window are NaN
func MovingAverage(x []float64, window int) []float64 {
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 {
		return out
	}

	sum := 0.0
	for i, v := range x {
		sum += v
		if i >= window {
			sum -= x[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// Valid drops NaN and infinite values
func Valid(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// Finite replaces NaN or infinite values with fallback
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// PercentChange returns (current-reference)/reference*100, or 0 when reference is 0
func PercentChange(reference, current float64) float64 {
	if reference == 0 {
		return 0
	}
	return Finite((current-reference)/reference*100, 0)
}

// AdaptiveWindow returns min(max, n/4), the rolling window size for a series of length n
func AdaptiveWindow(n, max int) int {
	w := n / 4
	if w > max {
		w = max
	}
	return w
}
