package models

import (
	"fmt"
	"time"
)

// Metric names one of the radio KPIs carried by a panel
type Metric string

const (
	MetricRTWP Metric = "RTWP"
	MetricSINR Metric = "SINR"
	MetricPRB  Metric = "PRB"
)

// AllMetrics lists the metrics in analysis order
var AllMetrics = []Metric{MetricRTWP, MetricSINR, MetricPRB}

// Pair is an unordered metric pair, always stored in AllMetrics order
type Pair struct {
	A Metric
	B Metric
}

func (p Pair) String() string {
	return string(p.A) + "_" + string(p.B)
}

var (
	PairRTWPSINR = Pair{A: MetricRTWP, B: MetricSINR}
	PairRTWPPRB  = Pair{A: MetricRTWP, B: MetricPRB}
	PairSINRPRB  = Pair{A: MetricSINR, B: MetricPRB}
)

// AllPairs lists every metric pair in analysis order
var AllPairs = []Pair{PairRTWPSINR, PairRTWPPRB, PairSINRPRB}

// Sample is one row of a panel. A nil metric means the column is absent.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	RTWP      *float64  `json:"rtwp,omitempty"`
	SINR      *float64  `json:"sinr,omitempty"`
	PRB       *float64  `json:"prb,omitempty"`
}

// Panel is an immutable, time-ordered set of KPI columns of equal length
type Panel struct {
	times   []time.Time
	columns map[Metric][]float64
}

// NewPanel validates and copies the given columns into a Panel.
// Timestamps must be non-decreasing and every column must match their length.
func NewPanel(times []time.Time, columns map[Metric][]float64) (*Panel, error) {
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return nil, fmt.Errorf("timestamps not ordered at position %d", i)
		}
	}

	p := &Panel{
		times:   append([]time.Time(nil), times...),
		columns: make(map[Metric][]float64, len(columns)),
	}
	for m, vals := range columns {
		if len(vals) != len(times) {
			return nil, fmt.Errorf("column %s has %d values, expected %d", m, len(vals), len(times))
		}
		p.columns[m] = append([]float64(nil), vals...)
	}
	return p, nil
}

// SyntheticTimes returns n timestamps starting at start, step apart
func SyntheticTimes(start time.Time, n int, step time.Duration) []time.Time {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * step)
	}
	return times
}

// Len returns the number of rows
func (p *Panel) Len() int {
	return len(p.times)
}

// Has reports whether the metric column is present
func (p *Panel) Has(m Metric) bool {
	_, ok := p.columns[m]
	return ok
}

// HasAll reports whether every given metric is present
func (p *Panel) HasAll(metrics ...Metric) bool {
	for _, m := range metrics {
		if !p.Has(m) {
			return false
		}
	}
	return true
}

// Column returns a copy of the metric column
func (p *Panel) Column(m Metric) ([]float64, bool) {
	vals, ok := p.columns[m]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), vals...), true
}

// Times returns a copy of the timestamps
func (p *Panel) Times() []time.Time {
	return append([]time.Time(nil), p.times...)
}

// Metrics returns the present metrics in analysis order
func (p *Panel) Metrics() []Metric {
	var present []Metric
	for _, m := range AllMetrics {
		if p.Has(m) {
			present = append(present, m)
		}
	}
	return present
}

// Samples expands the panel into rows
func (p *Panel) Samples() []Sample {
	samples := make([]Sample, len(p.times))
	for i, ts := range p.times {
		s := Sample{Timestamp: ts}
		if col, ok := p.columns[MetricRTWP]; ok {
			v := col[i]
			s.RTWP = &v
		}
		if col, ok := p.columns[MetricSINR]; ok {
			v := col[i]
			s.SINR = &v
		}
		if col, ok := p.columns[MetricPRB]; ok {
			v := col[i]
			s.PRB = &v
		}
		samples[i] = s
	}
	return samples
}
