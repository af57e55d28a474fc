package normalize

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/stats"
	"kpi-diagnostics/internal/table"
)

// TimeColumn is the canonical name of the timestamp column
const TimeColumn = "TIME"

// headerSynonyms maps common column name variations to canonical names
var headerSynonyms = map[string]string{
	"RTWP_DBM":        "RTWP",
	"SINR_DB":         "SINR",
	"PRB_UTILIZATION": "PRB",
	"PRB_UTIL":        "PRB",
	"PRB_USAGE":       "PRB",
	"TIMESTAMP":       TimeColumn,
	"DATETIME":        TimeColumn,
	"DATE":            TimeColumn,
}

var timeColumns = []string{TimeColumn, "TIMESTAMP", "DATE", "DATETIME"}

// Options tunes cleaning. Zero values are replaced by DefaultOptions.
// Cells whose magnitude exceeds MaxMagnitude count as missing.
type Options struct {
	OutlierStdMultiplier float64       `mapstructure:"outlier_std_multiplier" yaml:"outlier_std_multiplier"`
	MaxMagnitude         float64       `mapstructure:"max_magnitude" yaml:"max_magnitude"`
	SyntheticStart       time.Time     `mapstructure:"-" yaml:"-"`
	SyntheticInterval    time.Duration `mapstructure:"synthetic_interval" yaml:"synthetic_interval"`
}

// DefaultOptions trims at 3 standard deviations, accepts magnitudes up to 1e12
// and synthesizes 15-minute timestamps from 2024-01-01 when a file carries no
// time column. The magnitude cap keeps sums of squares finite for any table
// that fits in memory.
func DefaultOptions() Options {
	return Options{
		OutlierStdMultiplier: 3,
		MaxMagnitude:         1e12,
		SyntheticStart:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SyntheticInterval:    15 * time.Minute,
	}
}

// Normalizer turns raw KPI tables into cleaned panels
type Normalizer struct {
	opts        Options
	dateFormats []string
}

// NewNormalizer creates a new normalizer
func NewNormalizer(opts Options) *Normalizer {
	def := DefaultOptions()
	if opts.OutlierStdMultiplier <= 0 {
		opts.OutlierStdMultiplier = def.OutlierStdMultiplier
	}
	if opts.MaxMagnitude <= 0 {
		opts.MaxMagnitude = def.MaxMagnitude
	}
	if opts.SyntheticStart.IsZero() {
		opts.SyntheticStart = def.SyntheticStart
	}
	if opts.SyntheticInterval <= 0 {
		opts.SyntheticInterval = def.SyntheticInterval
	}

	return &Normalizer{
		opts: opts,
		dateFormats: []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02 15:04:05", // SQL datetime
			"2006-01-02 15:04",
			"2006-01-02T15:04:05",
			"2006-01-02T15:04",
			"2006/01/02 15:04:05",
			"2006/01/02 15:04",
			"01/02/2006 15:04:05",
			"01/02/2006 15:04",
			"02-Jan-2006 15:04:05",
			"2006-01-02",      // ISO: 2024-01-15
			"01/02/2006",      // US: 01/15/2024
			"2006/01/02",      // Alt ISO
			"02-Jan-2006",     // Text: 15-Jan-2024
			"January 2, 2006", // Full text
		},
	}
}

// row is one record while cleaning is in progress
type row struct {
	ts      time.Time
	values  [3]float64
	present [3]bool
}

// Normalize parses raw comma-delimited bytes into a panel
func (n *Normalizer) Normalize(data []byte, name string) (*models.Panel, models.Metadata, error) {
	tbl, err := table.Parse(data, name)
	if err != nil {
		if errors.Is(err, table.ErrNoHeader) {
			return nil, models.Metadata{}, invalid("file is empty")
		}
		return nil, models.Metadata{}, invalid("unreadable table: %v", err)
	}
	return n.NormalizeTable(tbl)
}

// NormalizeTable cleans an already parsed table
func (n *Normalizer) NormalizeTable(tbl *table.Table) (*models.Panel, models.Metadata, error) {
	meta := models.Metadata{
		Filename:      tbl.Name,
		MalformedRows: tbl.Skipped,
		MissingValues: make(map[models.Metric]int, len(models.AllMetrics)),
		Means:         make(map[models.Metric]float64, len(models.AllMetrics)),
	}

	headers := CanonicalHeaders(tbl.Headers)
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	var missing []string
	for _, m := range models.AllMetrics {
		if _, ok := index[string(m)]; !ok {
			missing = append(missing, string(m))
		}
	}
	if len(missing) > 0 {
		return nil, meta, &ValidationError{Reason: "missing required columns", MissingColumns: missing}
	}

	rows := make([]row, len(tbl.Rows))
	for i, cells := range tbl.Rows {
		for j, m := range models.AllMetrics {
			if v, ok := n.parseNumber(cells[index[string(m)]]); ok {
				rows[i].values[j] = v
				rows[i].present[j] = true
			}
		}
	}

	rows, meta.SyntheticTime, meta.InvalidTimestamps = n.assignTimes(rows, tbl, index)

	rows = dropEmpty(rows)
	for j, m := range models.AllMetrics {
		for _, r := range rows {
			if !r.present[j] {
				meta.MissingValues[m]++
			}
		}
	}

	for j, m := range models.AllMetrics {
		var err error
		var removed int
		rows, removed, err = n.cleanColumn(rows, j, m)
		if err != nil {
			return nil, meta, err
		}
		meta.OutliersRemoved += removed
	}

	if len(rows) == 0 {
		return nil, meta, invalid("no usable rows after cleaning")
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].ts.Before(rows[b].ts)
	})

	times := make([]time.Time, len(rows))
	columns := make(map[models.Metric][]float64, len(models.AllMetrics))
	for j, m := range models.AllMetrics {
		col := make([]float64, len(rows))
		for i, r := range rows {
			col[i] = r.values[j]
		}
		columns[m] = col
		meta.Means[m] = stats.Mean(col)
	}
	for i, r := range rows {
		times[i] = r.ts
	}

	panel, err := models.NewPanel(times, columns)
	if err != nil {
		return nil, meta, invalid("inconsistent panel: %v", err)
	}

	meta.TotalRecords = panel.Len()
	start, end := times[0], times[len(times)-1]
	meta.TimeRange = models.TimeRange{Start: &start, End: &end}
	meta.Columns = outputColumns()

	return panel, meta, nil
}

// CanonicalHeaders trims, upper-cases and maps synonyms
func CanonicalHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		name := strings.ToUpper(strings.TrimSpace(h))
		if canonical, ok := headerSynonyms[name]; ok {
			name = canonical
		}
		out[i] = name
	}
	return out
}

// assignTimes parses the time column, or synthesizes one when the file has
// none or none of its cells parse. Rows with unparseable timestamps are dropped.
func (n *Normalizer) assignTimes(rows []row, tbl *table.Table, index map[string]int) ([]row, bool, int) {
	timeIdx := -1
	for _, name := range timeColumns {
		if idx, ok := index[name]; ok {
			timeIdx = idx
			break
		}
	}

	synthesize := func() ([]row, bool, int) {
		times := models.SyntheticTimes(n.opts.SyntheticStart, len(rows), n.opts.SyntheticInterval)
		for i := range rows {
			rows[i].ts = times[i]
		}
		return rows, true, 0
	}

	if timeIdx < 0 {
		return synthesize()
	}

	parsed := make([]bool, len(rows))
	anyParsed := false
	for i, cells := range tbl.Rows {
		if ts, ok := n.parseTime(cells[timeIdx]); ok {
			rows[i].ts = ts
			parsed[i] = true
			anyParsed = true
		}
	}
	if !anyParsed {
		return synthesize()
	}

	kept := rows[:0]
	invalidCount := 0
	for i, r := range rows {
		if !parsed[i] {
			invalidCount++
			continue
		}
		kept = append(kept, r)
	}
	return kept, false, invalidCount
}

// cleanColumn fills missing values with the median and then trims outliers.
// Filling runs first so missing cells are never mistaken for outliers.
func (n *Normalizer) cleanColumn(rows []row, j int, m models.Metric) ([]row, int, error) {
	var observed []float64
	for _, r := range rows {
		if r.present[j] {
			observed = append(observed, r.values[j])
		}
	}
	if len(observed) == 0 {
		if len(rows) == 0 {
			return rows, 0, nil
		}
		return nil, 0, invalid("column %s has no numeric values", m)
	}

	median := stats.Median(observed)
	values := make([]float64, len(rows))
	for i := range rows {
		if !rows[i].present[j] {
			rows[i].values[j] = median
			rows[i].present[j] = true
		}
		values[i] = rows[i].values[j]
	}

	mean := stats.Mean(values)
	std := stats.StdDev(values)
	if std <= 0 {
		return rows, 0, nil
	}

	limit := n.opts.OutlierStdMultiplier * std
	kept := rows[:0]
	for _, r := range rows {
		if math.Abs(r.values[j]-mean) <= limit {
			kept = append(kept, r)
		}
	}
	return kept, len(rows) - len(kept), nil
}

func (n *Normalizer) parseTime(cell string) (time.Time, bool) {
	value := strings.TrimSpace(cell)
	if table.IsMissing(value) {
		return time.Time{}, false
	}
	for _, format := range n.dateFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber coerces a cell to a finite float within MaxMagnitude; anything
// else counts as missing
func (n *Normalizer) parseNumber(cell string) (float64, bool) {
	value := strings.TrimSpace(cell)
	if table.IsMissing(value) {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > n.opts.MaxMagnitude {
		return 0, false
	}
	return v, true
}

// dropEmpty removes rows where every metric cell is missing
func dropEmpty(rows []row) []row {
	kept := rows[:0]
	for _, r := range rows {
		if r.present[0] || r.present[1] || r.present[2] {
			kept = append(kept, r)
		}
	}
	return kept
}

// outputColumns lists the panel columns: the time column first, then the metrics
func outputColumns() []string {
	cols := []string{TimeColumn}
	for _, m := range models.AllMetrics {
		cols = append(cols, string(m))
	}
	return cols
}
