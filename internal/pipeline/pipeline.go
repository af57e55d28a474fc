// Package pipeline wires the Normalizer, AnomalyDetector, CorrelationEngine and
// ComparisonEngine into request-scoped analyses.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"kpi-diagnostics/internal/anomaly"
	"kpi-diagnostics/internal/comparison"
	"kpi-diagnostics/internal/config"
	"kpi-diagnostics/internal/correlation"
	"kpi-diagnostics/internal/logging"
	"kpi-diagnostics/internal/metrics"
	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/normalize"
	"kpi-diagnostics/internal/stats"
)

// Analysis modes, used as log and metric labels
const (
	ModeSingle      = "single"
	ModeBeforeAfter = "before_after"
	ModeBaseline    = "baseline"
)

// Input is one uploaded file
type Input struct {
	Name string
	Data []byte
}

// Analyzer runs the analysis components. It holds no per-request state and is
// safe for concurrent use.
type Analyzer struct {
	normalizer *normalize.Normalizer
	detector   *anomaly.Detector
	correlator *correlation.Engine
	comparer   *comparison.Engine
	log        *logging.AnalysisLogger
}

// NewAnalyzer assembles an analyzer from its components
func NewAnalyzer(n *normalize.Normalizer, d *anomaly.Detector, c *correlation.Engine, cmp *comparison.Engine, logger logrus.FieldLogger) *Analyzer {
	return &Analyzer{
		normalizer: n,
		detector:   d,
		correlator: c,
		comparer:   cmp,
		log:        logging.NewAnalysisLogger(logger),
	}
}

// New builds an analyzer from configuration
func New(cfg *config.Config, logger logrus.FieldLogger) (*Analyzer, error) {
	test, err := correlation.NewSignificanceTest(cfg.Analysis.Significance, cfg.Thresholds.Correlation)
	if err != nil {
		return nil, err
	}

	return NewAnalyzer(
		normalize.NewNormalizer(cfg.Analysis.Normalize),
		anomaly.NewDetector(cfg.Thresholds.Anomaly),
		correlation.NewEngine(cfg.Thresholds.Correlation, test),
		comparison.NewEngine(cfg.Thresholds.Comparison),
		logger,
	), nil
}

// Comparer exposes the comparison engine, e.g. for its default baseline
func (a *Analyzer) Comparer() *comparison.Engine {
	return a.comparer
}

// Analyze normalizes one file and runs anomaly and correlation analysis concurrently
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*models.AnalysisRecord, error) {
	defer metrics.ObserveAnalysis(ModeSingle)()

	record, err := a.analyze(ctx, in, ModeSingle)
	if err != nil {
		a.fail(ModeSingle, in.Name, err)
		return nil, err
	}

	metrics.RecordAnalysis(ModeSingle, "success")
	return record, nil
}

// CompareBeforeAfter analyzes both files concurrently and compares the results
func (a *Analyzer) CompareBeforeAfter(ctx context.Context, before, after Input) (*models.ComparisonReport, error) {
	defer metrics.ObserveAnalysis(ModeBeforeAfter)()

	var beforeRecord, afterRecord *models.AnalysisRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		beforeRecord, err = a.analyze(gctx, before, ModeBeforeAfter)
		if err != nil {
			return fmt.Errorf("before file %s: %w", before.Name, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		afterRecord, err = a.analyze(gctx, after, ModeBeforeAfter)
		if err != nil {
			return fmt.Errorf("after file %s: %w", after.Name, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.fail(ModeBeforeAfter, before.Name+","+after.Name, err)
		return nil, err
	}

	result := a.comparer.CompareBeforeAfter(beforeRecord, afterRecord)
	metrics.RecordAnalysis(ModeBeforeAfter, "success")
	metrics.RecordComparison(ModeBeforeAfter, string(result.Assessment.ImprovementLevel))

	return &models.ComparisonReport{
		Metadata: models.ComparisonMetadata{
			BeforeFile:    before.Name,
			AfterFile:     after.Name,
			BeforeRecords: beforeRecord.Metadata.TotalRecords,
			AfterRecords:  afterRecord.Metadata.TotalRecords,
			ComparedAt:    time.Now().UTC(),
		},
		ComparisonResult: result,
	}, nil
}

// CompareBaseline analyzes one file and measures it against a baseline.
// A nil baseline selects the configured industry default.
func (a *Analyzer) CompareBaseline(ctx context.Context, current Input, baseline *models.BaselineRecord) (*models.BaselineReport, error) {
	defer metrics.ObserveAnalysis(ModeBaseline)()

	record, err := a.analyze(ctx, current, ModeBaseline)
	if err != nil {
		a.fail(ModeBaseline, current.Name, err)
		return nil, err
	}

	ref := a.comparer.DefaultBaseline()
	if baseline != nil {
		ref = *baseline
	}

	assessment := a.comparer.CompareBaseline(record, ref)
	metrics.RecordAnalysis(ModeBaseline, "success")
	metrics.RecordComparison(ModeBaseline, string(assessment.OverallStatus))

	return &models.BaselineReport{
		Metadata: models.BaselineMetadata{
			CurrentFile:    current.Name,
			BaselineSource: ref.Source,
			CurrentRecords: record.Metadata.TotalRecords,
			ComparedAt:     time.Now().UTC(),
		},
		Baseline:   ref,
		Current:    comparison.CurrentBaseline(record, current.Name),
		Assessment: assessment,
		Analysis:   record,
	}, nil
}

func (a *Analyzer) analyze(ctx context.Context, in Input, mode string) (*models.AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	a.log.Started(mode, in.Name, len(in.Data))

	panel, meta, err := a.normalizer.Normalize(in.Data, in.Name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var anomalies models.AnomalyResult
	var correlations models.CorrelationResult

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		anomalies = a.detector.Detect(panel)
	}()
	go func() {
		defer wg.Done()
		correlations = a.correlator.Analyze(panel)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	record := &models.AnalysisRecord{
		ID:               uuid.New().String(),
		Filename:         in.Name,
		AnalyzedAt:       time.Now().UTC(),
		Metadata:         meta,
		Statistics:       Statistics(panel),
		Anomalies:        anomalies,
		Correlations:     correlations,
		ProcessingTimeMS: float64(elapsed.Microseconds()) / 1000,
		Panel:            panel,
	}

	s := anomalies.Summary
	metrics.RecordAnomalies(panel.Len(), string(s.Severity), map[string]int{
		"rtwp":        s.RTWPAnomalies,
		"sinr":        s.SINRAnomalies,
		"prb":         s.PRBAnomalies,
		"correlation": s.CorrelationIssues,
		"trend":       s.TrendIssues,
	})
	a.log.Completed(mode, in.Name, panel.Len(), s.TotalAnomalies, elapsed)

	return record, nil
}

func (a *Analyzer) fail(mode, name string, err error) {
	a.log.Failed(mode, name, err)

	var verr *normalize.ValidationError
	if errors.As(err, &verr) {
		metrics.RecordValidationFailure()
		metrics.RecordAnalysis(mode, "invalid")
		return
	}
	metrics.RecordAnalysis(mode, "error")
}

// Statistics computes the descriptive statistics of every present metric
func Statistics(panel *models.Panel) map[models.Metric]models.MetricStats {
	out := make(map[models.Metric]models.MetricStats, len(models.AllMetrics))
	for _, m := range panel.Metrics() {
		values, _ := panel.Column(m)
		min, max := stats.MinMax(values)
		out[m] = models.MetricStats{
			Mean: stats.Mean(values),
			Std:  stats.StdDev(values),
			Min:  min,
			Max:  max,
		}
	}
	return out
}
