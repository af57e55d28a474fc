package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-diagnostics/internal/config"
	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/pipeline"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "kpi_test.db")
	repo, err := Open(context.Background(), DriverSQLite, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func cellCSV(rows int) []byte {
	var b strings.Builder
	b.WriteString("Time,RTWP,SINR,PRB\n")
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		ts := start.Add(time.Duration(i) * 15 * time.Minute).Format(time.RFC3339)
		fmt.Fprintf(&b, "%s,%d,%g,%d\n", ts, -96+i%3, 14+float64(i%4)*0.5, 55+i%6)
	}
	return []byte(b.String())
}

func analyzeCSV(t *testing.T, name string, data []byte) *models.AnalysisRecord {
	t.Helper()
	cfg := config.Default()
	analyzer, err := pipeline.New(&cfg, nil)
	require.NoError(t, err)

	record, err := analyzer.Analyze(context.Background(), pipeline.Input{Name: name, Data: data})
	require.NoError(t, err)
	return record
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	assert.NoError(t, repo.Migrate(context.Background()))
	assert.NoError(t, repo.Ping(context.Background()))
	assert.Equal(t, DriverSQLite, repo.Driver())
}

func TestSaveAndGetAnalysis(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	record := analyzeCSV(t, "cell_a.csv", cellCSV(32))

	require.NoError(t, repo.SaveAnalysis(ctx, record, 2048))

	got, err := repo.GetAnalysis(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, "cell_a.csv", got.Filename)
	assert.Equal(t, int64(2048), got.FileSize)
	assert.NotEmpty(t, got.UploadID)
	assert.True(t, record.AnalyzedAt.Equal(got.AnalyzedAt))
	assert.Equal(t, record.Statistics, got.Statistics)
	assert.Equal(t, record.Anomalies.Summary, got.Anomalies.Summary)
	assert.Equal(t, record.Correlations.Pairwise, got.Correlations.Pairwise)
	assert.Nil(t, got.AISummary)
	assert.Nil(t, got.Panel)
}

func TestGetAnalysisNotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAnalysesNewestFirst(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		record := analyzeCSV(t, fmt.Sprintf("cell_%d.csv", i), cellCSV(24))
		record.AnalyzedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.SaveAnalysis(ctx, record, 100))
		ids = append(ids, record.ID)
	}

	items, total, err := repo.ListAnalyses(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, ids[2], items[0].ID)
	assert.Equal(t, ids[1], items[1].ID)
	assert.Equal(t, "cell_2.csv", items[0].Filename)
	assert.Equal(t, 24, items[0].TotalRecords)
	assert.NotEmpty(t, items[0].Severity)

	items, total, err = repo.ListAnalyses(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, ids[0], items[0].ID)
}

func TestListAnalysesEmpty(t *testing.T) {
	repo := openTestRepo(t)

	items, total, err := repo.ListAnalyses(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGetBaseline(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	record := analyzeCSV(t, "baseline.csv", cellCSV(40))
	require.NoError(t, repo.SaveAnalysis(ctx, record, 0))

	baseline, err := repo.GetBaseline(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, "analysis:"+record.ID, baseline.Source)
	require.Len(t, baseline.Metrics, 3)
	for _, m := range models.AllMetrics {
		assert.InDelta(t, record.Statistics[m].Mean, baseline.Metrics[m].Mean, 1e-9)
		assert.InDelta(t, record.Statistics[m].Std, baseline.Metrics[m].Std, 1e-9)
		assert.Equal(t, record.Anomalies.ForMetric(m).Count, baseline.Metrics[m].Anomalies)
	}

	_, err = repo.GetBaseline(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBaselineSkipsAbsentMetric(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	// the normalizer requires PRB, so remove it from a finished record
	record := analyzeCSV(t, "no_prb.csv", cellCSV(20))
	delete(record.Statistics, models.MetricPRB)
	require.NoError(t, repo.SaveAnalysis(ctx, record, 0))

	baseline, err := repo.GetBaseline(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, baseline.Metrics, 2)
	assert.NotContains(t, baseline.Metrics, models.MetricPRB)
}

func TestSamples(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	record := analyzeCSV(t, "samples.csv", cellCSV(600))
	require.NoError(t, repo.SaveAnalysis(ctx, record, 0))

	samples, err := repo.Samples(ctx, record.ID)
	require.NoError(t, err)

	want := record.Panel.Samples()
	require.Len(t, samples, len(want))
	for _, i := range []int{0, 499, 500, len(want) - 1} {
		assert.True(t, want[i].Timestamp.Equal(samples[i].Timestamp), "timestamp %d", i)
		require.NotNil(t, samples[i].RTWP)
		assert.Equal(t, *want[i].RTWP, *samples[i].RTWP)
		assert.Equal(t, *want[i].PRB, *samples[i].PRB)
	}

	_, err = repo.Samples(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveSummary(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	record := analyzeCSV(t, "summary.csv", cellCSV(24))
	require.NoError(t, repo.SaveAnalysis(ctx, record, 0))

	summary := &models.AISummary{Model: "qwen3-vl:2b", Summary: "RTWP is within range.", Confidence: 0.65}
	require.NoError(t, repo.SaveSummary(ctx, record.ID, summary))

	got, err := repo.GetAnalysis(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, summary, got.AISummary)

	assert.ErrorIs(t, repo.SaveSummary(ctx, "missing", summary), ErrNotFound)
}

func TestDeleteAnalysis(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	keep := analyzeCSV(t, "keep.csv", cellCSV(24))
	drop := analyzeCSV(t, "drop.csv", cellCSV(24))
	require.NoError(t, repo.SaveAnalysis(ctx, keep, 0))
	require.NoError(t, repo.SaveAnalysis(ctx, drop, 0))

	require.NoError(t, repo.DeleteAnalysis(ctx, drop.ID))

	_, err := repo.GetAnalysis(ctx, drop.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Samples(ctx, drop.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteAnalysis(ctx, drop.ID), ErrNotFound)

	samples, err := repo.Samples(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, samples, 24)

	_, total, err := repo.ListAnalyses(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSaveAnalysisAssignsID(t *testing.T) {
	repo := openTestRepo(t)
	record := analyzeCSV(t, "noid.csv", cellCSV(24))
	record.ID = ""

	require.NoError(t, repo.SaveAnalysis(context.Background(), record, 0))
	assert.NotEmpty(t, record.ID)
}
