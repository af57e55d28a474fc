// Package store persists analyses in SQLite or PostgreSQL
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"kpi-diagnostics/internal/config"
	"kpi-diagnostics/internal/metrics"
	"kpi-diagnostics/internal/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sampleBatchSize keeps batched inserts below the SQLite bind variable limit
const sampleBatchSize = 500

// ErrNotFound is returned when no analysis has the requested id
var ErrNotFound = errors.New("analysis not found")

//go:embed migrations/*.sql
var migrationFS embed.FS

// Repository stores uploads, their normalized samples and analysis results
type Repository struct {
	db     *sqlx.DB
	driver string
}

// New opens the repository described by the store configuration
func New(ctx context.Context, cfg config.StoreConfig) (*Repository, error) {
	return Open(ctx, cfg.Driver, cfg.DSN)
}

// Open connects to the database and applies migrations
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// a single connection serializes writers and keeps per-connection pragmas
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	r := &Repository{db: db, driver: driver}
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Migrate applies the embedded migrations in file name order. Every statement is idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	for _, name := range files {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}
	return nil
}

// Driver returns the database driver name
func (r *Repository) Driver() string {
	return r.driver
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type kpiRow struct {
	UploadID   string          `db:"upload_id"`
	Position   int             `db:"position"`
	SampleTime time.Time       `db:"sample_time"`
	RTWP       sql.NullFloat64 `db:"rtwp"`
	SINR       sql.NullFloat64 `db:"sinr"`
	PRB        sql.NullFloat64 `db:"prb"`
}

type analysisRow struct {
	ID                  string          `db:"id"`
	UploadID            string          `db:"upload_id"`
	AnalyzedAt          time.Time       `db:"analysis_timestamp"`
	RTWPMean            sql.NullFloat64 `db:"rtwp_mean"`
	RTWPStd             sql.NullFloat64 `db:"rtwp_std"`
	SINRMean            sql.NullFloat64 `db:"sinr_mean"`
	SINRStd             sql.NullFloat64 `db:"sinr_std"`
	PRBMean             sql.NullFloat64 `db:"prb_mean"`
	PRBStd              sql.NullFloat64 `db:"prb_std"`
	RTWPAnomalies       int             `db:"rtwp_anomalies"`
	SINRAnomalies       int             `db:"sinr_anomalies"`
	PRBAnomalies        int             `db:"prb_anomalies"`
	CorrelationIssues   int             `db:"correlation_issues"`
	TrendIssues         int             `db:"trend_issues"`
	TotalAnomalies      int             `db:"total_anomalies"`
	Severity            string          `db:"severity"`
	RTWPSINRCorrelation sql.NullFloat64 `db:"rtwp_sinr_correlation"`
	RTWPPRBCorrelation  sql.NullFloat64 `db:"rtwp_prb_correlation"`
	SINRPRBCorrelation  sql.NullFloat64 `db:"sinr_prb_correlation"`
	ProcessingTimeMS    float64         `db:"processing_time_ms"`
	ResultJSON          string          `db:"result_json"`
}

// SaveAnalysis stores the upload, its samples and the flattened analysis in one transaction
func (r *Repository) SaveAnalysis(ctx context.Context, record *models.AnalysisRecord, fileSize int64) (err error) {
	defer func() { recordOperation("save", err) }()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	uploadID := uuid.New().String()
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO uploads (id, filename, file_size, upload_timestamp, total_records, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`), uploadID, record.Filename, fileSize, time.Now().UTC(), record.Metadata.TotalRecords, "processed")
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	if record.Panel != nil {
		if err := insertSamples(ctx, tx, uploadID, record.Panel); err != nil {
			return err
		}
	}

	row := flatten(record, uploadID, string(payload))
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO analysis_results (
			id, upload_id, analysis_timestamp,
			rtwp_mean, rtwp_std, sinr_mean, sinr_std, prb_mean, prb_std,
			rtwp_anomalies, sinr_anomalies, prb_anomalies, correlation_issues, trend_issues,
			total_anomalies, severity,
			rtwp_sinr_correlation, rtwp_prb_correlation, sinr_prb_correlation,
			processing_time_ms, result_json
		) VALUES (
			:id, :upload_id, :analysis_timestamp,
			:rtwp_mean, :rtwp_std, :sinr_mean, :sinr_std, :prb_mean, :prb_std,
			:rtwp_anomalies, :sinr_anomalies, :prb_anomalies, :correlation_issues, :trend_issues,
			:total_anomalies, :severity,
			:rtwp_sinr_correlation, :rtwp_prb_correlation, :sinr_prb_correlation,
			:processing_time_ms, :result_json
		)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

func insertSamples(ctx context.Context, tx *sqlx.Tx, uploadID string, panel *models.Panel) error {
	samples := panel.Samples()
	for start := 0; start < len(samples); start += sampleBatchSize {
		end := start + sampleBatchSize
		if end > len(samples) {
			end = len(samples)
		}

		rows := make([]kpiRow, 0, end-start)
		for i := start; i < end; i++ {
			s := samples[i]
			rows = append(rows, kpiRow{
				UploadID:   uploadID,
				Position:   i,
				SampleTime: s.Timestamp.UTC(),
				RTWP:       nullable(s.RTWP),
				SINR:       nullable(s.SINR),
				PRB:        nullable(s.PRB),
			})
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO kpi_data (upload_id, position, sample_time, rtwp, sinr, prb)
			VALUES (:upload_id, :position, :sample_time, :rtwp, :sinr, :prb)
		`, rows)
		if err != nil {
			return fmt.Errorf("failed to insert samples: %w", err)
		}
	}
	return nil
}

func flatten(record *models.AnalysisRecord, uploadID, payload string) analysisRow {
	s := record.Anomalies.Summary
	row := analysisRow{
		ID:                record.ID,
		UploadID:          uploadID,
		AnalyzedAt:        record.AnalyzedAt.UTC(),
		RTWPAnomalies:     s.RTWPAnomalies,
		SINRAnomalies:     s.SINRAnomalies,
		PRBAnomalies:      s.PRBAnomalies,
		CorrelationIssues: s.CorrelationIssues,
		TrendIssues:       s.TrendIssues,
		TotalAnomalies:    s.TotalAnomalies,
		Severity:          string(s.Severity),
		ProcessingTimeMS:  record.ProcessingTimeMS,
		ResultJSON:        payload,
	}
	if row.Severity == "" {
		row.Severity = string(models.SeverityLow)
	}

	row.RTWPMean, row.RTWPStd = statColumns(record, models.MetricRTWP)
	row.SINRMean, row.SINRStd = statColumns(record, models.MetricSINR)
	row.PRBMean, row.PRBStd = statColumns(record, models.MetricPRB)

	row.RTWPSINRCorrelation = pairColumn(record, models.PairRTWPSINR)
	row.RTWPPRBCorrelation = pairColumn(record, models.PairRTWPPRB)
	row.SINRPRBCorrelation = pairColumn(record, models.PairSINRPRB)
	return row
}

func statColumns(record *models.AnalysisRecord, m models.Metric) (mean, std sql.NullFloat64) {
	st, ok := record.Statistics[m]
	if !ok {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: st.Mean, Valid: true}, sql.NullFloat64{Float64: st.Std, Valid: true}
}

func pairColumn(record *models.AnalysisRecord, pair models.Pair) sql.NullFloat64 {
	p, ok := record.Correlations.PairwiseFor(pair)
	if !ok {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Coefficient, Valid: true}
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// GetAnalysis loads a stored analysis by id
func (r *Repository) GetAnalysis(ctx context.Context, id string) (out *models.StoredAnalysis, err error) {
	defer func() { recordOperation("get", err) }()

	var row struct {
		UploadID     string          `db:"upload_id"`
		FileSize     int64           `db:"file_size"`
		UploadedAt   time.Time       `db:"upload_timestamp"`
		ResultJSON   string          `db:"result_json"`
		AIModel      sql.NullString  `db:"ai_model"`
		AISummary    sql.NullString  `db:"ai_summary"`
		AIConfidence sql.NullFloat64 `db:"ai_confidence"`
	}
	err = r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT a.upload_id, u.file_size, u.upload_timestamp, a.result_json, a.ai_model, a.ai_summary, a.ai_confidence
		FROM analysis_results a
		JOIN uploads u ON u.id = a.upload_id
		WHERE a.id = ?
	`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var record models.AnalysisRecord
	if err := json.Unmarshal([]byte(row.ResultJSON), &record); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %s: %w", id, err)
	}

	out = &models.StoredAnalysis{
		AnalysisRecord: &record,
		UploadID:       row.UploadID,
		FileSize:       row.FileSize,
		UploadedAt:     row.UploadedAt,
	}
	if row.AISummary.Valid {
		out.AISummary = &models.AISummary{
			Model:      row.AIModel.String,
			Summary:    row.AISummary.String,
			Confidence: row.AIConfidence.Float64,
		}
	}
	return out, nil
}

// ListAnalyses returns one page of stored analyses, newest first, and the total count
func (r *Repository) ListAnalyses(ctx context.Context, skip, limit int) (items []models.AnalysisListItem, total int, err error) {
	defer func() { recordOperation("list", err) }()

	if err = r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM analysis_results"); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	items = []models.AnalysisListItem{}
	err = r.db.SelectContext(ctx, &items, r.db.Rebind(`
		SELECT a.id, u.filename, u.upload_timestamp, a.analysis_timestamp,
			u.total_records, a.total_anomalies, a.severity
		FROM analysis_results a
		JOIN uploads u ON u.id = a.upload_id
		ORDER BY a.analysis_timestamp DESC, a.id
		LIMIT ? OFFSET ?
	`), limit, skip)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	return items, total, nil
}

// GetBaseline builds a baseline profile from the flattened columns of a stored analysis
func (r *Repository) GetBaseline(ctx context.Context, id string) (out *models.BaselineRecord, err error) {
	defer func() { recordOperation("baseline", err) }()

	var row analysisRow
	err = r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, rtwp_mean, rtwp_std, sinr_mean, sinr_std, prb_mean, prb_std,
			rtwp_anomalies, sinr_anomalies, prb_anomalies
		FROM analysis_results
		WHERE id = ?
	`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get baseline: %w", err)
	}

	out = &models.BaselineRecord{
		Source:  "analysis:" + id,
		Metrics: make(map[models.Metric]models.BaselineMetric, len(models.AllMetrics)),
	}
	add := func(m models.Metric, mean, std sql.NullFloat64, anomalies int) {
		if mean.Valid {
			out.Metrics[m] = models.BaselineMetric{Mean: mean.Float64, Std: std.Float64, Anomalies: anomalies}
		}
	}
	add(models.MetricRTWP, row.RTWPMean, row.RTWPStd, row.RTWPAnomalies)
	add(models.MetricSINR, row.SINRMean, row.SINRStd, row.SINRAnomalies)
	add(models.MetricPRB, row.PRBMean, row.PRBStd, row.PRBAnomalies)
	return out, nil
}

// Samples returns the normalized samples stored with an analysis, in panel order
func (r *Repository) Samples(ctx context.Context, id string) (out []models.Sample, err error) {
	defer func() { recordOperation("samples", err) }()

	uploadID, err := r.uploadID(ctx, r.db, id)
	if err != nil {
		return nil, err
	}

	var rows []kpiRow
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT upload_id, position, sample_time, rtwp, sinr, prb
		FROM kpi_data
		WHERE upload_id = ?
		ORDER BY position
	`), uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}

	out = make([]models.Sample, len(rows))
	for i, row := range rows {
		out[i] = models.Sample{
			Timestamp: row.SampleTime,
			RTWP:      floatPtr(row.RTWP),
			SINR:      floatPtr(row.SINR),
			PRB:       floatPtr(row.PRB),
		}
	}
	return out, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// SaveSummary attaches an AI summary to a stored analysis
func (r *Repository) SaveSummary(ctx context.Context, id string, summary *models.AISummary) (err error) {
	defer func() { recordOperation("save_summary", err) }()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE analysis_results SET ai_model = ?, ai_summary = ?, ai_confidence = ? WHERE id = ?
	`), summary.Model, summary.Summary, summary.Confidence, id)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAnalysis removes an analysis together with its upload and samples
func (r *Repository) DeleteAnalysis(ctx context.Context, id string) (err error) {
	defer func() { recordOperation("delete", err) }()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	uploadID, err := r.uploadID(ctx, tx, id)
	if err != nil {
		return err
	}

	for _, query := range []string{
		"DELETE FROM kpi_data WHERE upload_id = ?",
		"DELETE FROM analysis_results WHERE upload_id = ?",
		"DELETE FROM uploads WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), uploadID); err != nil {
			return fmt.Errorf("failed to delete analysis: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (r *Repository) uploadID(ctx context.Context, q sqlx.QueryerContext, id string) (string, error) {
	var uploadID string
	err := sqlx.GetContext(ctx, q, &uploadID, r.db.Rebind("SELECT upload_id FROM analysis_results WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to find analysis: %w", err)
	}
	return uploadID, nil
}

func recordOperation(operation string, err error) {
	switch {
	case err == nil:
		metrics.RecordStoreOperation(operation, "success")
	case errors.Is(err, ErrNotFound):
		metrics.RecordStoreOperation(operation, "not_found")
	default:
		metrics.RecordStoreOperation(operation, "error")
	}
}
