package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"kpi-diagnostics/internal/events"
	"kpi-diagnostics/internal/metrics"
	"kpi-diagnostics/internal/models"
	"kpi-diagnostics/internal/normalize"
	"kpi-diagnostics/internal/pipeline"
	"kpi-diagnostics/internal/store"
)

const (
	MaxFileSize  = 100 * 1024 * 1024 // 100MB
	DefaultLimit = 100
	MaxLimit     = 1000
	Version      = "1.0.0"
)

// Store is the persistence collaborator
type Store interface {
	SaveAnalysis(ctx context.Context, record *models.AnalysisRecord, fileSize int64) error
	SaveSummary(ctx context.Context, id string, summary *models.AISummary) error
	GetAnalysis(ctx context.Context, id string) (*models.StoredAnalysis, error)
	ListAnalyses(ctx context.Context, skip, limit int) ([]models.AnalysisListItem, int, error)
	GetBaseline(ctx context.Context, id string) (*models.BaselineRecord, error)
	Samples(ctx context.Context, id string) ([]models.Sample, error)
	DeleteAnalysis(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Summarizer produces an AI summary of an analysis
type Summarizer interface {
	Summarize(ctx context.Context, record *models.AnalysisRecord) (*models.AISummary, error)
}

type Handler struct {
	Analyzer    *pipeline.Analyzer
	Store       Store // nil when persistence is disabled
	Publisher   events.Publisher
	Summarizer  Summarizer // nil when summaries are disabled
	Logger      logrus.FieldLogger
	MaxFileSize int64

	started time.Time
}

func NewHandler(analyzer *pipeline.Analyzer, st Store, publisher events.Publisher, summarizer Summarizer, logger logrus.FieldLogger, maxFileSize int64) *Handler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if maxFileSize <= 0 {
		maxFileSize = MaxFileSize
	}
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}
	return &Handler{
		Analyzer:    analyzer,
		Store:       st,
		Publisher:   publisher,
		Summarizer:  summarizer,
		Logger:      logger.WithField("component", "api"),
		MaxFileSize: maxFileSize,
		started:     time.Now(),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)

		r.Get("/analyses", h.ListAnalyses)
		r.Get("/analyses/{id}", h.GetAnalysis)
		r.Get("/analyses/{id}/data", h.GetSamples)
		r.Delete("/analyses/{id}", h.DeleteAnalysis)

		r.Post("/compare/before-after", h.CompareBeforeAfter)
		r.Post("/compare/baseline", h.CompareBaseline)
	})
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:  "healthy",
		Checks:  map[string]string{},
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Version: Version,
		Checked: time.Now().UTC(),
	}
	status := http.StatusOK

	if h.Store == nil {
		resp.Checks["database"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(ctx); err != nil {
			resp.Checks["database"] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			h.Logger.WithError(err).Warn("Database health check failed")
		} else {
			resp.Checks["database"] = "ok"
		}
	}

	if h.Summarizer == nil {
		resp.Checks["ai"] = "disabled"
	} else {
		resp.Checks["ai"] = "enabled"
	}
	if _, ok := h.Publisher.(events.NoopPublisher); ok {
		resp.Checks["events"] = "disabled"
	} else {
		resp.Checks["events"] = "enabled"
	}

	writeJSON(w, status, resp)
}

// ============================================================================
// Analysis
// ============================================================================

// Analyze runs the full pipeline on one uploaded CSV
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	inputs, ok := h.readUploads(w, r, "file")
	if !ok {
		return
	}
	in := inputs[0]

	record, err := h.Analyzer.Analyze(r.Context(), in.Input)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	resp := models.AnalyzeResponse{AnalysisRecord: record}
	if h.Store != nil {
		if err := h.Store.SaveAnalysis(r.Context(), record, in.Size); err != nil {
			h.Logger.WithError(err).WithField("analysis_id", record.ID).Error("Failed to store analysis")
		} else {
			resp.Stored = true
		}
	}

	if wantSummary(r) && h.Summarizer != nil {
		summary, err := h.Summarizer.Summarize(r.Context(), record)
		if err != nil {
			h.Logger.WithError(err).WithField("analysis_id", record.ID).Warn("AI summary unavailable")
		} else {
			resp.AISummary = summary
			if resp.Stored {
				if err := h.Store.SaveSummary(r.Context(), record.ID, summary); err != nil {
					h.Logger.WithError(err).WithField("analysis_id", record.ID).Warn("Failed to store AI summary")
				}
			}
		}
	}

	h.publish(r.Context(), events.AnalysisCompleted(record))
	writeJSON(w, http.StatusOK, resp)
}

func wantSummary(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.FormValue("summary"))
	return ok
}

// ListAnalyses returns stored analyses, newest first
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	skip := getIntParam(r, "skip", 0)
	limit := getIntParam(r, "limit", DefaultLimit)
	if skip < 0 || limit <= 0 || limit > MaxLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("skip must be >= 0 and limit between 1 and %d", MaxLimit))
		return
	}

	items, total, err := h.Store.ListAnalyses(r.Context(), skip, limit)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.AnalysisListResponse{
		Analyses: items,
		Total:    total,
		Skip:     skip,
		Limit:    limit,
	})
}

// GetAnalysis returns one stored analysis
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	analysis, err := h.Store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// GetSamples returns the normalized samples of a stored analysis
func (h *Handler) GetSamples(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	samples, err := h.Store.Samples(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

// DeleteAnalysis removes a stored analysis and its samples
func (h *Handler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Store.DeleteAnalysis(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.Logger.WithField("analysis_id", id).Info("Deleted analysis")
	writeJSON(w, http.StatusOK, models.DeleteResponse{
		ID:        id,
		Message:   fmt.Sprintf("Analysis %s deleted successfully", id),
		DeletedAt: time.Now().UTC(),
	})
}

// ============================================================================
// Comparison
// ============================================================================

// CompareBeforeAfter compares two uploads, e.g. before and after an optimization
func (h *Handler) CompareBeforeAfter(w http.ResponseWriter, r *http.Request) {
	inputs, ok := h.readUploads(w, r, "before_file", "after_file")
	if !ok {
		return
	}

	report, err := h.Analyzer.CompareBeforeAfter(r.Context(), inputs[0].Input, inputs[1].Input)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	h.publish(r.Context(), events.ComparisonCompleted(report))
	writeJSON(w, http.StatusOK, report)
}

// CompareBaseline measures an upload against a stored analysis or the industry default
func (h *Handler) CompareBaseline(w http.ResponseWriter, r *http.Request) {
	inputs, ok := h.readUploads(w, r, "current_file")
	if !ok {
		return
	}

	var baseline *models.BaselineRecord
	if id := r.FormValue("baseline_id"); id != "" {
		if !h.requireStore(w) {
			return
		}
		b, err := h.Store.GetBaseline(r.Context(), id)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		baseline = b
	}

	report, err := h.Analyzer.CompareBaseline(r.Context(), inputs[0].Input, baseline)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	h.publish(r.Context(), events.BaselineCompleted(report))
	writeJSON(w, http.StatusOK, report)
}

// ============================================================================
// Helpers
// ============================================================================

type upload struct {
	pipeline.Input
	Size int64
}

// readUploads reads the named multipart files. On failure it writes the
// response and returns false.
func (h *Handler) readUploads(w http.ResponseWriter, r *http.Request, fields ...string) ([]upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(len(fields))*h.MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, false
	}

	out := make([]upload, 0, len(fields))
	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Missing file field %q", field))
			return nil, false
		}

		if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
			file.Close()
			writeError(w, http.StatusBadRequest, fmt.Sprintf("File %s must be a CSV", header.Filename))
			return nil, false
		}
		if header.Size > h.MaxFileSize {
			file.Close()
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File %s exceeds %d bytes", header.Filename, h.MaxFileSize))
			return nil, false
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Error reading file %s", header.Filename))
			return nil, false
		}

		out = append(out, upload{
			Input: pipeline.Input{Name: header.Filename, Data: data},
			Size:  header.Size,
		})
	}
	return out, true
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return false
	}
	return true
}

func (h *Handler) publish(ctx context.Context, event events.AnalysisEvent) {
	if err := h.Publisher.Publish(ctx, event); err != nil {
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"event_id": event.EventID,
			"type":     event.Type,
		}).Warn("Failed to publish event")
	}
}

func (h *Handler) writeAnalysisError(w http.ResponseWriter, err error) {
	var verr *normalize.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:          err.Error(),
			MissingColumns: verr.MissingColumns,
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Analysis timed out")
	case errors.Is(err, context.Canceled):
		// client went away; nobody reads the response
		writeError(w, http.StatusServiceUnavailable, "Analysis cancelled")
	default:
		h.Logger.WithError(err).Error("Analysis failed")
		writeError(w, http.StatusInternalServerError, "Analysis failed")
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Analysis not found")
		return
	}
	h.Logger.WithError(err).Error("Store operation failed")
	writeError(w, http.StatusInternalServerError, "Database error")
}

// writeJSON encodes before writing the header so an unencodable value
// becomes a 500 instead of an empty success
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(models.ErrorResponse{Error: "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func getIntParam(r *http.Request, name string, defaultVal int) int {
	valStr := r.URL.Query().Get(name)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
