package models

import "time"

// ErrorResponse is returned for rejected or failed requests
type ErrorResponse struct {
	Error          string   `json:"error"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// HealthResponse is returned by /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checked time.Time         `json:"checked_at"`
}

// AnalyzeResponse is returned after a successful upload analysis
type AnalyzeResponse struct {
	*AnalysisRecord
	Stored    bool       `json:"stored"`
	AISummary *AISummary `json:"ai_analysis,omitempty"`
}

// AISummary is the text produced by the summarization collaborator
type AISummary struct {
	Model      string  `json:"model"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence_score"`
}

// AnalysisListItem is one row of /api/analyses
type AnalysisListItem struct {
	ID             string    `json:"id" db:"id"`
	Filename       string    `json:"filename" db:"filename"`
	UploadedAt     time.Time `json:"upload_timestamp" db:"upload_timestamp"`
	AnalyzedAt     time.Time `json:"analysis_timestamp" db:"analysis_timestamp"`
	TotalRecords   int       `json:"total_records" db:"total_records"`
	TotalAnomalies int       `json:"total_anomalies" db:"total_anomalies"`
	Severity       string    `json:"severity" db:"severity"`
}

// AnalysisListResponse is returned by /api/analyses
type AnalysisListResponse struct {
	Analyses []AnalysisListItem `json:"analyses"`
	Total    int                `json:"total"`
	Skip     int                `json:"skip"`
	Limit    int                `json:"limit"`
}

// StoredAnalysis is a persisted analysis with its upload details
type StoredAnalysis struct {
	*AnalysisRecord
	UploadID   string     `json:"upload_id"`
	FileSize   int64      `json:"file_size"`
	UploadedAt time.Time  `json:"upload_timestamp"`
	AISummary  *AISummary `json:"ai_analysis,omitempty"`
}

// DeleteResponse confirms the removal of a stored analysis
type DeleteResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	DeletedAt time.Time `json:"deleted_at"`
}
