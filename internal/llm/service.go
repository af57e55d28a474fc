package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"kpi-diagnostics/internal/config"
	"kpi-diagnostics/internal/metrics"
	"kpi-diagnostics/internal/models"
)

type Config struct {
	BaseURL string
	Model   string
}

type Service struct {
	config Config
	client *http.Client
}

func NewService(cfg config.LLMConfig) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen3-vl:2b"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Service{
		config: Config{
			BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
			Model:   cfg.Model,
		},
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Model returns the configured model name
func (s *Service) Model() string {
	return s.config.Model
}

type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

// GenerateOptions keeps technical answers consistent between runs
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type GenerateResponse struct {
	Response string `json:"response"`
}

// Generate calls the Ollama generate API
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := GenerateRequest{
		Model:   s.config.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: GenerateOptions{Temperature: 0.3, TopP: 0.9},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama API returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", err
	}

	return genResp.Response, nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Summarize asks the model for an engineering assessment of an analysis.
// Only the numeric record is sent, never raw samples.
func (s *Service) Summarize(ctx context.Context, record *models.AnalysisRecord) (*models.AISummary, error) {
	response, err := s.Generate(ctx, BuildPrompt(record))
	if err != nil {
		metrics.RecordSummaryRequest("error")
		return nil, fmt.Errorf("failed to generate summary: %w", err)
	}

	text := strings.TrimSpace(thinkBlock.ReplaceAllString(response, ""))
	if text == "" {
		metrics.RecordSummaryRequest("empty")
		return nil, fmt.Errorf("model returned an empty summary")
	}

	metrics.RecordSummaryRequest("success")
	return &models.AISummary{
		Model:      s.config.Model,
		Summary:    text,
		Confidence: Confidence(record),
	}, nil
}

// Confidence rates how much weight a summary deserves given the size of the
// panel and how anomalous it was
func Confidence(record *models.AnalysisRecord) float64 {
	c := 0.8
	switch n := record.Metadata.TotalRecords; {
	case n > 1000:
		c += 0.1
	case n < 100:
		c -= 0.2
	}
	switch record.Anomalies.Summary.Severity {
	case models.SeverityHigh:
		c -= 0.1
	case models.SeverityLow:
		c += 0.05
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// BuildPrompt renders the analysis as a RAN engineering question
func BuildPrompt(record *models.AnalysisRecord) string {
	var b strings.Builder

	b.WriteString("You are a telecommunications network engineer analyzing RAN (Radio Access Network) KPI data.\n")
	b.WriteString("Analyze the following data and provide a technical assessment.\n\n")

	b.WriteString("## KPI Statistics:\n")
	writeStat(&b, record, models.MetricRTWP, "RTWP (Received Total Wideband Power)", "dBm")
	writeStat(&b, record, models.MetricSINR, "SINR (Signal-to-Interference-plus-Noise Ratio)", "dB")
	writeStat(&b, record, models.MetricPRB, "PRB (Physical Resource Block) Utilization", "%")

	s := record.Anomalies.Summary
	b.WriteString("\n## Anomaly Detection Results:\n")
	fmt.Fprintf(&b, "- Total Anomalies: %d\n", s.TotalAnomalies)
	fmt.Fprintf(&b, "- Severity Level: %s\n", s.Severity)
	fmt.Fprintf(&b, "- RTWP Anomalies: %d\n", s.RTWPAnomalies)
	fmt.Fprintf(&b, "- SINR Anomalies: %d\n", s.SINRAnomalies)
	fmt.Fprintf(&b, "- PRB Anomalies: %d\n", s.PRBAnomalies)
	fmt.Fprintf(&b, "- Correlation Issues: %d\n", s.CorrelationIssues)
	fmt.Fprintf(&b, "- Trend Issues: %d\n", s.TrendIssues)

	b.WriteString("\n## Correlation Analysis:\n")
	for _, pair := range models.AllPairs {
		p, ok := record.Correlations.PairwiseFor(pair)
		if !ok {
			fmt.Fprintf(&b, "- %s Correlation: N/A\n", pair)
			continue
		}
		fmt.Fprintf(&b, "- %s Correlation: %.3f (%s, %s)\n", pair, p.Coefficient, p.Strength, p.Significance)
	}

	m := record.Metadata
	b.WriteString("\n## Data Quality:\n")
	fmt.Fprintf(&b, "- Total Records: %d\n", m.TotalRecords)
	if m.TimeRange.Start != nil && m.TimeRange.End != nil {
		fmt.Fprintf(&b, "- Time Range: %s to %s\n", m.TimeRange.Start.Format(time.RFC3339), m.TimeRange.End.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- Outliers Removed: %d\n", m.OutliersRemoved)

	b.WriteString(`
Please cover:
1. Network Performance Assessment
2. Anomaly Analysis and likely causes
3. Correlation Insights
4. Root Cause Analysis (interference, capacity, hardware)
5. Recommendations
6. Risk Assessment

Be specific and actionable for a field engineer.
`)
	return b.String()
}

func writeStat(b *strings.Builder, record *models.AnalysisRecord, m models.Metric, label, unit string) {
	st, ok := record.Statistics[m]
	if !ok {
		fmt.Fprintf(b, "- %s: N/A\n", label)
		return
	}
	fmt.Fprintf(b, "- %s: Mean=%.1f %s, Std=%.1f, Min=%.1f, Max=%.1f\n", label, st.Mean, unit, st.Std, st.Min, st.Max)
}
