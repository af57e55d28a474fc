package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecordersAreExposed(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	Init(logger)
	Init(logger)
	require.True(t, IsMetricsEnabled())
	require.NotNil(t, GetRegistry())

	done := ObserveAnalysis("single")
	RecordAnalysis("single", "success")
	RecordAnomalies(96, "low", map[string]int{"rtwp_threshold": 2})
	RecordComparison("baseline", "excellent")
	RecordValidationFailure()
	RecordStoreOperation("save", "success")
	RecordEventPublish("kpi.analysis", "success")
	RecordSummaryRequest("error")
	SetAMQPConnectionStatus(true)
	done()

	body := scrape(t)
	for _, want := range []string{
		`kpi_analyses_total{mode="single",outcome="success"} 1`,
		`kpi_records_processed_total 96`,
		`kpi_anomalies_detected_total{detector="rtwp_threshold"} 2`,
		`kpi_analysis_severity_total{severity="low"} 1`,
		`kpi_comparisons_total{mode="baseline",verdict="excellent"} 1`,
		`kpi_validation_failures_total 1`,
		`kpi_store_operations_total{operation="save",status="success"} 1`,
		`kpi_events_published_total{routing_key="kpi.analysis",status="success"} 1`,
		`kpi_summary_requests_total{status="error"} 1`,
		`kpi_amqp_connection_up 1`,
		`kpi_analysis_duration_seconds_count{mode="single"} 1`,
	} {
		assert.Contains(t, body, want)
	}

	SetAMQPConnectionStatus(false)
	assert.Contains(t, scrape(t), "kpi_amqp_connection_up 0")
}
