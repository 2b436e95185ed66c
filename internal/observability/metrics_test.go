package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler_ExposesQueueMetrics(t *testing.T) {
	SetQueueDepth(3, 2)
	RecordSubmission("admitted")
	RecordSubmission("coalesced")
	RecordCancellation("waiter")
	RecordSuperseded(2)
	RecordQueueWait(5 * time.Millisecond)
	RecordCompletion("GET", "success", 20*time.Millisecond)
	RecordHTTPStatus(404)
	RecordHTTPStatus(0)

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, "requestqueue_pending 3")
	assert.Contains(t, out, "requestqueue_in_flight 2")
	assert.Contains(t, out, `requestqueue_submissions_total{outcome="coalesced"}`)
	assert.Contains(t, out, `requestqueue_completions_total{method="GET",status="success"}`)
	assert.Contains(t, out, `runtime_http_requests_total{code="4xx"}`)
	assert.Contains(t, out, `runtime_http_requests_total{code="error"}`)
}

func TestEnsureRegistered_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		EnsureRegistered()
		EnsureRegistered()
	})
}
