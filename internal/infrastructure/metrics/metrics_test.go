package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMetrics(t *testing.T) {
	m := New()

	m.CommandExecuted("Submit", "ok", 20*time.Millisecond)
	m.CommandExecuted("Submit", "ok", 30*time.Millisecond)
	m.CommandExecuted("Submit", "validation", time.Millisecond)
	m.AdvisorResult("applied")
	m.AdvisorResult("discarded")
	m.AdvisorResult("discarded")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("Submit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("Submit", "validation")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdvisorResults.WithLabelValues("discarded")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CommandDuration))
}

func TestEngineMetrics_Handler(t *testing.T) {
	m := New()
	m.AdvisorResult("failed")
	m.HTTPRequest("GET", "/api/v1/claims/:id", "200")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `claim_review_advisor_results_total{outcome="failed"} 1`)
	assert.Contains(t, string(body), `claim_review_http_requests_total{code="200",method="GET",route="/api/v1/claims/:id"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
