package utils

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorExposesRecordedSeries(t *testing.T) {
	mc := NewMetricsCollector()
	mc.IncrementRequests("/votes")
	mc.IncrementErrors("/votes")
	mc.ObserveRequest("/votes", 15*time.Millisecond)
	mc.AddOperationLatency("cast_vote", 3*time.Millisecond)
	mc.IncrementOperationErrors("record_interaction")

	families, err := mc.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["devflow_http_requests_total"])
	assert.True(t, names["devflow_http_errors_total"])
	assert.True(t, names["devflow_operation_duration_seconds"])
	assert.True(t, names["devflow_operation_errors_total"])

	rec := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `devflow_http_requests_total{route="/votes"} 1`)
}
