package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledServiceIsNoOp(t *testing.T) {
	svc, err := NewMetricsService(MetricsConfig{Provider: "prometheus", Enabled: false})
	require.NoError(t, err)
	svc.IncrementCounter("dbufdb_queries_total", Fields{"op": "select"})
	svc.ObserveHistogram("dbufdb_query_duration_seconds", 0.01, Fields{"op": "select"})
	require.NoError(t, svc.Close())
}

func TestPrometheusProviderExposesMetrics(t *testing.T) {
	svc, err := NewMetricsService(MetricsConfig{Provider: "prometheus", Namespace: "dbufdb", Enabled: true})
	require.NoError(t, err)

	svc.IncrementCounter("queries_total", Fields{"op": "select", "status": "ok"})
	svc.ObserveHistogram("query_duration_seconds", 0.02, Fields{"op": "select"})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "dbufdb_queries_total")
	require.Contains(t, rec.Body.String(), "dbufdb_query_duration_seconds")
}

func TestUnsupportedProviderFails(t *testing.T) {
	_, err := NewMetricsService(MetricsConfig{Provider: "bogus", Enabled: true})
	require.Error(t, err)
}
