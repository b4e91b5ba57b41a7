package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.IncCanvasOp("add", "ok")
	m.APIInflightInc()
	assert.Nil(t, m.Registry())
}

func TestMetricsRecordAndServe(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPI("POST", "/api/projects", "201", 20*time.Millisecond)
	m.IncCanvasOp("connect", "invalid_endpoint")
	m.IncCanvasOp("connect", "invalid_endpoint")
	m.IncWebhookDelivery("deployment.completed", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.canvasOps.WithLabelValues("connect", "invalid_endpoint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("POST", "/api/projects", "201")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "sg_webhook_deliveries_total"))
}

func TestParseHeaders(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, parseHeaders("a=1, b=2,bad,=x"))
	assert.Nil(t, parseHeaders(""))
}
