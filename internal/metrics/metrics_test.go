package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ServesRegisteredCollectors(t *testing.T) {
	ToolTotal.WithLabelValues("metrics_test_tool", "ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rommaana_tool_total{status="ok",tool="metrics_test_tool"} 1`)
}

func TestBridgeTotal_Counts(t *testing.T) {
	before := testutil.ToFloat64(BridgeTotal.WithLabelValues("answered"))
	BridgeTotal.WithLabelValues("answered").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(BridgeTotal.WithLabelValues("answered")))
}
