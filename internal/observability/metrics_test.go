package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsWith_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg, "test")

	m.RefreshCyclesTotal.WithLabelValues("success").Inc()
	m.ChainTokens.WithLabelValues("eth").Set(12)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshCyclesTotal.WithLabelValues("success")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ChainTokens.WithLabelValues("eth")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_refresh_cycles_total")
	assert.Contains(t, names, "test_registry_tokens")
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RefreshCyclesTotal.WithLabelValues("success"))
	RecordRefreshCycle("success", 0.2, 1700000000)
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.RefreshCyclesTotal.WithLabelValues("success")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(DefaultMetrics.LastSuccessfulRefresh))

	RecordRefreshCycle("error", 0.1, 1800000000)
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(DefaultMetrics.LastSuccessfulRefresh))

	UpdateChainTokens("bsc", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(DefaultMetrics.ChainTokens.WithLabelValues("bsc")))

	SetRelayConnected(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(DefaultMetrics.RelayConnected))
	SetRelayConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(DefaultMetrics.RelayConnected))

	errsBefore := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("vaults_by_chain"))
	RecordDBQuery("vaults_by_chain", 0.01, errors.New("boom"))
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("vaults_by_chain")))
}

func TestHandler(t *testing.T) {
	RecordChainFailure("eth")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "token_registry_refresh_chain_failures_total"))
}
