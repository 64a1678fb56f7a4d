package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("google", true)
	c.RecordLogin("google", false)
	c.RecordLogin("google", false)
	c.RecordLoginFailure("verification")
	c.RecordRefresh()
	c.RecordRefreshFailure("revoked")
	c.RecordRefreshFailure("revoked")
	c.RecordRevocations("all", 3)
	c.RecordRevocations("all", 0)
	c.RecordRegistrationRace()
	c.RecordEventPublish(true)
	c.RecordEventPublish(false)

	assert.InDelta(t, 1, testutil.ToFloat64(c.logins.WithLabelValues("google", "true")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.logins.WithLabelValues("google", "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.loginFailures.WithLabelValues("verification")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.refreshes), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.refreshFailures.WithLabelValues("revoked")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(c.revocations.WithLabelValues("all")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.registrationRace), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.eventPublishes.WithLabelValues("failure")), 0)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRefresh()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "authcore_refreshes_total 1"))
}
