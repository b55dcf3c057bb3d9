package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics("booking", nil)

	m.ObserveValidation("ok")
	m.ObserveValidation("room_conflict")
	m.ObserveValidation("room_conflict")
	m.ObserveTransition("approve", "ok")
	m.ObserveAccessCheck(true)
	m.ObserveAccessCheck(false)
	m.AddSwept("expire_due", 3)
	m.AddSwept("expire_due", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("room_conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("approve", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessChecksTotal.WithLabelValues("granted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessChecksTotal.WithLabelValues("denied")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SweptTotal.WithLabelValues("expire_due")))
}

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveValidation("ok")
	m.ObserveTransition("approve", "ok")
	m.ObserveAccessCheck(true)
	m.AddSwept("expire_due", 1)
	m.ObserveRequest("/", "200", time.Millisecond)
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	t.Parallel()

	m := NewMetrics("booking", nil)
	m.ObserveRequest("/check_wifi", "200", 20*time.Millisecond)
	m.ObserveValidation("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "booking_validations_total"))
	assert.True(t, strings.Contains(body, "booking_http_request_duration_seconds"))
}
