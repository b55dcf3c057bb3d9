package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-booking/internal/application"
	"github.com/example/facility-booking/internal/logging"
	"github.com/example/facility-booking/internal/metrics"
	"github.com/example/facility-booking/internal/testfixtures"
)

func TestIdentifyMember(t *testing.T) {
	t.Parallel()

	authz := application.NewStaticAuthorizer([]string{"Admin@Example.com"})

	tests := []struct {
		name      string
		header    string
		wantFound bool
		want      application.Principal
	}{
		{name: "anonymous request", header: ""},
		{name: "member", header: "member@example.com", wantFound: true, want: application.Principal{Email: "member@example.com"}},
		{name: "administrator", header: " admin@example.com ", wantFound: true, want: application.Principal{Email: "admin@example.com", IsAdmin: true}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var (
				got   application.Principal
				found bool
			)
			handler := IdentifyMember(authz)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, found = PrincipalFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/reservations/res-1", nil)
			if tc.header != "" {
				req.Header.Set(memberEmailHeader, tc.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tc.wantFound, found)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequireAppKey(t *testing.T) {
	t.Parallel()

	hash, err := application.HashAppKey(testAppKey, testKeyParams)
	require.NoError(t, err)

	tests := []struct {
		name       string
		hash       string
		key        string
		wantStatus int
	}{
		{name: "matching key", hash: hash, key: testAppKey, wantStatus: http.StatusNoContent},
		{name: "missing key", hash: hash, wantStatus: http.StatusForbidden},
		{name: "wrong key", hash: hash, key: "nope", wantStatus: http.StatusForbidden},
		{name: "api disabled", hash: "", key: testAppKey, wantStatus: http.StatusForbidden},
		{name: "unusable hash", hash: "plain-text", key: testAppKey, wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			handler := RequireAppKey(tc.hash, testfixtures.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusNoContent)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/status_change", nil)
			if tc.key != "" {
				req.Header.Set(appKeyHeader, tc.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantStatus == http.StatusNoContent, called)
		})
	}
}

func TestRequestLoggerAttachesLogger(t *testing.T) {
	t.Parallel()

	var attached bool
	handler := RequestLogger(testfixtures.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached = logging.FromContext(r.Context()) != nil
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.True(t, attached)
}

func TestRequestMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics("booking", nil)
	handler := RequestMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/reservations/res-9/actions", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/reservations/res-8", nil))

	assert.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))
}

func TestRouteLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/reservations":             "/reservations",
		"/reservations/validate":    "/reservations/validate",
		"/reservations/bulk-check":  "/reservations/bulk-check",
		"/reservations/abc":         "/reservations/{id}",
		"/reservations/abc/actions": "/reservations/{id}/actions",
		"/check_wifi":               "/check_wifi",
		"/api/v1/status_change":     "/api/v1/status_change",
		"/favicon.ico":              "other",
	}
	for path, want := range tests {
		assert.Equal(t, want, routeLabel(path), path)
	}
}
