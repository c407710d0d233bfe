package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Put("/api/user/recommendation/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("PUT", "/api/user/recommendation/{id}", "204"))

	req := httptest.NewRequest(http.MethodPut, "/api/user/recommendation/abc-123", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	after := testutil.ToFloat64(httpRequests.WithLabelValues("PUT", "/api/user/recommendation/{id}", "204"))
	assert.Equal(t, before+1, after)
}

func TestDomainCounters(t *testing.T) {
	before := testutil.ToFloat64(loginAttempts.WithLabelValues(LoginLocked))
	ObserveLogin(LoginLocked)
	assert.Equal(t, before+1, testutil.ToFloat64(loginAttempts.WithLabelValues(LoginLocked)))

	lockBefore := testutil.ToFloat64(accountLockouts)
	ObserveLockout()
	assert.Equal(t, lockBefore+1, testutil.ToFloat64(accountLockouts))
}

func TestHandler(t *testing.T) {
	ObserveRegistration("student")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eduguide_registrations_total")
}
