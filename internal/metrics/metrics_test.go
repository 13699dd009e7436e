package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-users-api/internal/model"
	"go-users-api/pkg/apierror"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{apierror.Wrap(model.ErrValidation, "VALIDATION_ERROR", "bad", "", 400), OutcomeValidation},
		{apierror.Wrap(model.ErrConflict, "ALREADY_EXISTS", "taken", "", 409), OutcomeConflict},
		{apierror.Wrap(model.ErrNotFound, "INVALID_CREDENTIALS", "nope", "", 401), OutcomeNotFound},
		{apierror.Wrap(model.ErrInvalidCredentials, "INVALID_CREDENTIALS", "nope", "", 401), OutcomeInvalidCredentials},
		{apierror.Wrap(model.ErrInvalidToken, "INVALID_TOKEN", "nope", "", 401), OutcomeInvalidToken},
		{errors.Join(model.ErrStore, errors.New("timeout")), OutcomeStoreError},
		{errors.New("boom"), OutcomeError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestMetrics_ObserveAuth(t *testing.T) {
	m := New()

	m.ObserveAuth("login", nil)
	m.ObserveAuth("login", nil)
	m.ObserveAuth("login", apierror.Wrap(model.ErrInvalidCredentials, "INVALID_CREDENTIALS", "nope", "", 401))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authOperations.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authOperations.WithLabelValues("login", OutcomeInvalidCredentials)))
}

func TestMetrics_ObservePurge(t *testing.T) {
	m := New()

	m.ObservePurge(0)
	m.ObservePurge(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.tokensPurged))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "/api/v1/auth/login", http.StatusOK, 20*time.Millisecond)
	m.ObserveAuth("signup", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="POST",route="/api/v1/auth/login",status="200"} 1`)
	assert.Contains(t, string(body), "http_request_duration_seconds")
	assert.Contains(t, string(body), `auth_operations_total{operation="signup",outcome="success"} 1`)
}
