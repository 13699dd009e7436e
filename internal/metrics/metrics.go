// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-users-api/internal/model"
)

// Outcome labels for auth_operations_total.
const (
	OutcomeSuccess            = "success"
	OutcomeValidation         = "validation_error"
	OutcomeConflict           = "conflict"
	OutcomeNotFound           = "not_found"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidToken       = "invalid_token"
	OutcomeStoreError         = "store_error"
	OutcomeError              = "error"
)

type Metrics struct {
	registry        *prometheus.Registry
	authOperations  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	tokensPurged    prometheus.Counter
	inFlightRequest prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		authOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Session operations by outcome",
		}, []string{"operation", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route pattern and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		tokensPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "refresh_tokens_purged_total",
			Help: "Expired refresh tokens removed by the cleanup loop",
		}),
		inFlightRequest: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served",
		}),
	}
}

// ObserveAuth counts a session operation, classifying err by its kind.
func (m *Metrics) ObserveAuth(operation string, err error) {
	m.authOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) ObserveHTTP(method string, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePurge(n int64) {
	if n > 0 {
		m.tokensPurged.Add(float64(n))
	}
}

func (m *Metrics) InFlight() prometheus.Gauge {
	return m.inFlightRequest
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, model.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, model.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, model.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, model.ErrInvalidCredentials):
		return OutcomeInvalidCredentials
	case errors.Is(err, model.ErrInvalidToken):
		return OutcomeInvalidToken
	case errors.Is(err, model.ErrStore):
		return OutcomeStoreError
	default:
		return OutcomeError
	}
}
