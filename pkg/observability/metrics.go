package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	LoginAttemptsTotal *prometheus.CounterVec
	SignUpsTotal       *prometheus.CounterVec
	ProvisionedUsers   prometheus.Counter

	// Provider metrics
	ProviderCallsTotal   *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive prometheus.Gauge

	registry *prometheus.Registry

	// Optional OTLP mirror for the Observe* paths.
	otel *OTelMetrics
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestibule_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vestibule_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestibule_login_attempts_total",
				Help: "Login attempts by outcome (success, rejected, error)",
			},
			[]string{"outcome"},
		),
		SignUpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestibule_signups_total",
				Help: "Sign-up requests by outcome",
			},
			[]string{"outcome"},
		),
		ProvisionedUsers: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vestibule_provisioned_users_total",
				Help: "Local user records created or updated from provider logins",
			},
		),
		ProviderCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestibule_provider_calls_total",
				Help: "Identity provider calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vestibule_provider_call_duration_seconds",
				Help:    "Identity provider call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vestibule_sessions_active",
				Help: "Sessions currently bound to provider tokens",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginAttemptsTotal,
		m.SignUpsTotal,
		m.ProvisionedUsers,
		m.ProviderCallsTotal,
		m.ProviderCallDuration,
		m.SessionsActive,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// AttachOTel mirrors subsequent Observe* calls onto the OTLP pipeline.
func (m *Metrics) AttachOTel(o *OTelMetrics) {
	m.otel = o
}

// ObserveLogin records a login attempt outcome
func (m *Metrics) ObserveLogin(outcome string) {
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	if m.otel != nil {
		m.otel.RecordLogin(context.Background(), outcome)
	}
}

// ObserveSignUp records a sign-up outcome
func (m *Metrics) ObserveSignUp(outcome string) {
	m.SignUpsTotal.WithLabelValues(outcome).Inc()
	if m.otel != nil {
		m.otel.RecordSignUp(context.Background(), outcome)
	}
}

// ObserveProviderCall records one provider round trip
func (m *Metrics) ObserveProviderCall(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderCallsTotal.WithLabelValues(operation, status).Inc()
	m.ProviderCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if m.otel != nil {
		m.otel.RecordProviderCall(context.Background(), operation, err, duration)
	}
}

// statusRecorder captures the response status for HTTP metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments a handler with request count and duration
func (m *Metrics) HTTPMiddleware(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
