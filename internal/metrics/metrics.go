// Package metrics holds the Prometheus collectors for the auth API.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexus_auth"

type Metrics struct {
	registry *prometheus.Registry

	SessionsCreated     *prometheus.CounterVec
	TokenRefreshes      *prometheus.CounterVec
	SessionsInvalidated *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
	ResetRequests       *prometheus.CounterVec
	OTPVerifications    *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SessionsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_created_total",
			Help: "Sessions created, by session type.",
		}, []string{"type"}),
		TokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "token_refreshes_total",
			Help: "Refresh-token operations, by kind (rotate|access) and status.",
		}, []string{"kind", "status"}),
		SessionsInvalidated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_invalidated_total",
			Help: "Sessions deleted, by reason.",
		}, []string{"reason"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "login_attempts_total",
			Help: "Login attempts, by status.",
		}, []string{"status"}),
		ResetRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "password_reset_requests_total",
			Help: "Password reset requests, by outcome.",
		}, []string{"outcome"}),
		OTPVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "otp_verifications_total",
			Help: "Reset code verifications, by result.",
		}, []string{"result"}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_total",
			Help: "Reset notifications dispatched, by status.",
		}, []string{"status"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) SessionCreated(sessionType string) {
	if m != nil {
		m.SessionsCreated.WithLabelValues(sessionType).Inc()
	}
}

func (m *Metrics) TokenRefresh(kind string, err error) {
	if m != nil {
		m.TokenRefreshes.WithLabelValues(kind, status(err)).Inc()
	}
}

func (m *Metrics) SessionsDeleted(reason string, n int) {
	if m != nil && n > 0 {
		m.SessionsInvalidated.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) Login(err error) {
	if m != nil {
		m.LoginAttempts.WithLabelValues(status(err)).Inc()
	}
}

func (m *Metrics) ResetRequested(outcome string) {
	if m != nil {
		m.ResetRequests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) OTPVerified(result string) {
	if m != nil {
		m.OTPVerifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) NotificationSent(err error) {
	if m != nil {
		m.NotificationsSent.WithLabelValues(status(err)).Inc()
	}
}

func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
