// fine-payment-bridge/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// label "service" keeps the gateway and the sandboxes comparable in one query
	PaymentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finepay",
			Name:      "requests_total",
			Help:      "Total requests per service, status and method/step",
		},
		[]string{"service", "status", "method"},
	)

	PaymentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finepay",
			Name:      "request_duration_seconds",
			Help:      "Request duration per service",
			Buckets: []float64{
				0.01, 0.02, 0.03, 0.05, 0.08, 0.12,
				0.2, 0.3, 0.5, 0.8, 1.2, 2, 3, 5, 10,
			},
		},
		[]string{"service", "status"},
	)

	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finepay",
			Name:      "settlements_total",
			Help:      "Webhook events by reconciliation outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(PaymentRequestsTotal, PaymentRequestDuration, SettlementsTotal)
}

func IncRequest(service, status, method string) {
	PaymentRequestsTotal.WithLabelValues(service, status, method).Inc()
}

func ObserveDuration(service, status string, seconds float64) {
	PaymentRequestDuration.WithLabelValues(service, status).Observe(seconds)
}

func IncSettlement(outcome string) {
	SettlementsTotal.WithLabelValues(outcome).Inc()
}

// StatusLabel collapses an HTTP status into SUCCESS/FAILED.
func StatusLabel(code int) string {
	if code >= 200 && code < 400 {
		return "SUCCESS"
	}
	return "FAILED"
}

/*************** HTTP middleware ***************/

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware counts and times every request of service except the /metrics scrape itself.
func Middleware(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			statusLabel := StatusLabel(rec.status)
			IncRequest(service, statusLabel, r.Method)
			ObserveDuration(service, statusLabel, time.Since(start).Seconds())
		})
	}
}
