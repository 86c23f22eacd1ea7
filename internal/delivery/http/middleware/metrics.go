package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "pattern", "status"},
	)

	inboundEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_emails_total",
			Help: "Inbound webhook emails by outcome",
		},
		[]string{"outcome"}, // outcome: relayed, rejected
	)
)

// CountInboundEmail increments the inbound webhook counter for the given outcome.
func CountInboundEmail(outcome string) {
	inboundEmailsTotal.WithLabelValues(outcome).Inc()
}

// Instrument records per-request duration labeled by the registered route
// pattern, so path parameters do not explode the label space.
func Instrument(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next(wrapped, r)
		httpRequestDuration.
			WithLabelValues(r.Method, pattern, strconv.Itoa(wrapped.status)).
			Observe(time.Since(start).Seconds())
	}
}
