package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "court_reservation"

var (
	once sync.Once

	holdOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hold_acquire_total",
			Help:      "Soft hold acquire attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_commits_total",
			Help:      "Booking units of work by kind and result code.",
		},
		[]string{"kind", "result"},
	)

	commitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "booking_commit_duration_seconds",
			Help:      "Wall time of booking units of work including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	retries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_retries_total",
			Help:      "Units of work re-run after a concurrency conflict.",
		},
		[]string{"operation"},
	)

	sweepItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_items_total",
			Help:      "Items processed by cleanup sweeps.",
		},
		[]string{"sweep", "result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(holdOutcomes, bookingCommits, commitDuration, retries, sweepItems, httpRequests)
	})
}

// IncHold counts a hold acquire by outcome (ACQUIRED, RENEWED, REJECTED).
func IncHold(outcome string) {
	holdOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveCommit records one booking unit of work. result is "ok" or an error code.
func ObserveCommit(kind, result string, elapsed time.Duration) {
	bookingCommits.WithLabelValues(kind, result).Inc()
	commitDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// IncRetry counts a retry of operation.
func IncRetry(operation string) {
	retries.WithLabelValues(operation).Inc()
}

// IncSweep counts a sweep item by result ("ok", "skipped", "failed").
func IncSweep(sweep, result string) {
	sweepItems.WithLabelValues(sweep, result).Inc()
}

// IncHTTP counts a request for a route template and status class ("2xx").
func IncHTTP(route, status string) {
	httpRequests.WithLabelValues(route, status).Inc()
}
