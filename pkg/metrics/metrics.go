// Package metrics defines the Prometheus metric collectors used by the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	AdFetchesTotal       *prometheus.CounterVec
	AdFetchDuration      prometheus.Histogram
	SlotOutcomesTotal    *prometheus.CounterVec
	StaleResultsTotal    prometheus.Counter
	StyleInsertionsTotal prometheus.Counter
	EventsDroppedTotal   prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil reg uses
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		AdFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ad_fetches_total",
				Help: "Ad network round-trips by reported status (SUCCESS, NO_FILL, ERROR_IN_FETCH, ...).",
			},
			[]string{"status"},
		),
		AdFetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ad_fetch_duration_seconds",
				Help:    "Ad network round-trip latency in seconds.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		SlotOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slot_outcomes_total",
				Help: "Slot load outcomes (filled, failed).",
			},
			[]string{"outcome"},
		),
		StaleResultsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "slot_stale_results_total",
				Help: "Ad responses discarded because a newer request had been issued.",
			},
		),
		StyleInsertionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "slot_style_insertions_total",
				Help: "Tracking-pixel stylesheet insertions into document heads.",
			},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "slot_events_dropped_total",
				Help: "Outcome events dropped because the publish buffer was full.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.AdFetchesTotal,
		m.AdFetchDuration,
		m.SlotOutcomesTotal,
		m.StaleResultsTotal,
		m.StyleInsertionsTotal,
		m.EventsDroppedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
