// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horecawatch_matches_total",
		Help: "Total number of resolved listings by confidence tier",
	}, []string{"tier"})

	MatchConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "horecawatch_match_confidence",
		Help:    "Distribution of match confidence scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	ManualOverridesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "horecawatch_manual_overrides_total",
		Help: "Total number of listings resolved through a manual mapping",
	})

	PriceChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horecawatch_price_changes_total",
		Help: "Total number of detected price changes by alert level",
	}, []string{"level"})

	StockChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horecawatch_stock_changes_total",
		Help: "Total number of detected stock transitions by type",
	}, []string{"type"})

	ObservationsSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "horecawatch_observations_saved_total",
		Help: "Total number of observations persisted",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "horecawatch_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "horecawatch_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
