package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, endpoint and status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// BatchesScored counts scored reading batches by source (http, kafka)
	BatchesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_scored_total",
			Help: "Total number of reading batches scored",
		},
		[]string{"source"},
	)

	// BatchesRejected counts batches that failed validation
	BatchesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batches_rejected_total",
			Help: "Total number of reading batches rejected by validation",
		},
		[]string{"source"},
	)

	// EventsDetected counts flagged points
	EventsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_detected_total",
			Help: "Total number of suspicious events detected",
		},
	)

	// PipelineLatency tracks the smoothing+scoring latency per batch
	PipelineLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_latency_seconds",
			Help:    "Detection pipeline latency in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// CacheRequests counts result-cache lookups by outcome (hit, miss, error)
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_requests_total",
			Help: "Total number of detection result cache lookups",
		},
		[]string{"outcome"},
	)

	// IncidentsOpen tracks currently open incidents
	IncidentsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "incidents_open",
			Help: "Number of currently open incidents",
		},
	)
)
