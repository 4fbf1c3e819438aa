package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// HTTPRequestsTotal counts completed HTTP requests by route and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipqueue_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency by route.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipqueue_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// QueueDepth is the current number of approved clips in the live queue.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clipqueue_queue_depth",
			Help: "Current number of clips in the live queue",
		},
	)

	// SubmissionsTotal counts clip-submission pipeline outcomes.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipqueue_submissions_total",
			Help: "Total clip submissions by outcome",
		},
		[]string{"outcome"}, // accepted, merged, dropped
	)

	// ChatReconnectsTotal counts the chat subscription client's reconnect attempts.
	ChatReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clipqueue_chat_reconnects_total",
			Help: "Total reconnect attempts made by the chat subscription client",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		QueueDepth,
		SubmissionsTotal,
		ChatReconnectsTotal,
	)
}
