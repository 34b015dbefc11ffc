package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UpstreamRequests counts calls to the agent platform and the contract
	// workflow by operation and response status ("error" when no response).
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nara_upstream_requests_total",
		Help: "Upstream calls by operation and status",
	}, []string{"operation", "status"})

	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nara_upstream_request_duration_seconds",
		Help:    "Upstream call latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"operation"})

	StreamFramesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nara_stream_frames_skipped_total",
		Help: "Event-stream frames dropped because their JSON could not be parsed",
	})

	// StreamOutcomes counts how aggregated answers were obtained: "final",
	// "tokens", "agent_error" or "empty".
	StreamOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nara_stream_outcomes_total",
		Help: "Aggregated event-stream results by outcome",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nara_http_requests_total",
		Help: "Inbound requests by route pattern, method and status",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nara_http_request_duration_seconds",
		Help:    "Inbound request latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 16),
	}, []string{"route"})
)

// ObserveUpstream records one upstream call. A zero status means the request
// never produced a response.
func ObserveUpstream(operation string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(operation, label).Inc()
	UpstreamDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request. route is the matched pattern, or
// "unmatched".
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
