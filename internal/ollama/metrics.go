package ollama

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ollamaproxy",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of calls to the Ollama server by outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ollamaproxy",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls to the Ollama server in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequestsTotal, upstreamRequestDuration)
}

// Outcome labels for upstream_requests_total.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeStatus      = "status"
	OutcomeProtocol    = "protocol"
	OutcomeOther       = "other"
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case IsUnavailable(err):
		return OutcomeUnavailable
	case IsStatus(err):
		return OutcomeStatus
	case IsProtocol(err):
		return OutcomeProtocol
	default:
		return OutcomeOther
	}
}

func observeUpstream(endpoint string, err error, dur time.Duration) {
	upstreamRequestsTotal.WithLabelValues(endpoint, outcomeOf(err)).Inc()
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(dur.Seconds())
}
