package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesHandled counts inbound chat updates by kind and outcome.
	UpdatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intentions_updates_handled_total",
		Help: "Total number of chat updates handled by kind and outcome",
	}, []string{"kind", "outcome"})

	// UpdateLatency records how long handling one update took.
	UpdateLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intentions_update_latency_seconds",
		Help:    "Update handling latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// SubmissionsTotal counts private submission transitions by result.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intentions_submissions_total",
		Help: "Total number of submission events by result",
	}, []string{"result"})

	// ModerationActions counts reviewer actions by type.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intentions_moderation_actions_total",
		Help: "Total number of reviewer actions by type",
	}, []string{"action"})

	// OutboxActivations counts successful outbox activations.
	OutboxActivations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intentions_outbox_activations_total",
		Help: "Total number of successful outbox activations",
	})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intentions_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"operation"})

	// GatewayErrors counts failed calls to the messaging gateway.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intentions_gateway_errors_total",
		Help: "Total number of failed messaging gateway calls",
	}, []string{"method"})
)

// TrackUpdate returns a function that records handling latency when called (e.g. defer).
func TrackUpdate(kind string) func() {
	start := time.Now()
	return func() {
		UpdateLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
