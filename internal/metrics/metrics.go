package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus instruments. Registered on a
// caller-supplied registry so tests can use a fresh one.
type Metrics struct {
	ChatRequests     *prometheus.CounterVec
	QuotaRejections  prometheus.Counter
	UpstreamFailures *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_chat_requests_total",
			Help: "Chat requests by outcome.",
		}, []string{"outcome"}),
		QuotaRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_quota_rejections_total",
			Help: "Requests rejected by the daily quota gate.",
		}),
		UpstreamFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_upstream_failures_total",
			Help: "Failed upstream completion calls by credential pool.",
		}, []string{"pool"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_upstream_latency_seconds",
			Help:    "Latency of upstream completion calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pool", "model"}),
	}
}
