package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_remote_requests_total",
			Help: "Storefront API operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_remote_request_duration_seconds",
			Help:    "Storefront API request latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
