package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_rpc_requests_total",
		Help: "RPC requests by action and outcome code.",
	}, []string{"action", "status"})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_rpc_duration_seconds",
		Help:    "RPC handling time including lock wait.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_lock_wait_seconds",
		Help:    "Time spent waiting for the request lock.",
		Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10},
	})

	LockTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_lock_timeouts_total",
		Help: "Requests rejected because the request lock was not acquired in time.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})
)
