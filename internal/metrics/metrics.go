package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "executions_total", Help: "Execution attempts by terminal status"},
		[]string{"status"},
	)
	ReplayRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "replay_rejections_total", Help: "Replay guard rejections by layer"},
		[]string{"layer"},
	)
	DistributionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distributions_total", Help: "Profit distribution attempts by outcome"},
		[]string{"outcome"},
	)
	ConfirmSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "confirm_seconds",
			Help:    "Time from submission to confirmation",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		},
	)
)

func init() {
	prometheus.MustRegister(ExecutionsTotal, ReplayRejectionsTotal, DistributionsTotal, ConfirmSeconds)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
