package soak

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	//poolLoans prometheus metric.
	poolLoans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of pooled payloads currently loaned out",
			Name:      "pool_loans",
			Namespace: "refs",
		},
	)
	//soakOps prometheus metric.
	soakOps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Total number of soak operations performed",
			Name:      "soak_ops_total",
			Namespace: "refs",
		},
	)
)

func init() {
	prometheus.MustRegister(
		poolLoans,
		soakOps,
	)
}

func updatePoolLoansMetric(n int) {
	poolLoans.Set(float64(n))
}

func incSoakOpsMetric() {
	soakOps.Inc()
}
