package track

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	//payloadsLive prometheus metric.
	payloadsLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Number of tracked payloads not yet freed",
			Name:      "payloads_live",
			Namespace: "refs",
		},
	)
	//payloadsAllocated prometheus metric.
	payloadsAllocated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Total number of payloads taken into tracked ownership",
			Name:      "payloads_allocated_total",
			Namespace: "refs",
		},
	)
	//payloadsReleased prometheus metric.
	payloadsReleased = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Total number of payloads released by their last owner",
			Name:      "payloads_released_total",
			Namespace: "refs",
		},
	)
	//payloadsFreed prometheus metric.
	payloadsFreed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Total number of payloads whose ownership bookkeeping is gone",
			Name:      "payloads_freed_total",
			Namespace: "refs",
		},
	)
	//releaseFailures prometheus metric.
	releaseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Total number of deleters that panicked during release",
			Name:      "release_failures_total",
			Namespace: "refs",
		},
	)
)

func init() {
	prometheus.MustRegister(
		payloadsLive,
		payloadsAllocated,
		payloadsReleased,
		payloadsFreed,
		releaseFailures,
	)
}

func updateAllocatedMetrics() {
	payloadsAllocated.Inc()
	payloadsLive.Inc()
}

func updateReleasedMetrics(failed bool) {
	payloadsReleased.Inc()
	if failed {
		releaseFailures.Inc()
	}
}

func updateFreedMetrics() {
	payloadsFreed.Inc()
	payloadsLive.Dec()
}
