package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	moderationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hyperindex",
		Name:      "moderation_transitions_total",
		Help:      "Committed moderation transitions by name.",
	}, []string{"transition"})

	entryWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hyperindex",
		Name:      "entry_writes_total",
		Help:      "Owner entry mutations by operation and outcome.",
	}, []string{"operation", "result"})

	readDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hyperindex",
		Name:      "entry_read_duration_seconds",
		Help:      "Latency of listing and search reads.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind", "scope"})

	directoryCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hyperindex",
		Name:      "directory_cache_requests_total",
		Help:      "Public directory cache lookups by result.",
	}, []string{"result"})
)

func recordWrite(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	entryWrites.WithLabelValues(operation, result).Inc()
}
