// Package metrics provides Prometheus metrics for the Poised service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LifecycleOperationsTotal tracks lifecycle operations by outcome
	LifecycleOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poised",
			Subsystem: "lifecycle",
			Name:      "operations_total",
			Help:      "Total number of lifecycle operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// LifecycleOperationDuration tracks lifecycle operation duration in seconds
	LifecycleOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "poised",
			Subsystem: "lifecycle",
			Name:      "operation_duration_seconds",
			Help:      "Duration of lifecycle operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	// PartialWritesTotal tracks multi-statement protocols that failed partway
	PartialWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poised",
			Subsystem: "lifecycle",
			Name:      "partial_writes_total",
			Help:      "Total number of multi-statement protocols that failed after completing at least one step",
		},
		[]string{"operation", "step"},
	)

	// ProjectsFinalized tracks projects finalized
	ProjectsFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "poised",
			Subsystem: "lifecycle",
			Name:      "projects_finalized_total",
			Help:      "Total number of projects finalized",
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "poised",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordOperation records a lifecycle operation metric
func RecordOperation(operation, status string, durationSeconds float64) {
	LifecycleOperationsTotal.WithLabelValues(operation, status).Inc()
	LifecycleOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordPartialWrite records a protocol that stopped partway
func RecordPartialWrite(operation, step string) {
	PartialWritesTotal.WithLabelValues(operation, step).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
