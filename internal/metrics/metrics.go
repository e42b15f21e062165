// Package metrics defines the Prometheus instrumentation shared by every
// controller component: request-lifecycle counters, scheduler fan-out
// latency, and translator slot-allocation failures.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every collector the controller registers, so cmd/controller
// can wire one registry into a single /metrics handler at startup.
type Registry struct {
	RequestsCreated    *prometheus.CounterVec
	RequestsCompleted  *prometheus.CounterVec
	QueueDepth         *prometheus.GaugeVec
	SchedulerFanoutSecs *prometheus.HistogramVec
	SlotAllocFailures  prometheus.Counter
}

// NewRegistry constructs and registers every collector against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		RequestsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qnet",
			Subsystem: "requests",
			Name:      "created_total",
			Help:      "Requests created, by request kind.",
		}, []string{"kind"}),
		RequestsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qnet",
			Subsystem: "requests",
			Name:      "completed_total",
			Help:      "Requests reaching a terminal status, by kind and outcome.",
		}, []string{"kind", "status"}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "qnet",
			Subsystem: "requests",
			Name:      "queue_depth",
			Help:      "Current number of queued requests per kind.",
		}, []string{"kind"}),
		SchedulerFanoutSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "qnet",
			Subsystem: "scheduler",
			Name:      "fanout_seconds",
			Help:      "Latency of an RPC fan-out call across all targeted agents.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		SlotAllocFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qnet",
			Subsystem: "translator",
			Name:      "slot_allocation_failures_total",
			Help:      "Times find-common-slot failed to locate a shared contiguous run.",
		}),
	}
	reg.MustRegister(m.RequestsCreated, m.RequestsCompleted, m.QueueDepth,
		m.SchedulerFanoutSecs, m.SlotAllocFailures)
	return m
}
