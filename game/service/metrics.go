package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the service level counters exported on /metrics
type Metrics struct {
	sessionsCreated  prometheus.Counter
	movementQueries  *prometheus.CounterVec
	queryDuration    prometheus.Histogram
	reachableCells   prometheus.Histogram
	ordersExecuted   *prometheus.CounterVec
	stackEvaluations prometheus.Counter
}

// NewMetrics creates the service metrics and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overland",
			Name:      "sessions_created_total",
			Help:      "Sessions created.",
		}),
		movementQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overland",
			Name:      "movement_queries_total",
			Help:      "Movement queries by outcome.",
		}, []string{"outcome"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "overland",
			Name:      "movement_query_duration_seconds",
			Help:      "Time spent in one movement search.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		reachableCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "overland",
			Name:      "movement_reachable_cells",
			Help:      "Cells reached by one movement search.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ordersExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overland",
			Name:      "orders_executed_total",
			Help:      "Move orders executed by stop reason.",
		}, []string{"stop_reason"}),
		stackEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overland",
			Name:      "stack_evaluations_total",
			Help:      "Stacks evaluated for AI planning.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.sessionsCreated,
			m.movementQueries,
			m.queryDuration,
			m.reachableCells,
			m.ordersExecuted,
			m.stackEvaluations,
		)
	}
	return m
}
