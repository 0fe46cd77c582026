// Package metrics exports flow execution metrics to Prometheus through the
// engine's FlowMonitor hook.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nodeflow"
)

// Monitor implements nodeflow.FlowMonitor and records node activations,
// retries, and durations per flow/node pair. Safe for concurrent use, so it
// can observe parallel batch flows.
type Monitor struct {
	nodeRuns  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	flowRuns  *prometheus.CounterVec
	durations *prometheus.HistogramVec

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewMonitor registers the collectors with reg (use
// prometheus.DefaultRegisterer for the process-wide registry).
func NewMonitor(reg prometheus.Registerer) *Monitor {
	factory := promauto.With(reg)
	return &Monitor{
		nodeRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_node_runs_total",
			Help: "Node activations by outcome.",
		}, []string{"flow", "node", "outcome"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_node_retries_total",
			Help: "Exec retries per node.",
		}, []string{"flow", "node"}),
		flowRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_flow_runs_total",
			Help: "Completed flow runs by outcome.",
		}, []string{"flow", "outcome"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodeflow_node_duration_seconds",
			Help:    "Wall time per node activation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow", "node"}),
		starts: make(map[string]time.Time),
	}
}

func (m *Monitor) Notify(_ context.Context, event nodeflow.FlowEvent) {
	switch event.Type {
	case nodeflow.FlowEventTypeNodeStart:
		m.mu.Lock()
		m.starts[event.RunID+"/"+event.Node] = event.Timestamp
		m.mu.Unlock()
	case nodeflow.FlowEventTypeNodeEnd:
		m.nodeRuns.WithLabelValues(event.Flow, event.Node, "ok").Inc()
		m.observeDuration(event)
	case nodeflow.FlowEventTypeNodeError:
		m.nodeRuns.WithLabelValues(event.Flow, event.Node, "error").Inc()
		m.observeDuration(event)
	case nodeflow.FlowEventTypeNodeRetry:
		m.retries.WithLabelValues(event.Flow, event.Node).Inc()
	case nodeflow.FlowEventTypeFlowComplete:
		outcome := "ok"
		if event.Err != nil {
			outcome = "error"
		}
		m.flowRuns.WithLabelValues(event.Flow, outcome).Inc()
	}
}

func (m *Monitor) observeDuration(event nodeflow.FlowEvent) {
	key := event.RunID + "/" + event.Node
	m.mu.Lock()
	start, ok := m.starts[key]
	delete(m.starts, key)
	m.mu.Unlock()
	if ok {
		m.durations.WithLabelValues(event.Flow, event.Node).Observe(event.Timestamp.Sub(start).Seconds())
	}
}
