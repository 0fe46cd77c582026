package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow"
	"nodeflow/nodes"
)

func TestMonitorCountsRunsAndRetries(t *testing.T) {
	reg := prometheus.NewRegistry()
	monitor := NewMonitor(reg)

	attempts := 0
	flaky := nodes.NewFuncNode("flaky", nodeflow.WithMaxAttempts(3)).
		WithExec(func(ctx context.Context, prepResult any) (any, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("transient")
			}
			return nil, nil
		})
	steady := nodes.NewFuncNode("steady")
	flaky.Next(steady)

	flow := nodeflow.NewFlow("pipeline", flaky).WithMonitor(monitor)
	_, err := flow.Run(context.Background(), nodeflow.Shared{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		monitor.nodeRuns.WithLabelValues("pipeline", "flaky", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		monitor.nodeRuns.WithLabelValues("pipeline", "steady", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(
		monitor.retries.WithLabelValues("pipeline", "flaky")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		monitor.flowRuns.WithLabelValues("pipeline", "ok")))
}

func TestMonitorCountsFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	monitor := NewMonitor(reg)

	failing := nodes.NewFuncNode("failing").
		WithExec(func(ctx context.Context, prepResult any) (any, error) {
			return nil, errors.New("hard failure")
		})

	flow := nodeflow.NewFlow("pipeline", failing).WithMonitor(monitor)
	_, err := flow.Run(context.Background(), nodeflow.Shared{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		monitor.nodeRuns.WithLabelValues("pipeline", "failing", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		monitor.flowRuns.WithLabelValues("pipeline", "error")))
}

func TestMonitorObservesDurations(t *testing.T) {
	reg := prometheus.NewRegistry()
	monitor := NewMonitor(reg)

	node := nodes.NewFuncNode("quick")
	flow := nodeflow.NewFlow("pipeline", node).WithMonitor(monitor)
	_, err := flow.Run(context.Background(), nodeflow.Shared{})
	require.NoError(t, err)

	count := testutil.CollectAndCount(monitor.durations, "nodeflow_node_duration_seconds")
	assert.Equal(t, 1, count)

	// Start timestamps are dropped once observed.
	monitor.mu.Lock()
	assert.Empty(t, monitor.starts)
	monitor.mu.Unlock()
}
