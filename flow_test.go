package nodeflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow"
	"nodeflow/nodes"
)

// visitNode appends its name to shared["visits"] and returns action.
func visitNode(name string, action nodeflow.Action) *nodes.FuncNode {
	return nodes.NewFuncNode(name).
		WithPost(func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
			visits, _ := shared["visits"].([]string)
			shared["visits"] = append(visits, name)
			return action, nil
		})
}

func TestDefaultChainVisitsInOrder(t *testing.T) {
	a := visitNode("a", "")
	b := visitNode("b", "")
	c := visitNode("c", "")
	a.Next(b).Next(c)

	shared := nodeflow.Shared{}
	action, err := nodeflow.NewFlow("chain", a).Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, nodeflow.DefaultAction, action)
	assert.Equal(t, []string{"a", "b", "c"}, shared["visits"])
}

func TestLabeledRouting(t *testing.T) {
	for _, route := range []string{"x", "y"} {
		decision := nodes.NewFuncNode("decision").
			WithPost(func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
				return shared["route"].(string), nil
			})
		decision.Next(visitNode("x", "done"), "x")
		decision.Next(visitNode("y", "done"), "y")

		shared := nodeflow.Shared{"route": route}
		action, err := nodeflow.NewFlow("router", decision).Run(context.Background(), shared)
		require.NoError(t, err)
		assert.Equal(t, "done", action)
		assert.Equal(t, []string{route}, shared["visits"])
	}
}

func TestUnregisteredLabelTerminates(t *testing.T) {
	decision := visitNode("decision", "unknown")
	decision.Next(visitNode("x", ""), "x")

	shared := nodeflow.Shared{}
	action, err := nodeflow.NewFlow("router", decision).Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, "unknown", action, "the terminating action is the flow's result")
	assert.Equal(t, []string{"decision"}, shared["visits"], "run ends immediately after decision")
}

func TestUnregisteredLabelFallsBackToDefault(t *testing.T) {
	decision := visitNode("decision", "unknown")
	decision.Next(visitNode("catchall", "done"))

	shared := nodeflow.Shared{}
	action, err := nodeflow.NewFlow("router", decision).Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, "done", action)
	assert.Equal(t, []string{"decision", "catchall"}, shared["visits"])
}

func TestEmptyActionRoutesDefault(t *testing.T) {
	a := nodes.NewFuncNode("a").
		WithPost(func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
			return "", nil
		})
	a.Next(visitNode("b", "done"))

	shared := nodeflow.Shared{}
	action, err := nodeflow.NewFlow("f", a).Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, "done", action)
	assert.Equal(t, []string{"b"}, shared["visits"])
}

func TestLoopbackTerminatesOnAnswer(t *testing.T) {
	const searchesNeeded = 2
	decisions := 0
	decision := nodes.NewFuncNode("decision").
		WithPost(func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
			decisions++
			searches, _ := shared["searches"].(int)
			if searches < searchesNeeded {
				return "search", nil
			}
			return "answer", nil
		})
	search := nodes.NewFuncNode("search").
		WithPost(func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
			searches, _ := shared["searches"].(int)
			shared["searches"] = searches + 1
			return "decide", nil
		})
	answer := nodes.NewFuncNode("answer").
		WithPost(func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
			shared["answered"] = true
			return "end", nil
		})

	decision.Next(search, "search")
	decision.Next(answer, "answer")
	search.Next(decision, "decide")

	shared := nodeflow.Shared{}
	action, err := nodeflow.NewFlow("agent", decision).Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, "end", action)
	assert.Equal(t, true, shared["answered"])
	assert.Equal(t, searchesNeeded, shared["searches"])
	assert.Equal(t, searchesNeeded+1, decisions, "decision runs once per cycle plus the final pass")
}

func TestNestedFlowRoutesOuterGraph(t *testing.T) {
	innerLeaf := visitNode("inner", "escalate")
	inner := nodeflow.NewFlow("inner", innerLeaf)

	handler := visitNode("handler", "handled")
	inner.Next(handler, "escalate")

	shared := nodeflow.Shared{}
	action, err := nodeflow.NewFlow("outer", inner).Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, "handled", action)
	assert.Equal(t, []string{"inner", "handler"}, shared["visits"],
		"the inner flow's last action routes the outer traversal")
}

func TestFlowPostShapesFinalAction(t *testing.T) {
	leaf := visitNode("leaf", "raw")
	flow := nodeflow.NewFlow("shaped", leaf).
		WithPost(func(ctx context.Context, shared nodeflow.Shared, callParams nodeflow.Params, last nodeflow.Action) (nodeflow.Action, error) {
			assert.Equal(t, "raw", last)
			return "shaped", nil
		})

	action, err := flow.Run(context.Background(), nodeflow.Shared{})
	require.NoError(t, err)
	assert.Equal(t, "shaped", action)
}

func TestFlowParamMergePrecedence(t *testing.T) {
	var seen nodeflow.Params
	leaf := nodes.NewFuncNode("leaf")
	leaf.WithPost(func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
		seen = leaf.Params()
		return "", nil
	})

	flow := nodeflow.NewFlow("params", leaf).
		WithParams(nodeflow.Params{"region": "flow", "tier": "gold"}).
		WithPrep(func(ctx context.Context, shared nodeflow.Shared) (nodeflow.Params, error) {
			return nodeflow.Params{"region": "call"}, nil
		})

	_, err := flow.Run(context.Background(), nodeflow.Shared{})
	require.NoError(t, err)
	// Orchestration-time params win per key; untouched flow params remain.
	assert.Equal(t, "call", seen["region"])
	assert.Equal(t, "gold", seen["tier"])
}

func TestFlowPrepErrorAborts(t *testing.T) {
	prepErr := errors.New("flow prep failed")
	ran := false
	leaf := nodes.NewFuncNode("leaf").
		WithExec(func(ctx context.Context, prepResult any) (any, error) {
			ran = true
			return nil, nil
		})

	flow := nodeflow.NewFlow("broken", leaf).
		WithPrep(func(ctx context.Context, shared nodeflow.Shared) (nodeflow.Params, error) {
			return nil, prepErr
		})

	_, err := flow.Run(context.Background(), nodeflow.Shared{})
	assert.ErrorIs(t, err, prepErr)
	assert.False(t, ran)
}

func TestMaxStepsBoundsRunawayLoop(t *testing.T) {
	spinner := visitNode("spinner", "")
	spinner.Next(spinner)

	flow := nodeflow.NewFlow("loop", spinner).WithMaxSteps(5)
	shared := nodeflow.Shared{}
	_, err := flow.Run(context.Background(), shared)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max steps exceeded")
	assert.Len(t, shared["visits"], 5)
}

func TestFlowWithoutStartNode(t *testing.T) {
	_, err := nodeflow.NewFlow("empty", nil).Run(context.Background(), nodeflow.Shared{})
	assert.ErrorIs(t, err, nodeflow.ErrNoStartNode)
}

func TestFlowAsStandaloneNodeEntryPoint(t *testing.T) {
	// Run() dispatches self-running nodes to their own lifecycle.
	leaf := visitNode("leaf", "fin")
	flow := nodeflow.NewFlow("solo", leaf)

	shared := nodeflow.Shared{}
	action, err := nodeflow.Run(context.Background(), flow, shared)
	require.NoError(t, err)
	assert.Equal(t, "fin", action)
	assert.Equal(t, []string{"leaf"}, shared["visits"])
}

func TestMonitorObservesRun(t *testing.T) {
	attempts := 0
	flaky := nodes.NewFuncNode("flaky", nodeflow.WithMaxAttempts(2)).
		WithExec(func(ctx context.Context, prepResult any) (any, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("boom")
			}
			return nil, nil
		})
	final := visitNode("final", "end")
	flaky.Next(final)

	monitor := &mutexMonitor{}
	flow := nodeflow.NewFlow("observed", flaky).WithMonitor(monitor)

	_, err := flow.Run(context.Background(), nodeflow.Shared{})
	require.NoError(t, err)

	starts := monitor.byType(nodeflow.FlowEventTypeFlowStart)
	require.Len(t, starts, 1)
	assert.Equal(t, "flaky", starts[0].Node)
	assert.NotEmpty(t, starts[0].RunID)

	retries := monitor.byType(nodeflow.FlowEventTypeNodeRetry)
	require.Len(t, retries, 1)
	assert.Equal(t, 1, retries[0].Attempt)
	assert.Equal(t, "flaky", retries[0].Node)

	ends := monitor.byType(nodeflow.FlowEventTypeNodeEnd)
	require.Len(t, ends, 2)

	completes := monitor.byType(nodeflow.FlowEventTypeFlowComplete)
	require.Len(t, completes, 1)
	assert.NoError(t, completes[0].Err)
	assert.Equal(t, starts[0].RunID, completes[0].RunID, "one RunID spans the whole run")
}

func TestMonitorObservesNodeError(t *testing.T) {
	failing := nodes.NewFuncNode("failing").
		WithExec(func(ctx context.Context, prepResult any) (any, error) {
			return nil, errors.New("exec failed")
		})

	monitor := &mutexMonitor{}
	flow := nodeflow.NewFlow("observed", failing).WithMonitor(monitor)

	_, err := flow.Run(context.Background(), nodeflow.Shared{})
	require.Error(t, err)

	nodeErrs := monitor.byType(nodeflow.FlowEventTypeNodeError)
	require.Len(t, nodeErrs, 1)
	assert.Equal(t, "failing", nodeErrs[0].Node)

	completes := monitor.byType(nodeflow.FlowEventTypeFlowComplete)
	require.Len(t, completes, 1)
	assert.Error(t, completes[0].Err)
}
