package nodeflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// FlowPrepFunc runs before orchestration; its result is merged into every
// node's parameters for this run.
type FlowPrepFunc func(ctx context.Context, shared Shared) (Params, error)

// FlowPostFunc shapes the flow's final action from the last action of the
// traversal. The default is pass-through.
type FlowPostFunc func(ctx context.Context, shared Shared, callParams Params, last Action) (Action, error)

// Flow drives graph traversal from a start node, routing by the action each
// node returns until no successor resolves. A Flow is itself a Node, so it
// can be wired into another flow's graph and its final action routes the
// outer traversal.
//
// Cycles are legal and expected; WithMaxSteps bounds runaway loops when the
// caller wants a bound (there is none by default).
type Flow struct {
	*BaseNode
	start    Node
	maxSteps int
	prepFn   FlowPrepFunc
	postFn   FlowPostFunc
	monitors []FlowMonitor
}

func NewFlow(name string, start Node, opts ...NodeOption) *Flow {
	return &Flow{
		BaseNode: NewBaseNode(name, opts...),
		start:    start,
	}
}

// Start replaces the flow's start node and returns it for chaining.
func (f *Flow) Start(node Node) Node {
	f.start = node
	return node
}

// WithParams sets the flow's own parameter bag.
func (f *Flow) WithParams(params Params) *Flow {
	f.SetParams(params)
	return f
}

// WithMaxSteps bounds the number of node activations per run. Zero means
// unlimited.
func (f *Flow) WithMaxSteps(max int) *Flow {
	f.maxSteps = max
	return f
}

// WithPrep installs the flow-level prep hook.
func (f *Flow) WithPrep(fn FlowPrepFunc) *Flow {
	f.prepFn = fn
	return f
}

// WithPost installs the flow-level post hook.
func (f *Flow) WithPost(fn FlowPostFunc) *Flow {
	f.postFn = fn
	return f
}

// WithMonitor registers an observability hook for the flow.
func (f *Flow) WithMonitor(monitor FlowMonitor) *Flow {
	if monitor != nil {
		f.monitors = append(f.monitors, monitor)
	}
	return f
}

// WithMonitors registers multiple observability hooks for the flow.
func (f *Flow) WithMonitors(monitors ...FlowMonitor) *Flow {
	for _, monitor := range monitors {
		f.WithMonitor(monitor)
	}
	return f
}

// Run executes the flow synchronously: prep hook, traversal, post hook. Any
// node error aborts the run and surfaces unchanged; context mutations made
// by completed nodes stay visible.
func (f *Flow) Run(ctx context.Context, shared Shared) (Action, error) {
	return f.runFlow(ctx, shared, false)
}

// RunAsync executes the flow through the async lifecycle. Async-capable
// nodes run their async phases; sync-only nodes run inline.
func (f *Flow) RunAsync(ctx context.Context, shared Shared) (Action, error) {
	return f.runFlow(ctx, shared, true)
}

func (f *Flow) runFlow(ctx context.Context, shared Shared, async bool) (Action, error) {
	var callParams Params
	if f.prepFn != nil {
		p, err := f.prepFn(ctx, shared)
		if err != nil {
			return "", err
		}
		callParams = p
	}
	last, err := f.orchestrate(ctx, shared, callParams, async)
	if err != nil {
		return "", err
	}
	if f.postFn != nil {
		action, err := f.postFn(ctx, shared, callParams, last)
		if err != nil {
			return "", err
		}
		if action == "" {
			action = DefaultAction
		}
		return action, nil
	}
	return last, nil
}

// orchestrate is one traversal pass: merge the flow's own params with the
// call params onto each node, run its lifecycle, route by the returned
// action (falling back to "default", terminating when neither resolves).
// Returns the last action of the traversal.
func (f *Flow) orchestrate(ctx context.Context, shared Shared, callParams Params, async bool) (last Action, err error) {
	if f.start == nil {
		return "", ErrNoStartNode
	}

	runID := uuid.NewString()
	current := f.start
	lastNode := current.Name()
	steps := 0
	last = DefaultAction

	f.emit(ctx, FlowEvent{
		Type:   FlowEventTypeFlowStart,
		RunID:  runID,
		Flow:   f.Name(),
		Node:   lastNode,
		Shared: f.snapshot(shared),
	})
	defer func() {
		f.emit(ctx, FlowEvent{
			Type:   FlowEventTypeFlowComplete,
			RunID:  runID,
			Flow:   f.Name(),
			Node:   lastNode,
			Action: last,
			Err:    err,
			Shared: f.snapshot(shared),
		})
	}()

	for current != nil {
		if f.maxSteps > 0 && steps >= f.maxSteps {
			err = fmt.Errorf("max steps exceeded: %d", f.maxSteps)
			return "", err
		}
		lastNode = current.Name()
		current.SetParams(MergeParams(f.Params(), callParams))

		f.emit(ctx, FlowEvent{
			Type:   FlowEventTypeNodeStart,
			RunID:  runID,
			Flow:   f.Name(),
			Node:   current.Name(),
			Shared: f.snapshot(shared),
		})

		action, stepErr := f.dispatch(ctx, current, shared, async, runID)
		if stepErr != nil {
			f.emit(ctx, FlowEvent{
				Type:   FlowEventTypeNodeError,
				RunID:  runID,
				Flow:   f.Name(),
				Node:   current.Name(),
				Err:    stepErr,
				Shared: f.snapshot(shared),
			})
			err = stepErr
			return "", err
		}
		if action == "" {
			action = DefaultAction
		}

		f.emit(ctx, FlowEvent{
			Type:   FlowEventTypeNodeEnd,
			RunID:  runID,
			Flow:   f.Name(),
			Node:   current.Name(),
			Action: action,
			Shared: f.snapshot(shared),
		})

		last = action
		next, ok := current.Successor(action)
		if !ok && action != DefaultAction {
			next, ok = current.Successor(DefaultAction)
		}
		if !ok {
			next = nil
		}
		current = next
		steps++
	}

	return last, nil
}

func (f *Flow) dispatch(ctx context.Context, n Node, shared Shared, async bool, runID string) (Action, error) {
	onRetry := func(attempt int, retryErr error) {
		f.emit(ctx, FlowEvent{
			Type:    FlowEventTypeNodeRetry,
			RunID:   runID,
			Flow:    f.Name(),
			Node:    n.Name(),
			Attempt: attempt,
			Err:     retryErr,
			Shared:  f.snapshot(shared),
		})
	}
	if async {
		if r, ok := n.(AsyncRunner); ok {
			return r.RunAsync(ctx, shared)
		}
	} else if r, ok := n.(Runner); ok {
		return r.Run(ctx, shared)
	}
	return runLifecycle(ctx, n, shared, runConfig{async: async, onRetry: onRetry})
}
