package nodeflow

import (
	"context"
	"reflect"

	"golang.org/x/sync/errgroup"
)

// BatchNode decorates a node whose prep yields a sequence: the retry-wrapped
// exec runs once per element, in input order, each element completing before
// the next starts. Post receives the original prep result and the ordered
// []any of per-element results. A non-sequence prep result is treated as a
// single-element batch.
//
// The decorator shares the inner node's identity, params, successors and
// retry attributes, so it is wired into a graph exactly like the node it
// wraps.
type BatchNode struct {
	Node
}

func NewBatchNode(inner Node) *BatchNode {
	return &BatchNode{Node: inner}
}

func (bn *BatchNode) Run(ctx context.Context, shared Shared) (Action, error) {
	return bn.run(ctx, shared, false)
}

func (bn *BatchNode) RunAsync(ctx context.Context, shared Shared) (Action, error) {
	return bn.run(ctx, shared, true)
}

func (bn *BatchNode) run(ctx context.Context, shared Shared, async bool) (Action, error) {
	if !async && declaresAsync(bn.Node) {
		return "", &CapabilityError{Node: bn.Name()}
	}
	prepRes, err := runPrep(ctx, bn.Node, shared, async)
	if err != nil {
		return "", err
	}
	items := batchItems(prepRes)
	results := make([]any, len(items))
	for i, item := range items {
		res, err := runExec(ctx, bn.Node, item, runConfig{async: async})
		if err != nil {
			return "", err
		}
		results[i] = res
	}
	return runPost(ctx, bn.Node, shared, prepRes, results, async)
}

// ParallelBatchNode is the fan-out variant of BatchNode: one goroutine per
// element, unbounded, joined before post runs. Results land at their input
// index regardless of completion order. One element's exhausted retries
// trigger only that element's fallback; siblings always run to completion,
// and the first unrecovered error is reported after the join.
type ParallelBatchNode struct {
	Node
}

func NewParallelBatchNode(inner Node) *ParallelBatchNode {
	return &ParallelBatchNode{Node: inner}
}

func (pn *ParallelBatchNode) Run(ctx context.Context, shared Shared) (Action, error) {
	return pn.run(ctx, shared, false)
}

func (pn *ParallelBatchNode) RunAsync(ctx context.Context, shared Shared) (Action, error) {
	return pn.run(ctx, shared, true)
}

func (pn *ParallelBatchNode) run(ctx context.Context, shared Shared, async bool) (Action, error) {
	if !async && declaresAsync(pn.Node) {
		return "", &CapabilityError{Node: pn.Name()}
	}
	prepRes, err := runPrep(ctx, pn.Node, shared, async)
	if err != nil {
		return "", err
	}
	items := batchItems(prepRes)
	results := make([]any, len(items))

	var g errgroup.Group
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			res, err := runExec(ctx, pn.Node, item, runConfig{async: async})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return runPost(ctx, pn.Node, shared, prepRes, results, async)
}

// batchItems splits a prep result into batch elements. Slices and arrays
// fan out per element ([]byte and strings stay whole); nil is an empty
// batch; anything else is a single-element batch.
func batchItems(prepRes any) []any {
	if prepRes == nil {
		return nil
	}
	switch v := prepRes.(type) {
	case []any:
		return v
	case []byte, string:
		return []any{prepRes}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			items := make([]any, rv.Len())
			for i := range items {
				items[i] = rv.Index(i).Interface()
			}
			return items
		}
		return []any{prepRes}
	}
}
