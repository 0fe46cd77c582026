package nodeflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchPrepFunc produces the parameter sets a batch flow iterates over.
type BatchPrepFunc func(ctx context.Context, shared Shared) ([]Params, error)

// BatchFlow runs one full orchestration pass per parameter set, merging each
// set into the flow's parameters for that pass. Passes run sequentially:
// each traversal completes before the next starts.
type BatchFlow struct {
	*Flow
	prepBatch BatchPrepFunc
}

func NewBatchFlow(name string, start Node, prep BatchPrepFunc, opts ...NodeOption) *BatchFlow {
	return &BatchFlow{
		Flow:      NewFlow(name, start, opts...),
		prepBatch: prep,
	}
}

func (bf *BatchFlow) Run(ctx context.Context, shared Shared) (Action, error) {
	return bf.runBatch(ctx, shared, false)
}

func (bf *BatchFlow) RunAsync(ctx context.Context, shared Shared) (Action, error) {
	return bf.runBatch(ctx, shared, true)
}

func (bf *BatchFlow) runBatch(ctx context.Context, shared Shared, async bool) (Action, error) {
	sets, err := batchParamSets(ctx, shared, bf.prepBatch)
	if err != nil {
		return "", err
	}
	for _, set := range sets {
		if _, err := bf.orchestrate(ctx, shared, set, async); err != nil {
			return "", err
		}
	}
	return bf.finishBatch(ctx, shared)
}

// ParallelBatchFlow launches one traversal per parameter set concurrently
// against the same shared context and joins them all before returning. This
// is the engine's most delicate concurrency surface: traversals interleave
// arbitrarily and racing writes to the same shared key have no defined
// winner (see Shared).
type ParallelBatchFlow struct {
	*Flow
	prepBatch BatchPrepFunc
}

func NewParallelBatchFlow(name string, start Node, prep BatchPrepFunc, opts ...NodeOption) *ParallelBatchFlow {
	return &ParallelBatchFlow{
		Flow:      NewFlow(name, start, opts...),
		prepBatch: prep,
	}
}

func (pf *ParallelBatchFlow) Run(ctx context.Context, shared Shared) (Action, error) {
	return pf.runBatch(ctx, shared, false)
}

func (pf *ParallelBatchFlow) RunAsync(ctx context.Context, shared Shared) (Action, error) {
	return pf.runBatch(ctx, shared, true)
}

func (pf *ParallelBatchFlow) runBatch(ctx context.Context, shared Shared, async bool) (Action, error) {
	sets, err := batchParamSets(ctx, shared, pf.prepBatch)
	if err != nil {
		return "", err
	}
	var g errgroup.Group
	for _, set := range sets {
		set := set
		g.Go(func() error {
			_, err := pf.orchestrate(ctx, shared, set, async)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return pf.finishBatch(ctx, shared)
}

func batchParamSets(ctx context.Context, shared Shared, prep BatchPrepFunc) ([]Params, error) {
	if prep == nil {
		return nil, nil
	}
	return prep(ctx, shared)
}

func (f *Flow) finishBatch(ctx context.Context, shared Shared) (Action, error) {
	if f.postFn != nil {
		action, err := f.postFn(ctx, shared, nil, DefaultAction)
		if err != nil {
			return "", err
		}
		if action == "" {
			action = DefaultAction
		}
		return action, nil
	}
	return DefaultAction, nil
}
