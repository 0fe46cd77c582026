package nodeflow

import "context"

// Async counterparts of the lifecycle capability interfaces. Go's native
// task abstraction is the goroutine, so an "awaitable" phase is a blocking,
// context-taking call; concurrency appears only at the fan-out points of the
// parallel batch adapters, which launch one goroutine per element and join
// all of them before returning.
//
// A node declares its mode by the interfaces it implements. Implementing any
// Async* interface marks the node async-only: the synchronous entry point
// rejects it with *CapabilityError. The async entry point, by contrast,
// drives sync-only nodes inline.

// AsyncPreparer is the awaitable counterpart of Preparer.
type AsyncPreparer interface {
	PrepAsync(ctx context.Context, shared Shared) (any, error)
}

// AsyncExecutor is the awaitable counterpart of Executor.
type AsyncExecutor interface {
	ExecAsync(ctx context.Context, prepResult any) (any, error)
}

// AsyncFinalizer is the awaitable counterpart of Finalizer.
type AsyncFinalizer interface {
	PostAsync(ctx context.Context, shared Shared, prepResult, execResult any) (Action, error)
}

// AsyncFallbacker is the awaitable counterpart of Fallbacker.
type AsyncFallbacker interface {
	ExecFallbackAsync(ctx context.Context, prepResult any, execErr error) (any, error)
}

// AsyncRunner is a node that owns its whole async lifecycle, such as a Flow
// or a batch adapter driven asynchronously.
type AsyncRunner interface {
	RunAsync(ctx context.Context, shared Shared) (Action, error)
}

// RunAsync executes one node through the async lifecycle and returns its
// routing action. Phases stay strictly sequential per node: prep resolves
// before exec starts, exec before post. Sync-only nodes run inline.
func RunAsync(ctx context.Context, n Node, shared Shared) (Action, error) {
	if r, ok := n.(AsyncRunner); ok {
		return r.RunAsync(ctx, shared)
	}
	return runLifecycle(ctx, n, shared, runConfig{async: true})
}

func declaresAsync(n Node) bool {
	switch n.(type) {
	case AsyncPreparer, AsyncExecutor, AsyncFinalizer, AsyncFallbacker:
		return true
	}
	return false
}
