package nodes

import (
	"context"

	"nodeflow"
)

// AsyncFuncNode is the async-declaring counterpart of FuncNode. Because it
// implements the async lifecycle interfaces it must be driven through
// RunAsync; the synchronous entry point rejects it.
type AsyncFuncNode struct {
	*nodeflow.BaseNode
	prepFn     func(ctx context.Context, shared nodeflow.Shared) (any, error)
	execFn     func(ctx context.Context, prepResult any) (any, error)
	postFn     func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error)
	fallbackFn func(ctx context.Context, prepResult any, execErr error) (any, error)
}

func NewAsyncFuncNode(name string, opts ...nodeflow.NodeOption) *AsyncFuncNode {
	return &AsyncFuncNode{BaseNode: nodeflow.NewBaseNode(name, opts...)}
}

func (n *AsyncFuncNode) WithPrep(fn func(ctx context.Context, shared nodeflow.Shared) (any, error)) *AsyncFuncNode {
	n.prepFn = fn
	return n
}

func (n *AsyncFuncNode) WithExec(fn func(ctx context.Context, prepResult any) (any, error)) *AsyncFuncNode {
	n.execFn = fn
	return n
}

func (n *AsyncFuncNode) WithPost(fn func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error)) *AsyncFuncNode {
	n.postFn = fn
	return n
}

func (n *AsyncFuncNode) WithFallback(fn func(ctx context.Context, prepResult any, execErr error) (any, error)) *AsyncFuncNode {
	n.fallbackFn = fn
	return n
}

func (n *AsyncFuncNode) PrepAsync(ctx context.Context, shared nodeflow.Shared) (any, error) {
	if n.prepFn == nil {
		return nil, nil
	}
	return n.prepFn(ctx, shared)
}

func (n *AsyncFuncNode) ExecAsync(ctx context.Context, prepResult any) (any, error) {
	if n.execFn == nil {
		return nil, nil
	}
	return n.execFn(ctx, prepResult)
}

func (n *AsyncFuncNode) PostAsync(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
	if n.postFn == nil {
		return nodeflow.DefaultAction, nil
	}
	return n.postFn(ctx, shared, prepResult, execResult)
}

func (n *AsyncFuncNode) ExecFallbackAsync(ctx context.Context, prepResult any, execErr error) (any, error) {
	if n.fallbackFn == nil {
		return nil, execErr
	}
	return n.fallbackFn(ctx, prepResult, execErr)
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "async_func",
		Description: "Async-declaring callback node; must be driven through RunAsync.",
		Example:     `nodes.NewAsyncFuncNode("fetch").WithExec(func(ctx context.Context, in any) (any, error) { return download(ctx, in) })`,
	})
}
