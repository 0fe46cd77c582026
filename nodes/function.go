// Package nodes provides ready-made node implementations for the engine:
// callback nodes for inlining custom logic, a delay node, a structured
// logging node, and an OpenAI chat-completion node.
package nodes

import (
	"context"

	"nodeflow"
)

// FuncNode wires plain callbacks into the prep/exec/post lifecycle so custom
// logic can be inlined without defining a type. Nil callbacks behave like
// the engine defaults: no-op prep/exec/post, re-raising fallback.
type FuncNode struct {
	*nodeflow.BaseNode
	prepFn     func(ctx context.Context, shared nodeflow.Shared) (any, error)
	execFn     func(ctx context.Context, prepResult any) (any, error)
	postFn     func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error)
	fallbackFn func(prepResult any, execErr error) (any, error)
}

func NewFuncNode(name string, opts ...nodeflow.NodeOption) *FuncNode {
	return &FuncNode{BaseNode: nodeflow.NewBaseNode(name, opts...)}
}

func (n *FuncNode) WithPrep(fn func(ctx context.Context, shared nodeflow.Shared) (any, error)) *FuncNode {
	n.prepFn = fn
	return n
}

func (n *FuncNode) WithExec(fn func(ctx context.Context, prepResult any) (any, error)) *FuncNode {
	n.execFn = fn
	return n
}

func (n *FuncNode) WithPost(fn func(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error)) *FuncNode {
	n.postFn = fn
	return n
}

func (n *FuncNode) WithFallback(fn func(prepResult any, execErr error) (any, error)) *FuncNode {
	n.fallbackFn = fn
	return n
}

func (n *FuncNode) Prep(ctx context.Context, shared nodeflow.Shared) (any, error) {
	if n.prepFn == nil {
		return nil, nil
	}
	return n.prepFn(ctx, shared)
}

func (n *FuncNode) Exec(ctx context.Context, prepResult any) (any, error) {
	if n.execFn == nil {
		return nil, nil
	}
	return n.execFn(ctx, prepResult)
}

func (n *FuncNode) Post(ctx context.Context, shared nodeflow.Shared, prepResult, execResult any) (nodeflow.Action, error) {
	if n.postFn == nil {
		return nodeflow.DefaultAction, nil
	}
	return n.postFn(ctx, shared, prepResult, execResult)
}

func (n *FuncNode) ExecFallback(prepResult any, execErr error) (any, error) {
	if n.fallbackFn == nil {
		return nil, execErr
	}
	return n.fallbackFn(prepResult, execErr)
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "func",
		Description: "Wires Go callbacks into the prep/exec/post lifecycle.",
		Example:     `nodes.NewFuncNode("clean").WithExec(func(ctx context.Context, in any) (any, error) { return scrub(in), nil })`,
	})
}
