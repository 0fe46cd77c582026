package nodes

import (
	"context"
	"time"

	"nodeflow"
)

// DelayNode pauses the traversal for a fixed duration, then routes to the
// default successor. The prepared input passes through untouched.
type DelayNode struct {
	*nodeflow.BaseNode
	Duration time.Duration
}

func NewDelayNode(name string, duration time.Duration) *DelayNode {
	return &DelayNode{BaseNode: nodeflow.NewBaseNode(name), Duration: duration}
}

func (n *DelayNode) Exec(ctx context.Context, prepResult any) (any, error) {
	timer := time.NewTimer(n.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return prepResult, nil
	}
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "delay",
		Description: "Pauses for Duration, then continues with the default action.",
		Example:     `nodes.NewDelayNode("wait", 500*time.Millisecond)`,
	})
}
