package nodes

import (
	"context"
	"log/slog"

	"nodeflow"
)

// LoggerNode emits selected shared keys through slog and continues with the
// default action. Prep gathers the values (the read-only phase), exec logs
// them; shared state is never mutated.
type LoggerNode struct {
	*nodeflow.BaseNode
	logger  *slog.Logger
	Message string
	Keys    []string
}

func NewLoggerNode(name, message string, keys ...string) *LoggerNode {
	return &LoggerNode{
		BaseNode: nodeflow.NewBaseNode(name),
		logger:   slog.Default(),
		Message:  message,
		Keys:     keys,
	}
}

// WithLogger replaces the destination logger.
func (n *LoggerNode) WithLogger(logger *slog.Logger) *LoggerNode {
	if logger != nil {
		n.logger = logger
	}
	return n
}

func (n *LoggerNode) Prep(ctx context.Context, shared nodeflow.Shared) (any, error) {
	values := make(map[string]any, len(n.Keys))
	for _, key := range n.Keys {
		if v, ok := shared[key]; ok {
			values[key] = v
		}
	}
	return values, nil
}

func (n *LoggerNode) Exec(ctx context.Context, prepResult any) (any, error) {
	values, _ := prepResult.(map[string]any)
	attrs := make([]slog.Attr, 0, len(values)+1)
	attrs = append(attrs, slog.String("node", n.Name()))
	for _, key := range n.Keys {
		if v, ok := values[key]; ok {
			attrs = append(attrs, slog.Any(key, v))
		}
	}
	n.logger.LogAttrs(ctx, slog.LevelInfo, n.Message, attrs...)
	return nil, nil
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "logger",
		Description: "Emits selected shared keys and a message through slog.",
		Example:     `nodes.NewLoggerNode("debug", "state so far", "input", "result")`,
	})
}
