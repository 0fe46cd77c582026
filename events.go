package nodeflow

import (
	"context"
	"log/slog"
	"time"
)

// FlowEventType enumerates observable lifecycle hooks emitted by a flow.
type FlowEventType string

const (
	FlowEventTypeFlowStart    FlowEventType = "flow_start"
	FlowEventTypeNodeStart    FlowEventType = "node_start"
	FlowEventTypeNodeEnd      FlowEventType = "node_end"
	FlowEventTypeNodeError    FlowEventType = "node_error"
	FlowEventTypeNodeRetry    FlowEventType = "node_retry"
	FlowEventTypeFlowComplete FlowEventType = "flow_complete"
)

// FlowEvent carries metadata that observability hooks can use. Shared is a
// shallow snapshot taken at emission time.
type FlowEvent struct {
	Type      FlowEventType
	Timestamp time.Time
	RunID     string
	Flow      string
	Node      string
	Action    Action
	Attempt   int
	Err       error
	Shared    Shared
}

// FlowMonitor observes lifecycle events emitted during a flow run. Parallel
// batch flows notify monitors from multiple goroutines, so implementations
// must be safe for concurrent use.
type FlowMonitor interface {
	Notify(ctx context.Context, event FlowEvent)
}

func (f *Flow) emit(ctx context.Context, event FlowEvent) {
	if len(f.monitors) == 0 {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, monitor := range f.monitors {
		monitor.Notify(ctx, event)
	}
}

// snapshot copies shared for event payloads, and only when someone is
// listening: with no monitors registered nothing reads the context outside
// node lifecycles, keeping parallel traversals free of engine-made races.
func (f *Flow) snapshot(shared Shared) Shared {
	if len(f.monitors) == 0 {
		return nil
	}
	return snapshotShared(shared)
}

func snapshotShared(shared Shared) Shared {
	if shared == nil {
		return nil
	}
	snapshot := make(Shared, len(shared))
	for k, v := range shared {
		snapshot[k] = v
	}
	return snapshot
}

// SlogMonitor bridges flow events to a slog.Logger: errors at Error, retries
// at Warn, everything else at Debug.
type SlogMonitor struct {
	logger *slog.Logger
}

func NewSlogMonitor(logger *slog.Logger) *SlogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogMonitor{logger: logger}
}

func (m *SlogMonitor) Notify(ctx context.Context, event FlowEvent) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("flow", event.Flow),
		slog.String("node", event.Node),
	}
	level := slog.LevelDebug
	switch event.Type {
	case FlowEventTypeNodeError:
		level = slog.LevelError
		attrs = append(attrs, slog.Any("error", event.Err))
	case FlowEventTypeNodeRetry:
		level = slog.LevelWarn
		attrs = append(attrs, slog.Int("attempt", event.Attempt), slog.Any("error", event.Err))
	case FlowEventTypeNodeEnd:
		attrs = append(attrs, slog.String("action", event.Action))
	case FlowEventTypeFlowComplete:
		attrs = append(attrs, slog.String("action", event.Action))
		if event.Err != nil {
			level = slog.LevelError
			attrs = append(attrs, slog.Any("error", event.Err))
		}
	}
	m.logger.LogAttrs(ctx, level, string(event.Type), attrs...)
}
