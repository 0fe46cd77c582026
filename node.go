package nodeflow

import (
	"sync"
	"time"
)

// NodeAttributes carries the retry policy the runner applies to a node's
// exec phase.
type NodeAttributes struct {
	// MaxAttempts is the total number of exec attempts, including the first.
	// Values below 1 are treated as 1 (no retry).
	MaxAttempts int
	// RetryDelay is the base backoff between attempts. Attempt n sleeps
	// RetryDelay * 2^(n-1) before retrying. Zero retries immediately.
	RetryDelay time.Duration
}

// Node is the graph-facing contract shared by every unit of work: identity,
// a parameter bag, a successor map, and retry attributes. Embed *BaseNode to
// satisfy it and implement the lifecycle capability interfaces you need.
type Node interface {
	Name() string
	Params() Params
	SetParams(Params)
	Next(node Node, action ...Action) Node
	Successor(action Action) (Node, bool)
	Attributes() NodeAttributes
}

// BaseNode is the embeddable core of a node. Successor wiring happens once,
// before any run; parameters are rewritten by orchestration on every step,
// so access to them is guarded for the parallel batch flows.
type BaseNode struct {
	name       string
	attrs      NodeAttributes
	mu         sync.RWMutex
	params     Params
	successors map[Action]Node
}

// NodeOption configures a BaseNode.
type NodeOption func(*BaseNode)

// WithMaxAttempts sets the total exec attempt budget (1 = no retry).
func WithMaxAttempts(n int) NodeOption {
	return func(b *BaseNode) {
		b.attrs.MaxAttempts = n
	}
}

// WithRetryDelay sets the base backoff between exec attempts.
func WithRetryDelay(d time.Duration) NodeOption {
	return func(b *BaseNode) {
		b.attrs.RetryDelay = d
	}
}

func NewBaseNode(name string, opts ...NodeOption) *BaseNode {
	b := &BaseNode{
		name:       name,
		attrs:      NodeAttributes{MaxAttempts: 1},
		params:     make(Params),
		successors: make(map[Action]Node),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BaseNode) Name() string {
	return b.name
}

func (b *BaseNode) Attributes() NodeAttributes {
	return b.attrs
}

// SetParams replaces the node's parameter bag with a copy of params.
func (b *BaseNode) SetParams(params Params) {
	fresh := make(Params, len(params))
	for k, v := range params {
		fresh[k] = v
	}
	b.mu.Lock()
	b.params = fresh
	b.mu.Unlock()
}

// Params returns the current parameter bag. The returned map is the live
// snapshot; orchestration replaces it wholesale rather than mutating it.
func (b *BaseNode) Params() Params {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params
}

// Next wires a successor under the given action label ("default" when
// omitted or empty) and returns the added node so chains read left to right:
//
//	a.Next(b).Next(c)
//	decision.Next(search, "search")
func (b *BaseNode) Next(node Node, action ...Action) Node {
	label := DefaultAction
	if len(action) > 0 && action[0] != "" {
		label = action[0]
	}
	b.mu.Lock()
	if b.successors == nil {
		b.successors = make(map[Action]Node)
	}
	b.successors[label] = node
	b.mu.Unlock()
	return node
}

// Successor looks up the successor wired under action. An empty action is
// normalized to DefaultAction; there is no implicit fallback here, the flow
// orchestrator retries the lookup with DefaultAction itself.
func (b *BaseNode) Successor(action Action) (Node, bool) {
	if action == "" {
		action = DefaultAction
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	node, ok := b.successors[action]
	return node, ok
}
