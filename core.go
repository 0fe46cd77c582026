// Package nodeflow is a minimal node-graph execution engine. Units of work
// ("nodes") expose a prep -> exec -> post lifecycle and are wired into a
// directed graph by action label; a Flow walks the graph from its start node
// until no successor resolves for the returned action.
package nodeflow

import "context"

// Shared is the mutable key-value state threaded by reference through one
// run. Any node may read or write any key. The engine never synchronizes
// access to it: at parallel fan-out points concurrent writers race, and which
// writer wins a racing write to the same key is undefined. Callers that need
// coordination must bring their own.
type Shared map[string]any

// Params is a node's parameter bag.
type Params map[string]any

// Action is the routing label returned by a node's post phase.
type Action = string

// DefaultAction is the catch-all successor label. An empty action returned
// by post is treated as DefaultAction.
const DefaultAction Action = "default"

// Lifecycle capability interfaces. A node implements only the phases it
// needs; the runner supplies no-op defaults for the rest.

// Preparer reads from the shared state and produces the input for exec.
// Prep must not mutate shared.
type Preparer interface {
	Prep(ctx context.Context, shared Shared) (any, error)
}

// Executor performs the unit of work. Exec never sees the shared state and
// is the only phase governed by the retry policy.
type Executor interface {
	Exec(ctx context.Context, prepResult any) (any, error)
}

// Finalizer consumes the prep and exec results, may mutate shared, and
// returns the routing action.
type Finalizer interface {
	Post(ctx context.Context, shared Shared, prepResult, execResult any) (Action, error)
}

// Fallbacker produces a result once retries are exhausted. Without it the
// last exec error propagates.
type Fallbacker interface {
	ExecFallback(prepResult any, execErr error) (any, error)
}

// Runner is a node that owns its whole lifecycle, such as a Flow or a batch
// adapter. The sync entry point dispatches to it before falling back to the
// capability interfaces.
type Runner interface {
	Run(ctx context.Context, shared Shared) (Action, error)
}

// MergeParams merges parameter bags left to right, later bags overriding
// earlier ones per key. Nil bags are skipped; the result is always a fresh
// map.
func MergeParams(bags ...Params) Params {
	merged := make(Params)
	for _, bag := range bags {
		for k, v := range bag {
			merged[k] = v
		}
	}
	return merged
}
