package nodeflow

import (
	"errors"
	"fmt"
)

// ErrNoStartNode is returned when a flow is run without a start node.
var ErrNoStartNode = errors.New("flow has no start node")

// CapabilityError reports an entry point mismatched to a node's declared
// execution mode: a node that implements any async lifecycle method was
// driven through the synchronous entry point. It is fatal and never retried.
type CapabilityError struct {
	Node string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("node %q declares async lifecycle methods; use RunAsync instead of Run", e.Node)
}
