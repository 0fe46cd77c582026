package nodes

import (
	"sort"
	"sync"
)

// NodeDefinition captures metadata about a built-in node so tooling can
// discover what ships with the package.
type NodeDefinition struct {
	ID          string
	Description string
	Example     string
}

var (
	catalogMu sync.RWMutex
	catalog   = map[string]NodeDefinition{}
)

// RegisterNode makes a node definition discoverable. Definitions without an
// ID are ignored; re-registering an ID replaces the previous entry.
func RegisterNode(def NodeDefinition) {
	if def.ID == "" {
		return
	}
	catalogMu.Lock()
	catalog[def.ID] = def
	catalogMu.Unlock()
}

// RegisteredNodes returns the known definitions sorted by ID.
func RegisteredNodes() []NodeDefinition {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	defs := make([]NodeDefinition, 0, len(catalog))
	for _, def := range catalog {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// NodeDefinitionFor returns metadata for a registered node.
func NodeDefinitionFor(id string) (NodeDefinition, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	def, ok := catalog[id]
	return def, ok
}
