package lsp

import (
	"sync"

	"github.com/reflens/reflens/internal/manifest"
)

// mirror is the server's local copy of per-project node metadata, kept in
// sync with the manifest container through change events. Maps are swapped
// wholesale on Added and deleted wholesale on Removed; entries are never
// mutated field by field.
type mirror struct {
	mu    sync.RWMutex
	nodes map[string]manifest.NodeMetaMap // project root -> node metadata
}

func newMirror() *mirror {
	return &mirror{nodes: make(map[string]manifest.NodeMetaMap)}
}

// apply updates the mirror from a change event. Removals of unknown roots
// are tolerated silently.
func (m *mirror) apply(ev manifest.ChangedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, added := range ev.Added {
		m.nodes[added.ProjectRoot] = added.Nodes
	}
	for _, removed := range ev.Removed {
		delete(m.nodes, removed.ProjectRoot)
	}
}

// get returns the node metadata map for a key, or nil.
func (m *mirror) get(key string) manifest.NodeMetaMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[key]
}

// len returns the number of mirrored projects.
func (m *mirror) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}
