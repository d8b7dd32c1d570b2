package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// DefaultPath is where dbt writes the manifest artifact, relative to the
// project root.
const DefaultPath = "target/manifest.json"

// rawManifest mirrors the subset of the dbt manifest schema we consume.
// Nodes are keyed by unique ID ("model.<project>.<name>").
type rawManifest struct {
	Nodes map[string]rawNode `json:"nodes"`
}

type rawNode struct {
	Name        string     `json:"name"`
	Alias       string     `json:"alias"`
	Description string     `json:"description"`
	Columns     *ColumnMap `json:"columns"`
}

// Parse extracts model metadata from manifest JSON content.
// Non-model nodes (seeds, tests, sources) are skipped.
func Parse(data []byte) (NodeMetaMap, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	nodes := make(NodeMetaMap)
	for id, n := range raw.Nodes {
		if !strings.HasPrefix(id, "model.") {
			continue
		}
		if n.Name == "" {
			continue
		}

		alias := n.Alias
		if alias == "" {
			alias = n.Name
		}
		cols := n.Columns
		if cols == nil {
			cols = NewColumnMap()
		}

		nodes[n.Name] = &NodeMetadata{
			Alias:       alias,
			Description: n.Description,
			Columns:     cols,
		}
	}

	return nodes, nil
}

// ParseFile reads and parses a manifest.json from disk.
func ParseFile(path string) (NodeMetaMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}
