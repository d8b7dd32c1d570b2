package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
	"nodes": {
		"model.jaffle.stg_orders": {
			"name": "stg_orders",
			"alias": "stg_orders_tbl",
			"description": "Staged orders",
			"columns": {
				"order_id": {"name": "order_id", "data_type": "int", "description": ""},
				"ordered_at": {"name": "ordered_at", "data_type": "timestamp", "description": "Order time"}
			}
		},
		"model.jaffle.customers": {
			"name": "customers",
			"alias": "",
			"description": "",
			"columns": {}
		},
		"seed.jaffle.raw_orders": {
			"name": "raw_orders",
			"alias": "raw_orders"
		},
		"test.jaffle.not_null_orders_id": {
			"name": "not_null_orders_id"
		}
	}
}`

func TestParse_ModelsOnly(t *testing.T) {
	nodes, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Len(t, nodes, 2)
	assert.Contains(t, nodes, "stg_orders")
	assert.Contains(t, nodes, "customers")
	assert.NotContains(t, nodes, "raw_orders", "seeds are not models")
	assert.NotContains(t, nodes, "not_null_orders_id", "tests are not models")
}

func TestParse_AliasFallsBackToName(t *testing.T) {
	nodes, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, "stg_orders_tbl", nodes["stg_orders"].Alias)
	assert.Equal(t, "customers", nodes["customers"].Alias)
}

func TestParse_ColumnsKeepManifestOrder(t *testing.T) {
	nodes, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	cols := nodes["stg_orders"].Columns.Ordered()
	require.Len(t, cols, 2)
	assert.Equal(t, "order_id", cols[0].Name)
	assert.Equal(t, "ordered_at", cols[1].Name)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	nodes, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
