// Package manifest reads dbt manifest artifacts and broadcasts metadata
// changes to subscribers such as the LSP server.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ColumnMetadata describes a single column of a model.
// DataType is empty when the manifest carries no type for the column.
type ColumnMetadata struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Description string `json:"description"`
}

// NodeMetadata is the hover-relevant slice of a model node.
type NodeMetadata struct {
	Alias       string     `json:"alias"`
	Description string     `json:"description"`
	Columns     *ColumnMap `json:"columns"`
}

// NodeMetaMap maps model names to their metadata within one project.
type NodeMetaMap map[string]*NodeMetadata

// ColumnMap holds columns in manifest order. JSON objects lose key order
// under map decoding, so decoding walks the object token by token.
type ColumnMap struct {
	names  []string
	byName map[string]*ColumnMetadata
}

// NewColumnMap creates an empty column map.
func NewColumnMap() *ColumnMap {
	return &ColumnMap{byName: make(map[string]*ColumnMetadata)}
}

// Set adds or replaces a column, keeping first-insertion order.
func (c *ColumnMap) Set(col *ColumnMetadata) {
	if _, ok := c.byName[col.Name]; !ok {
		c.names = append(c.names, col.Name)
	}
	c.byName[col.Name] = col
}

// Get returns the column with the given name, or nil.
func (c *ColumnMap) Get(name string) *ColumnMetadata {
	if c == nil {
		return nil
	}
	return c.byName[name]
}

// Len returns the number of columns.
func (c *ColumnMap) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Ordered returns the columns in insertion order.
func (c *ColumnMap) Ordered() []*ColumnMetadata {
	if c == nil {
		return nil
	}
	cols := make([]*ColumnMetadata, 0, len(c.names))
	for _, name := range c.names {
		cols = append(cols, c.byName[name])
	}
	return cols
}

// UnmarshalJSON decodes a JSON object of column entries preserving key order.
func (c *ColumnMap) UnmarshalJSON(data []byte) error {
	c.names = nil
	c.byName = make(map[string]*ColumnMetadata)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil // "columns": null
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("columns: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("columns: non-string key %v", keyTok)
		}

		var col ColumnMetadata
		if err := dec.Decode(&col); err != nil {
			return fmt.Errorf("columns[%s]: %w", key, err)
		}
		if col.Name == "" {
			col.Name = key
		}
		c.Set(&col)
	}

	// Consume closing '}'
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the columns as an object in insertion order.
func (c *ColumnMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
