// Package typemap translates PostgreSQL type names and function signatures
// into JSON-Schema-like trees that MCP clients use to shape requests and
// interpret results.
package typemap

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Schema is a node of a JSON-Schema-like tree. Properties keep insertion
// order so that object schemas list columns and parameters in their
// catalog order. Nodes are built by this package and must not be mutated by
// callers once published.
type Schema struct {
	Type            string
	Description     string
	Format          string
	Pattern         string
	ContentEncoding string
	Minimum         *int64
	Maximum         *int64
	MinLength       *int
	MaxLength       *int
	Items           *Schema
	Properties      *orderedmap.OrderedMap[string, *Schema]
	Required        []string
	OneOf           []*Schema
}

// Object returns an empty object schema with an allocated (empty) required
// list, so that it renders as "required": [].
func Object() *Schema {
	return &Schema{
		Type:       "object",
		Properties: newProperties(),
		Required:   []string{},
	}
}

func newProperties() *orderedmap.OrderedMap[string, *Schema] {
	return orderedmap.New[string, *Schema]()
}

// Property returns the named property of an object schema.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(name)
}

// PropertyNames returns the property names in insertion order.
func (s *Schema) PropertyNames() []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	names := make([]string, 0, s.Properties.Len())
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// MarshalJSON renders the node with a fixed key order. Required is emitted
// whenever it is non-nil, even when empty.
func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
		return nil
	}

	type entry struct {
		key  string
		val  any
		emit bool
	}
	entries := []entry{
		{"type", s.Type, s.Type != ""},
		{"description", s.Description, s.Description != ""},
		{"format", s.Format, s.Format != ""},
		{"pattern", s.Pattern, s.Pattern != ""},
		{"contentEncoding", s.ContentEncoding, s.ContentEncoding != ""},
		{"minimum", s.Minimum, s.Minimum != nil},
		{"maximum", s.Maximum, s.Maximum != nil},
		{"minLength", s.MinLength, s.MinLength != nil},
		{"maxLength", s.MaxLength, s.MaxLength != nil},
		{"items", s.Items, s.Items != nil},
		{"properties", s.Properties, s.Properties != nil},
		{"required", s.Required, s.Required != nil},
		{"oneOf", s.OneOf, s.OneOf != nil},
	}
	for _, e := range entries {
		if !e.emit {
			continue
		}
		if err := field(e.key, e.val); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func int64Ptr(v int64) *int64 { return &v }

func intPtr(v int) *int { return &v }
