package typemap

import (
	"strconv"
	"strings"

	"github.com/faucetdb/pgmcp/internal/model"
)

// baseTypes maps normalized PostgreSQL base type names to schema
// constructors. Each lookup builds a fresh node so callers can decorate the
// result (e.g. add a description) without affecting other schemas.
var baseTypes = map[string]func() *Schema{
	// Numeric
	"smallint":         func() *Schema { return &Schema{Type: "integer", Minimum: int64Ptr(-32768), Maximum: int64Ptr(32767)} },
	"integer":          scalar("integer"),
	"bigint":           scalar("integer"),
	"decimal":          scalar("number"),
	"numeric":          scalar("number"),
	"real":             scalar("number"),
	"double precision": scalar("number"),
	"smallserial":      func() *Schema { return &Schema{Type: "integer", Minimum: int64Ptr(1), Maximum: int64Ptr(32767)} },
	"serial":           func() *Schema { return &Schema{Type: "integer", Minimum: int64Ptr(1)} },
	"bigserial":        func() *Schema { return &Schema{Type: "integer", Minimum: int64Ptr(1)} },

	// Monetary
	"money": func() *Schema { return &Schema{Type: "string", Pattern: `^\$?\d+(\.\d{2})?$`} },

	// Character
	"character varying": scalar("string"),
	"varchar":           scalar("string"),
	"character":         scalar("string"),
	"char":              scalar("string"),
	"text":              scalar("string"),

	// Binary
	"bytea": func() *Schema { return &Schema{Type: "string", ContentEncoding: "base64"} },

	// Date/time
	"timestamp":                   formatted("date-time"),
	"timestamp without time zone": formatted("date-time"),
	"timestamp with time zone":    formatted("date-time"),
	"date":                        formatted("date"),
	"time":                        formatted("time"),
	"time without time zone":      formatted("time"),
	"time with time zone":         formatted("time"),
	"interval":                    scalar("string"),

	"boolean": scalar("boolean"),

	// Geometric (simplified)
	"point": func() *Schema {
		s := &Schema{Type: "object", Properties: newProperties()}
		s.Properties.Set("x", &Schema{Type: "number"})
		s.Properties.Set("y", &Schema{Type: "number"})
		return s
	},
	"line":    scalar("string"),
	"lseg":    scalar("string"),
	"box":     scalar("string"),
	"path":    scalar("string"),
	"polygon": scalar("string"),
	"circle":  scalar("string"),

	// Network
	"cidr":     formatted("ipv4"),
	"inet":     formatted("ipv4"),
	"macaddr":  func() *Schema { return &Schema{Type: "string", Pattern: `^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`} },
	"macaddr8": func() *Schema { return &Schema{Type: "string", Pattern: `^([0-9A-Fa-f]{2}[:-]){7}([0-9A-Fa-f]{2})$`} },

	"uuid": formatted("uuid"),

	"json":  scalar("object"),
	"jsonb": scalar("object"),

	// information_schema reports every array column as "ARRAY".
	"array": scalar("array"),

	"xml":      scalar("string"),
	"pg_lsn":   scalar("string"),
	"tsquery":  scalar("string"),
	"tsvector": scalar("string"),
}

func scalar(typ string) func() *Schema {
	return func() *Schema { return &Schema{Type: typ} }
}

func formatted(format string) func() *Schema {
	return func() *Schema { return &Schema{Type: "string", Format: format} }
}

// MapType converts a PostgreSQL type name into a schema. It never fails:
// types it does not recognise (extensions, composites, enums) map to a plain
// string schema.
func MapType(typeName string) *Schema {
	t := strings.ToLower(strings.TrimSpace(typeName))

	if base, ok := strings.CutSuffix(t, "[]"); ok {
		return &Schema{Type: "array", Items: MapType(base)}
	}

	if n, ok := lengthModifier(t, "character varying(", "varchar("); ok {
		return &Schema{Type: "string", MaxLength: intPtr(n)}
	}
	if n, ok := lengthModifier(t, "character(", "char("); ok {
		return &Schema{Type: "string", MinLength: intPtr(n), MaxLength: intPtr(n)}
	}

	// Precision and scale are not encoded.
	if strings.HasPrefix(t, "numeric(") || strings.HasPrefix(t, "decimal(") {
		return &Schema{Type: "number"}
	}

	if build, ok := baseTypes[stripPrecision(t)]; ok {
		return build()
	}
	return &Schema{Type: "string"}
}

// stripPrecision removes a fractional-seconds precision from temporal type
// names, so "timestamp(3) with time zone" looks up as
// "timestamp with time zone".
func stripPrecision(t string) string {
	open := strings.IndexByte(t, '(')
	if open < 0 {
		return t
	}
	end := strings.IndexByte(t[open:], ')')
	if end < 0 {
		return t
	}
	if _, err := strconv.Atoi(t[open+1 : open+end]); err != nil {
		return t
	}
	return strings.Join(strings.Fields(t[:open]+" "+t[open+end+1:]), " ")
}

// lengthModifier extracts n from "prefix(n)" for any of the given prefixes.
func lengthModifier(t string, prefixes ...string) (int, bool) {
	for _, p := range prefixes {
		rest, ok := strings.CutPrefix(t, p)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rest, ")"))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// TableSchema builds the object schema for a table or view row. Nullable
// columns accept null through a oneOf; every other column is required.
func TableSchema(columns []model.Column) *Schema {
	s := Object()
	for _, c := range columns {
		mapped := MapType(c.Type)
		if c.Nullable {
			mapped = &Schema{OneOf: []*Schema{mapped, {Type: "null"}}}
		} else {
			s.Required = append(s.Required, c.Name)
		}
		s.Properties.Set(c.Name, mapped)
	}
	return s
}

// FunctionParamsSchema builds the input schema for a function call from its
// IN and INOUT parameters. Parameters without a default are required.
func FunctionParamsSchema(params []model.Parameter) *Schema {
	s := Object()
	for _, p := range params {
		if !p.IsInput() {
			continue
		}
		s.Properties.Set(p.Name, MapType(p.Type))
		if !p.HasDefault {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// FunctionResultSchema describes what a function call returns. OUT and INOUT
// parameters take precedence over the declared return type. The column list
// of a TABLE(...) return type is not parsed.
func FunctionResultSchema(returnType string, outParams []model.Parameter) *Schema {
	if len(outParams) > 0 {
		s := &Schema{Type: "object", Properties: newProperties()}
		for _, p := range outParams {
			if p.IsOutput() {
				s.Properties.Set(p.Name, MapType(p.Type))
			}
		}
		return s
	}

	switch {
	case strings.EqualFold(returnType, "void"):
		return &Schema{Type: "null"}
	case strings.HasPrefix(returnType, "SETOF "):
		return &Schema{Type: "array", Items: MapType(strings.TrimPrefix(returnType, "SETOF "))}
	case strings.HasPrefix(returnType, "TABLE"):
		return &Schema{Type: "array", Items: &Schema{Type: "object"}}
	default:
		return MapType(returnType)
	}
}
