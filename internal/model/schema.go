package model

// ObjectKind distinguishes base tables from views.
type ObjectKind string

const (
	KindTable ObjectKind = "table"
	KindView  ObjectKind = "view"
)

// ParamMode is the argument mode of a function parameter.
type ParamMode string

const (
	ModeIn    ParamMode = "IN"
	ModeOut   ParamMode = "OUT"
	ModeInOut ParamMode = "INOUT"
)

// Column describes a single column within a table or view. Position is
// 1-based and defines the stable column order.
type Column struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Nullable bool    `json:"nullable"`
	Position int     `json:"position"`
	Default  *string `json:"default,omitempty"`
}

// Table describes a table or view discovered in the catalog.
type Table struct {
	Schema      string     `json:"schema"`
	Name        string     `json:"name"`
	Kind        ObjectKind `json:"kind"`
	Columns     []Column   `json:"columns"`
	Description *string    `json:"description,omitempty"`
}

// QualifiedName returns the schema-scoped name, e.g. "public.users".
func (t Table) QualifiedName() string {
	return t.Schema + "." + t.Name
}

// ColumnNames returns the column names in ordinal order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Parameter describes a single function argument.
type Parameter struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Mode       ParamMode `json:"mode"`
	Position   int       `json:"position"`
	HasDefault bool      `json:"has_default"`
}

// IsInput reports whether the caller supplies a value for the parameter.
func (p Parameter) IsInput() bool {
	return p.Mode == ModeIn || p.Mode == ModeInOut
}

// IsOutput reports whether the parameter is part of the function result.
func (p Parameter) IsOutput() bool {
	return p.Mode == ModeOut || p.Mode == ModeInOut
}

// Function describes a function or aggregate discovered in the catalog.
// ReturnType is the text produced by pg_get_function_result, so it may read
// "SETOF users", "TABLE(id integer, ...)" or "void".
type Function struct {
	Schema      string      `json:"schema"`
	Name        string      `json:"name"`
	Parameters  []Parameter `json:"parameters"`
	ReturnType  string      `json:"return_type"`
	IsAggregate bool        `json:"is_aggregate"`
	Description *string     `json:"description,omitempty"`
}

// QualifiedName returns the schema-scoped name, e.g. "public.create_user".
func (f Function) QualifiedName() string {
	return f.Schema + "." + f.Name
}

// OutputParameters returns the OUT and INOUT parameters in position order.
func (f Function) OutputParameters() []Parameter {
	var out []Parameter
	for _, p := range f.Parameters {
		if p.IsOutput() {
			out = append(out, p)
		}
	}
	return out
}
