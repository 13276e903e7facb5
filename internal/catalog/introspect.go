package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/faucetdb/pgmcp/internal/model"
)

// tablesQuery lists base tables and views with their columns aggregated in
// ordinal order. Column types come from format_type so that length,
// precision and array modifiers are kept.
const tablesQuery = `SELECT
		t.table_schema,
		t.table_name,
		t.table_type,
		obj_description(pgc.oid, 'pg_class') AS table_description,
		json_agg(
			json_build_object(
				'name', a.attname,
				'data_type', format_type(a.atttypid, a.atttypmod),
				'is_nullable', NOT a.attnotnull,
				'ordinal_position', a.attnum,
				'default_value', pg_get_expr(ad.adbin, ad.adrelid)
			) ORDER BY a.attnum
		)::text AS columns
	FROM information_schema.tables t
	JOIN pg_catalog.pg_namespace n
		ON n.nspname = t.table_schema
	JOIN pg_catalog.pg_class pgc
		ON pgc.relname = t.table_name
		AND pgc.relnamespace = n.oid
	JOIN pg_catalog.pg_attribute a
		ON a.attrelid = pgc.oid
		AND a.attnum > 0
		AND NOT a.attisdropped
	LEFT JOIN pg_catalog.pg_attrdef ad
		ON ad.adrelid = a.attrelid
		AND ad.adnum = a.attnum
	WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema')
		AND t.table_type IN ('BASE TABLE', 'VIEW')
		AND ($1::text IS NULL OR t.table_schema ~ $1)
	GROUP BY t.table_schema, t.table_name, t.table_type, pgc.oid
	ORDER BY t.table_schema, t.table_name`

// functionsQuery lists plain functions and aggregates with their rendered
// argument and result signatures.
const functionsQuery = `SELECT
		n.nspname AS schema_name,
		p.proname AS function_name,
		pg_get_function_arguments(p.oid) AS args_signature,
		pg_get_function_result(p.oid) AS return_signature,
		array_to_string(p.proargmodes::text[], ',') AS arg_modes,
		p.prokind = 'a' AS is_aggregate,
		obj_description(p.oid, 'pg_proc') AS function_description
	FROM pg_catalog.pg_proc p
	JOIN pg_catalog.pg_namespace n ON p.pronamespace = n.oid
	WHERE n.nspname NOT IN ('pg_catalog', 'information_schema')
		AND p.prokind IN ('f', 'a')
		AND ($1::text IS NULL OR n.nspname ~ $1)
	ORDER BY n.nspname, p.proname`

// tableRow holds one row of tablesQuery.
type tableRow struct {
	Schema      string  `db:"table_schema"`
	Name        string  `db:"table_name"`
	Type        string  `db:"table_type"`
	Description *string `db:"table_description"`
	Columns     string  `db:"columns"`
}

// columnJSON is one element of the aggregated columns array.
type columnJSON struct {
	Name     string  `json:"name"`
	DataType string  `json:"data_type"`
	Nullable bool    `json:"is_nullable"`
	Position int     `json:"ordinal_position"`
	Default  *string `json:"default_value"`
}

// functionRow holds one row of functionsQuery.
type functionRow struct {
	Schema      string  `db:"schema_name"`
	Name        string  `db:"function_name"`
	Args        string  `db:"args_signature"`
	Result      *string `db:"return_signature"`
	Modes       *string `db:"arg_modes"`
	IsAggregate bool    `db:"is_aggregate"`
	Description *string `db:"function_description"`
}

// filterArg turns the cache key into the query argument: "" means no
// filter and is sent as NULL.
func filterArg(filter string) any {
	if filter == "" {
		return nil
	}
	return filter
}

func (r tableRow) toModel() (model.Table, error) {
	var cols []columnJSON
	if err := json.Unmarshal([]byte(r.Columns), &cols); err != nil {
		return model.Table{}, fmt.Errorf("decode columns of %s.%s: %w", r.Schema, r.Name, err)
	}

	t := model.Table{
		Schema:      r.Schema,
		Name:        r.Name,
		Kind:        model.KindView,
		Columns:     make([]model.Column, len(cols)),
		Description: r.Description,
	}
	if r.Type == "BASE TABLE" {
		t.Kind = model.KindTable
	}
	for i, c := range cols {
		t.Columns[i] = model.Column{
			Name:     c.Name,
			Type:     c.DataType,
			Nullable: c.Nullable,
			Position: c.Position,
			Default:  c.Default,
		}
	}
	return t, nil
}

func (r functionRow) toModel() model.Function {
	var modes []string
	if r.Modes != nil && *r.Modes != "" {
		modes = strings.Split(*r.Modes, ",")
	}
	f := model.Function{
		Schema:      r.Schema,
		Name:        r.Name,
		Parameters:  ParseParameters(r.Args, modes),
		IsAggregate: r.IsAggregate,
		Description: r.Description,
	}
	if r.Result != nil {
		f.ReturnType = *r.Result
	}
	return f
}
