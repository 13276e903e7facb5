package expose

import (
	"context"
	"io"
	"log/slog"

	"github.com/faucetdb/pgmcp/internal/catalog"
	"github.com/faucetdb/pgmcp/internal/connector"
	"github.com/faucetdb/pgmcp/internal/model"
)

// mockCatalog serves fixed descriptors, filtered with the real matcher.
type mockCatalog struct {
	tables    []model.Table
	functions []model.Function
}

func (m *mockCatalog) Tables(_ context.Context, _ string) ([]model.Table, error) {
	return m.tables, nil
}
func (m *mockCatalog) Functions(_ context.Context, _ string) ([]model.Function, error) {
	return m.functions, nil
}
func (m *mockCatalog) FilterTables(_ context.Context, patterns []string) ([]model.Table, error) {
	return catalog.Filter(m.tables, patterns)
}
func (m *mockCatalog) FilterFunctions(_ context.Context, patterns []string) ([]model.Function, error) {
	return catalog.Filter(m.functions, patterns)
}

// call records one query issued through mockConn.
type call struct {
	method string
	query  string
	args   []any
}

// mockPool records queries and returns canned results.
type mockPool struct {
	rows   []*connector.Row
	row    *connector.Row
	scalar any
	err    error

	acquired int
	calls    []call
}

func (m *mockPool) WithConn(_ context.Context, fn func(connector.Conn) error) error {
	m.acquired++
	return fn(&mockConn{pool: m})
}
func (m *mockPool) Ping(_ context.Context) error { return nil }
func (m *mockPool) Close() error                 { return nil }

type mockConn struct {
	pool *mockPool
}

func (c *mockConn) record(method, query string, args []any) {
	c.pool.calls = append(c.pool.calls, call{method: method, query: query, args: args})
}

func (c *mockConn) FetchAll(_ context.Context, query string, args ...any) ([]*connector.Row, error) {
	c.record("FetchAll", query, args)
	return c.pool.rows, c.pool.err
}
func (c *mockConn) FetchOne(_ context.Context, query string, args ...any) (*connector.Row, error) {
	c.record("FetchOne", query, args)
	return c.pool.row, c.pool.err
}
func (c *mockConn) FetchScalar(_ context.Context, query string, args ...any) (any, error) {
	c.record("FetchScalar", query, args)
	return c.pool.scalar, c.pool.err
}
func (c *mockConn) Select(_ context.Context, _ any, query string, args ...any) error {
	c.record("Select", query, args)
	return c.pool.err
}

func row(kv ...any) *connector.Row {
	r := connector.NewRow()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sampleTables is sorted by schema then name like the inspector output.
func sampleTables() []model.Table {
	return []model.Table{
		{
			Schema: "api", Name: "users", Kind: model.KindTable,
			Columns: []model.Column{{Name: "id", Type: "integer", Position: 1}},
		},
		{
			Schema: "public", Name: "active_users", Kind: model.KindView,
			Columns: []model.Column{{Name: "id", Type: "integer", Nullable: true, Position: 1}},
		},
		{
			Schema: "public", Name: "orders", Kind: model.KindTable,
			Description: strPtr("Customer orders"),
			Columns: []model.Column{
				{Name: "id", Type: "bigint", Position: 1},
				{Name: "total", Type: "numeric(10,2)", Nullable: true, Position: 2},
			},
		},
		{
			Schema: "public", Name: "users", Kind: model.KindTable,
			Columns: []model.Column{
				{Name: "id", Type: "integer", Position: 1},
				{Name: "email", Type: "text", Nullable: true, Position: 2},
				{Name: "password_hash", Type: "text", Position: 3},
			},
		},
	}
}

func sampleFunctions() []model.Function {
	return []model.Function{
		{
			Schema: "api", Name: "get_user_orders",
			Parameters: []model.Parameter{
				{Name: "user_email", Type: "text", Mode: model.ModeIn, Position: 1},
			},
			ReturnType: "TABLE(id integer, total numeric)",
		},
		{
			Schema: "public", Name: "count_users",
			Parameters: []model.Parameter{
				{Name: "active", Type: "boolean", Mode: model.ModeIn, Position: 1, HasDefault: true},
				{Name: "total", Type: "bigint", Mode: model.ModeOut, Position: 2},
			},
			ReturnType: "bigint",
		},
		{
			Schema: "public", Name: "create_user",
			Parameters: []model.Parameter{
				{Name: "email", Type: "text", Mode: model.ModeIn, Position: 1},
				{Name: "role", Type: "text", Mode: model.ModeIn, Position: 2, HasDefault: true},
				{Name: "active", Type: "boolean", Mode: model.ModeIn, Position: 3},
			},
			ReturnType:  "integer",
			Description: strPtr("Creates a user"),
		},
		{
			Schema: "public", Name: "list_users",
			ReturnType: "SETOF users",
		},
		{
			Schema: "public", Name: "purge",
			ReturnType: "void",
		},
	}
}
