package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/pgmcp/internal/connector"
)

// pgConn is the connector.Conn handed to WithConn callbacks. Every query
// runs with the work context captured at acquisition, so per-call contexts
// only contribute values, never cancellation.
type pgConn struct {
	conn *sqlx.Conn
	ctx  context.Context
}

var _ connector.Conn = (*pgConn)(nil)

func (c *pgConn) FetchAll(_ context.Context, query string, args ...any) ([]*connector.Row, error) {
	rows, err := c.conn.QueryxContext(c.ctx, query, args...)
	if err != nil {
		return nil, queryError(query, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, queryError(query, err)
	}

	var results []*connector.Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, queryError(query, err)
		}
		results = append(results, toRow(cols, values))
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(query, err)
	}
	if results == nil {
		results = []*connector.Row{}
	}
	return results, nil
}

func (c *pgConn) FetchOne(ctx context.Context, query string, args ...any) (*connector.Row, error) {
	rows, err := c.FetchAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// FetchScalar returns the first column of the first row, or nil when the
// query yields no rows. Extra columns are ignored.
func (c *pgConn) FetchScalar(_ context.Context, query string, args ...any) (any, error) {
	rows, err := c.conn.QueryxContext(c.ctx, query, args...)
	if err != nil {
		return nil, queryError(query, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, queryError(query, err)
		}
		return nil, nil
	}
	values, err := rows.SliceScan()
	if err != nil {
		return nil, queryError(query, err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return connector.CleanValue(values[0]), nil
}

func (c *pgConn) Select(_ context.Context, dest any, query string, args ...any) error {
	if err := c.conn.SelectContext(c.ctx, dest, query, args...); err != nil {
		return queryError(query, err)
	}
	return nil
}

func toRow(cols []string, values []any) *connector.Row {
	row := connector.NewRow()
	for i, col := range cols {
		row.Set(col, connector.CleanValue(values[i]))
	}
	return row
}
