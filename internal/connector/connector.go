package connector

import (
	"context"
	"errors"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is a single result row keyed by column name. Keys keep the column
// order of the result set, which is also the order used when the row is
// rendered as JSON.
type Row = orderedmap.OrderedMap[string, any]

// NewRow returns an empty Row.
func NewRow() *Row {
	return orderedmap.New[string, any]()
}

// Conn is a single pooled database connection. It is only valid inside the
// callback passed to Pool.WithConn.
type Conn interface {
	// FetchAll returns every row produced by the query.
	FetchAll(ctx context.Context, query string, args ...any) ([]*Row, error)
	// FetchOne returns the first row, or nil when the query yields no rows.
	FetchOne(ctx context.Context, query string, args ...any) (*Row, error)
	// FetchScalar returns the first column of the first row, or nil when
	// the query yields no rows.
	FetchScalar(ctx context.Context, query string, args ...any) (any, error)
	// Select scans every row into dest, which must be a pointer to a slice
	// of structs tagged with `db:"column"`.
	Select(ctx context.Context, dest any, query string, args ...any) error
}

// Pool hands out connections with scoped acquisition: the connection is
// released when fn returns, whatever the outcome.
type Pool interface {
	WithConn(ctx context.Context, fn func(Conn) error) error
	Ping(ctx context.Context) error
	Close() error
}

// ConnectionConfig holds database connection parameters.
type ConnectionConfig struct {
	DSN            string
	MinConns       int32
	MaxConns       int32
	AcquireTimeout time.Duration
	// QueryTimeout bounds the database work done inside WithConn. Zero
	// means unbounded.
	QueryTimeout time.Duration
	// SearchPath is applied to every new connection.
	SearchPath string
}

// SelectRequest describes a read over one table or view. Table is the
// qualified name. Where and OrderBy are raw SQL fragments and are inserted
// verbatim.
type SelectRequest struct {
	Table   string
	Columns []string
	Where   string
	OrderBy string
	Limit   int
	Offset  int
}

// CallRequest describes a positional function call with ArgCount bound
// arguments.
type CallRequest struct {
	Function string
	ArgCount int
}

// ErrAcquire is returned when no connection could be acquired from the pool
// within the acquisition timeout.
var ErrAcquire = errors.New("acquire connection")

// QueryError reports a failed query. Code carries the SQLSTATE when the
// server returned one.
type QueryError struct {
	Query string
	Code  string
	Err   error
}

func (e *QueryError) Error() string {
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }

// CleanValue converts driver values that do not render well as JSON.
// []byte becomes a string.
func CleanValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
