// Package expose binds exposure specs to catalog objects and serves the
// generic read and invoke operations behind MCP resources and tools.
package expose

import (
	"context"
	"errors"

	"github.com/faucetdb/pgmcp/internal/model"
)

var (
	// ErrNotFound is returned when a resource or tool is not in the index.
	ErrNotFound = errors.New("not found")
	// ErrMissingParameter is returned when a tool call omits a required
	// parameter that has no default.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrInvalidArgument is returned for malformed caller input such as a
	// non-integer limit.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Catalog is the part of catalog.Inspector the exposers depend on.
type Catalog interface {
	Tables(ctx context.Context, filter string) ([]model.Table, error)
	Functions(ctx context.Context, filter string) ([]model.Function, error)
	FilterTables(ctx context.Context, patterns []string) ([]model.Table, error)
	FilterFunctions(ctx context.Context, patterns []string) ([]model.Function, error)
}
