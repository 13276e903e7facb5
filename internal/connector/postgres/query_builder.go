package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/faucetdb/pgmcp/internal/connector"
)

// BuildSelect constructs the read query for a table or view. Identifiers are
// used as discovered in the catalog. The where and order fragments are
// concatenated as given; only LIMIT and OFFSET are rendered from integers.
func BuildSelect(req connector.SelectRequest) (string, error) {
	if req.Table == "" {
		return "", fmt.Errorf("table name is required")
	}
	if len(req.Columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(req.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(req.Table)

	if req.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(req.Where)
	}

	if req.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(req.OrderBy)
	}

	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(req.Limit))
	b.WriteString(" OFFSET ")
	b.WriteString(strconv.Itoa(req.Offset))

	return b.String(), nil
}

// BuildCall constructs a SELECT * FROM fn($1, ..., $n) call with one
// placeholder per bound argument.
func BuildCall(req connector.CallRequest) (string, error) {
	if req.Function == "" {
		return "", fmt.Errorf("function name is required")
	}
	if req.ArgCount < 0 {
		return "", fmt.Errorf("negative argument count %d", req.ArgCount)
	}

	placeholders := make([]string, req.ArgCount)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf("SELECT * FROM %s(%s)", req.Function, strings.Join(placeholders, ", ")), nil
}
