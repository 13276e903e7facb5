package expose

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/faucetdb/pgmcp/internal/config"
	"github.com/faucetdb/pgmcp/internal/connector"
	"github.com/faucetdb/pgmcp/internal/connector/postgres"
	"github.com/faucetdb/pgmcp/internal/model"
	"github.com/faucetdb/pgmcp/internal/typemap"
)

// URIScheme is the scheme of table resource URIs.
const URIScheme = "table"

// ResourceBinding pairs an indexed table or view with the spec that
// exposed it.
type ResourceBinding struct {
	Table model.Table
	Spec  config.ResourceSpec
}

// ResourceInfo is the listing entry of one exposed table or view.
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MIMEType    string `json:"mimeType"`
}

// ReadRequest holds the inputs of a resource read. Nil fields were not
// supplied by the caller.
type ReadRequest struct {
	Schema  string
	Table   string
	Limit   *int
	Offset  *int
	Where   *string
	OrderBy *string
}

// ReadResult is the envelope returned by Read.
type ReadResult struct {
	Data     []*connector.Row `json:"data"`
	Metadata ReadMetadata     `json:"metadata"`
}

// ReadMetadata describes the rows of a ReadResult.
type ReadMetadata struct {
	Schema    *typemap.Schema `json:"schema"`
	TotalRows int             `json:"total_rows"`
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
}

// ResourceExposer resolves resource specs against the catalog and serves
// reads for every indexed table or view. The index is built by
// RegisterSpecs before any Read and is not modified afterwards.
type ResourceExposer struct {
	catalog Catalog
	pool    connector.Pool
	logger  *slog.Logger
	index   *orderedmap.OrderedMap[string, ResourceBinding]
}

// NewResourceExposer creates an exposer with an empty index.
func NewResourceExposer(catalog Catalog, pool connector.Pool, logger *slog.Logger) *ResourceExposer {
	return &ResourceExposer{
		catalog: catalog,
		pool:    pool,
		logger:  logger,
		index:   orderedmap.New[string, ResourceBinding](),
	}
}

// RegisterSpecs resolves specs in order and indexes every match by
// qualified name. When several specs match the same object the last one
// wins; the object keeps the listing position of its first match.
func (e *ResourceExposer) RegisterSpecs(ctx context.Context, specs []config.ResourceSpec) error {
	for _, spec := range specs {
		tables, err := e.resolve(ctx, spec)
		if err != nil {
			return fmt.Errorf("resolve resource %s: %w", spec.Selector(), err)
		}
		for _, t := range tables {
			if _, replaced := e.index.Set(t.QualifiedName(), ResourceBinding{Table: t, Spec: spec}); replaced {
				e.logger.Debug("resource spec overrides earlier match", "resource", t.QualifiedName(), "spec", spec.Selector())
			}
		}
		e.logger.Debug("resource spec resolved", "spec", spec.Selector(), "matches", len(tables))
	}
	e.logger.Info("resources registered", "count", e.index.Len())
	return nil
}

func (e *ResourceExposer) resolve(ctx context.Context, spec config.ResourceSpec) ([]model.Table, error) {
	switch s := spec.(type) {
	case config.PatternResource:
		return e.catalog.FilterTables(ctx, []string{s.Pattern})
	case config.TableResource:
		return e.exact(ctx, s.Name, model.KindTable)
	case config.ViewResource:
		return e.exact(ctx, s.Name, model.KindView)
	default:
		return nil, fmt.Errorf("unsupported resource spec %T", spec)
	}
}

func (e *ResourceExposer) exact(ctx context.Context, name string, kind model.ObjectKind) ([]model.Table, error) {
	all, err := e.catalog.Tables(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []model.Table
	for _, t := range all {
		if t.Kind == kind && (t.Name == name || t.QualifiedName() == name) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Lookup returns the binding of schema.table.
func (e *ResourceExposer) Lookup(schema, table string) (ResourceBinding, bool) {
	return e.index.Get(schema + "." + table)
}

// Read runs the generic read for one indexed table or view. The where and
// order_by fragments, from the caller or the spec, are inserted into the
// query verbatim. Query failures are returned as errors.
func (e *ResourceExposer) Read(ctx context.Context, req ReadRequest) (*ReadResult, error) {
	name := req.Schema + "." + req.Table
	b, ok := e.index.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: table %s", ErrNotFound, name)
	}
	opts := b.Spec.Options()

	limit := opts.Limit
	if limit == 0 {
		limit = config.DefaultResourceLimit
	}
	if req.Limit != nil {
		limit = *req.Limit
	}
	offset := 0
	if req.Offset != nil {
		offset = *req.Offset
	}
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidArgument)
	}

	where := opts.Where
	if req.Where != nil {
		where = *req.Where
	}
	orderBy := opts.OrderBy
	if req.OrderBy != nil {
		orderBy = *req.OrderBy
	}

	query, err := postgres.BuildSelect(connector.SelectRequest{
		Table:   b.Table.QualifiedName(),
		Columns: projection(b.Table, opts),
		Where:   where,
		OrderBy: orderBy,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var rows []*connector.Row
	err = e.pool.WithConn(ctx, func(conn connector.Conn) error {
		var err error
		rows, err = conn.FetchAll(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if rows == nil {
		rows = []*connector.Row{}
	}

	e.logger.Debug("resource read", "resource", name, "rows", len(rows), "limit", limit, "offset", offset)

	return &ReadResult{
		Data: rows,
		Metadata: ReadMetadata{
			Schema:    typemap.TableSchema(b.Table.Columns),
			TotalRows: len(rows),
			Limit:     limit,
			Offset:    offset,
		},
	}, nil
}

// projection returns the selected column names in ordinal order: the
// allow-list when set, else every column, minus the excluded ones.
func projection(t model.Table, opts config.ResourceOptions) []string {
	var cols []string
	for _, c := range t.Columns {
		if len(opts.Columns) > 0 && !slices.Contains(opts.Columns, c.Name) {
			continue
		}
		if slices.Contains(opts.Exclude, c.Name) {
			continue
		}
		cols = append(cols, c.Name)
	}
	return cols
}

// Resources lists the indexed tables and views in registration order.
func (e *ResourceExposer) Resources() []ResourceInfo {
	out := make([]ResourceInfo, 0, e.index.Len())
	for pair := e.index.Oldest(); pair != nil; pair = pair.Next() {
		b := pair.Value
		out = append(out, ResourceInfo{
			URI:         ResourceURI(b.Table),
			Name:        pair.Key,
			Description: resourceDescription(b),
			MIMEType:    "application/json",
		})
	}
	return out
}

func resourceDescription(b ResourceBinding) string {
	if d := b.Spec.Options().Description; d != "" {
		return d
	}
	if b.Table.Description != nil && *b.Table.Description != "" {
		return *b.Table.Description
	}
	return fmt.Sprintf("PostgreSQL %s %s", b.Table.Kind, b.Table.QualifiedName())
}

// ResourceURI returns table://schema/name for t.
func ResourceURI(t model.Table) string {
	return URIScheme + "://" + url.PathEscape(t.Schema) + "/" + url.PathEscape(t.Name)
}

// ParseURI parses table://schema/name with optional limit, offset, where
// and order_by query parameters. A parameter that is present but empty
// still counts as supplied. Both segments are percent-escaped; the schema
// is not a valid URI host, so the authority is split by hand.
func ParseURI(uri string) (ReadRequest, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme != URIScheme {
		return ReadRequest{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidArgument, scheme)
	}
	rest, _, _ = strings.Cut(rest, "#")
	path, rawQuery, _ := strings.Cut(rest, "?")

	rawSchema, rawTable, ok := strings.Cut(path, "/")
	if !ok || rawSchema == "" || rawTable == "" || strings.Contains(rawTable, "/") {
		return ReadRequest{}, fmt.Errorf("%w: expected %s://{schema}/{table}, got %q", ErrInvalidArgument, URIScheme, uri)
	}
	schema, err := url.PathUnescape(rawSchema)
	if err != nil {
		return ReadRequest{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	table, err := url.PathUnescape(rawTable)
	if err != nil {
		return ReadRequest{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ReadRequest{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	req := ReadRequest{Schema: schema, Table: table}
	if req.Limit, err = intParam(q, "limit"); err != nil {
		return ReadRequest{}, err
	}
	if req.Offset, err = intParam(q, "offset"); err != nil {
		return ReadRequest{}, err
	}
	if q.Has("where") {
		w := q.Get("where")
		req.Where = &w
	}
	if q.Has("order_by") {
		o := q.Get("order_by")
		req.OrderBy = &o
	}
	return req, nil
}

func intParam(q url.Values, key string) (*int, error) {
	if !q.Has(key) {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidArgument, key, q.Get(key))
	}
	return &n, nil
}
