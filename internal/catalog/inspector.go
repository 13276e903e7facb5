// Package catalog discovers tables, views and functions in a PostgreSQL
// database and turns them into immutable descriptors.
package catalog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/faucetdb/pgmcp/internal/connector"
	"github.com/faucetdb/pgmcp/internal/model"
)

// Inspector reads the database catalog and memoizes the result per schema
// filter. A filter is a regular expression matched against schema names;
// the empty filter selects every user schema.
//
// Cached entries are never evicted or refreshed. Catalog changes made after
// the first read of a filter are not visible for the lifetime of the
// Inspector. Returned slices are shared and must not be modified.
type Inspector struct {
	pool   connector.Pool
	logger *slog.Logger

	mu        sync.RWMutex
	tables    map[string][]model.Table
	functions map[string][]model.Function
	loads     singleflight.Group
}

// NewInspector creates an Inspector reading through pool.
func NewInspector(pool connector.Pool, logger *slog.Logger) *Inspector {
	return &Inspector{
		pool:      pool,
		logger:    logger,
		tables:    make(map[string][]model.Table),
		functions: make(map[string][]model.Function),
	}
}

// Tables returns the tables and views of the schemas matching filter,
// sorted by schema then name.
func (i *Inspector) Tables(ctx context.Context, filter string) ([]model.Table, error) {
	return cached(i, i.tables, "tables:"+filter, filter, func() ([]model.Table, error) {
		return i.loadTables(ctx, filter)
	})
}

// Functions returns the functions and aggregates of the schemas matching
// filter, sorted by schema then name.
func (i *Inspector) Functions(ctx context.Context, filter string) ([]model.Function, error) {
	return cached(i, i.functions, "functions:"+filter, filter, func() ([]model.Function, error) {
		return i.loadFunctions(ctx, filter)
	})
}

// FilterTables returns every table or view whose qualified name matches any
// of patterns.
func (i *Inspector) FilterTables(ctx context.Context, patterns []string) ([]model.Table, error) {
	all, err := i.Tables(ctx, "")
	if err != nil {
		return nil, err
	}
	return Filter(all, patterns)
}

// FilterFunctions returns every function whose qualified name matches any
// of patterns.
func (i *Inspector) FilterFunctions(ctx context.Context, patterns []string) ([]model.Function, error) {
	all, err := i.Functions(ctx, "")
	if err != nil {
		return nil, err
	}
	return Filter(all, patterns)
}

// cached returns cache[filter], loading it at most once per key. Concurrent
// first reads share one load; the first stored value wins.
func cached[T any](i *Inspector, cache map[string][]T, flightKey, filter string, load func() ([]T, error)) ([]T, error) {
	i.mu.RLock()
	v, ok := cache[filter]
	i.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := i.loads.Do(flightKey, func() (any, error) {
		i.mu.RLock()
		v, ok := cache[filter]
		i.mu.RUnlock()
		if ok {
			return v, nil
		}

		loaded, err := load()
		if err != nil {
			return nil, err
		}
		i.mu.Lock()
		defer i.mu.Unlock()
		if existing, ok := cache[filter]; ok {
			return existing, nil
		}
		cache[filter] = loaded
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]T), nil
}

func (i *Inspector) loadTables(ctx context.Context, filter string) ([]model.Table, error) {
	var rows []tableRow
	err := i.pool.WithConn(ctx, func(conn connector.Conn) error {
		return conn.Select(ctx, &rows, tablesQuery, filterArg(filter))
	})
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}

	tables := make([]model.Table, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("introspect tables: %w", err)
		}
		tables = append(tables, t)
	}
	slices.SortStableFunc(tables, func(a, b model.Table) int {
		return cmp.Or(cmp.Compare(a.Schema, b.Schema), cmp.Compare(a.Name, b.Name))
	})

	i.logger.Debug("catalog tables loaded", "filter", filter, "count", len(tables))
	return tables, nil
}

func (i *Inspector) loadFunctions(ctx context.Context, filter string) ([]model.Function, error) {
	var rows []functionRow
	err := i.pool.WithConn(ctx, func(conn connector.Conn) error {
		return conn.Select(ctx, &rows, functionsQuery, filterArg(filter))
	})
	if err != nil {
		return nil, fmt.Errorf("introspect functions: %w", err)
	}

	functions := make([]model.Function, 0, len(rows))
	for _, r := range rows {
		functions = append(functions, r.toModel())
	}
	slices.SortStableFunc(functions, func(a, b model.Function) int {
		return cmp.Or(cmp.Compare(a.Schema, b.Schema), cmp.Compare(a.Name, b.Name))
	})

	i.logger.Debug("catalog functions loaded", "filter", filter, "count", len(functions))
	return functions, nil
}
