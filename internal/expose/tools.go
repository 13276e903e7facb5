package expose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/faucetdb/pgmcp/internal/config"
	"github.com/faucetdb/pgmcp/internal/connector"
	"github.com/faucetdb/pgmcp/internal/connector/postgres"
	"github.com/faucetdb/pgmcp/internal/model"
	"github.com/faucetdb/pgmcp/internal/typemap"
)

// DangerousPrefix marks the description of tools exposed as dangerous.
const DangerousPrefix = "⚠️ DANGEROUS: "

// ToolBinding is one registered tool.
type ToolBinding struct {
	Name         string
	Function     model.Function
	Spec         config.ToolSpec
	Description  string
	InputSchema  *typemap.Schema
	OutputSchema *typemap.Schema
}

// ToolInfo is the listing entry of one exposed function.
type ToolInfo struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	InputSchema  *typemap.Schema `json:"inputSchema"`
	OutputSchema *typemap.Schema `json:"outputSchema"`
	Dangerous    bool            `json:"dangerous"`
}

// Params holds staged call arguments in call order.
type Params = orderedmap.OrderedMap[string, any]

// InvokeResult is the envelope returned by Invoke. Execution failures are
// reported here with Success false rather than as an error.
type InvokeResult struct {
	Success    bool
	Result     any
	Error      string
	Function   string
	Parameters *Params
}

// MarshalJSON renders success results as {success, result, function,
// parameters} and failures as {success, error, function, parameters}.
func (r *InvokeResult) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(struct {
			Success    bool    `json:"success"`
			Result     any     `json:"result"`
			Function   string  `json:"function"`
			Parameters *Params `json:"parameters"`
		}{true, r.Result, r.Function, r.Parameters})
	}
	return json.Marshal(struct {
		Success    bool    `json:"success"`
		Error      string  `json:"error"`
		Function   string  `json:"function"`
		Parameters *Params `json:"parameters"`
	}{false, r.Error, r.Function, r.Parameters})
}

// ToolExposer resolves tool specs against the catalog and invokes the bound
// functions. Tools are registered by RegisterSpecs before any Invoke and
// are not modified afterwards.
type ToolExposer struct {
	catalog Catalog
	pool    connector.Pool
	logger  *slog.Logger
	tools   *orderedmap.OrderedMap[string, *ToolBinding]
}

// NewToolExposer creates an exposer with no tools.
func NewToolExposer(catalog Catalog, pool connector.Pool, logger *slog.Logger) *ToolExposer {
	return &ToolExposer{
		catalog: catalog,
		pool:    pool,
		logger:  logger,
		tools:   orderedmap.New[string, *ToolBinding](),
	}
}

// ToolName derives the tool identifier of a function: its qualified name
// with dots replaced by underscores.
func ToolName(fn model.Function) string {
	return strings.ReplaceAll(fn.QualifiedName(), ".", "_")
}

// RegisterSpecs resolves specs in order and registers one tool per matched
// function. A function already registered under the same tool name is
// skipped, so the first matching spec wins.
func (e *ToolExposer) RegisterSpecs(ctx context.Context, specs []config.ToolSpec) error {
	for _, spec := range specs {
		fns, err := e.resolve(ctx, spec)
		if err != nil {
			return fmt.Errorf("resolve tool %s: %w", spec.Selector(), err)
		}
		for _, fn := range fns {
			name := ToolName(fn)
			if _, exists := e.tools.Get(name); exists {
				e.logger.Debug("duplicate tool skipped", "tool", name, "spec", spec.Selector())
				continue
			}
			e.tools.Set(name, newToolBinding(name, fn, spec))
		}
		e.logger.Debug("tool spec resolved", "spec", spec.Selector(), "matches", len(fns))
	}
	e.logger.Info("tools registered", "count", e.tools.Len())
	return nil
}

func (e *ToolExposer) resolve(ctx context.Context, spec config.ToolSpec) ([]model.Function, error) {
	switch s := spec.(type) {
	case config.PatternTool:
		return e.catalog.FilterFunctions(ctx, []string{s.Pattern})
	case config.FunctionTool:
		all, err := e.catalog.Functions(ctx, "")
		if err != nil {
			return nil, err
		}
		var out []model.Function
		for _, fn := range all {
			if fn.Name == s.Name || fn.QualifiedName() == s.Name {
				out = append(out, fn)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported tool spec %T", spec)
	}
}

func newToolBinding(name string, fn model.Function, spec config.ToolSpec) *ToolBinding {
	opts := spec.Options()

	input := typemap.FunctionParamsSchema(fn.Parameters)
	for param, desc := range opts.ParamDescriptions {
		if prop, ok := input.Property(param); ok {
			prop.Description = desc
		}
	}

	description := opts.Description
	if description == "" && fn.Description != nil {
		description = *fn.Description
	}
	if description == "" {
		description = "Execute PostgreSQL function " + fn.QualifiedName()
	}
	if opts.Dangerous {
		description = DangerousPrefix + description
	}

	return &ToolBinding{
		Name:         name,
		Function:     fn,
		Spec:         spec,
		Description:  description,
		InputSchema:  input,
		OutputSchema: typemap.FunctionResultSchema(fn.ReturnType, fn.OutputParameters()),
	}
}

// Lookup returns the binding registered under name.
func (e *ToolExposer) Lookup(name string) (*ToolBinding, bool) {
	return e.tools.Get(name)
}

// Invoke calls the function bound to toolName with args. Input parameters
// are bound positionally in declaration order. A parameter that is absent
// but has a default is skipped, which shifts every later argument one
// position left. A missing parameter without a default is an error; any
// failure while executing the call is reported in the result instead.
func (e *ToolExposer) Invoke(ctx context.Context, toolName string, args map[string]any) (*InvokeResult, error) {
	b, ok := e.tools.Get(toolName)
	if !ok {
		return nil, fmt.Errorf("%w: tool %s", ErrNotFound, toolName)
	}
	fn := b.Function

	staged := orderedmap.New[string, any]()
	var values []any
	for _, p := range fn.Parameters {
		if !p.IsInput() {
			continue
		}
		v, supplied := args[p.Name]
		switch {
		case supplied:
			staged.Set(p.Name, v)
			values = append(values, v)
		case p.HasDefault:
			continue
		default:
			return nil, fmt.Errorf("%w: %s", ErrMissingParameter, p.Name)
		}
	}

	res := &InvokeResult{Function: fn.QualifiedName(), Parameters: staged}

	result, err := e.execute(ctx, fn, values)
	if err != nil {
		e.logger.Warn("tool execution failed", "tool", toolName, "error", err)
		res.Error = err.Error()
		return res, nil
	}

	e.logger.Debug("tool invoked", "tool", toolName, "args", len(values))
	res.Success = true
	res.Result = result
	return res, nil
}

func (e *ToolExposer) execute(ctx context.Context, fn model.Function, values []any) (any, error) {
	query, err := postgres.BuildCall(connector.CallRequest{
		Function: fn.QualifiedName(),
		ArgCount: len(values),
	})
	if err != nil {
		return nil, err
	}

	var result any
	err = e.pool.WithConn(ctx, func(conn connector.Conn) error {
		switch {
		case strings.HasPrefix(fn.ReturnType, "SETOF") || strings.HasPrefix(fn.ReturnType, "TABLE"):
			rows, err := conn.FetchAll(ctx, query, values...)
			if err != nil {
				return err
			}
			if rows == nil {
				rows = []*connector.Row{}
			}
			result = rows
		case len(fn.OutputParameters()) > 0:
			row, err := conn.FetchOne(ctx, query, values...)
			if err != nil {
				return err
			}
			if row != nil {
				result = row
			}
		default:
			v, err := conn.FetchScalar(ctx, query, values...)
			if err != nil {
				return err
			}
			result = v
		}
		return nil
	})
	return result, err
}

// Tools lists the registered tools in registration order.
func (e *ToolExposer) Tools() []ToolInfo {
	out := make([]ToolInfo, 0, e.tools.Len())
	for pair := e.tools.Oldest(); pair != nil; pair = pair.Next() {
		b := pair.Value
		out = append(out, ToolInfo{
			Name:         b.Name,
			Description:  b.Description,
			InputSchema:  b.InputSchema,
			OutputSchema: b.OutputSchema,
			Dangerous:    b.Spec.Options().Dangerous,
		})
	}
	return out
}
