package config

import (
	"fmt"
	"slices"
)

// DefaultResourceLimit is the row limit of a resource read when neither the
// exposure entry nor the caller sets one.
const DefaultResourceLimit = 1000

// ResourceSpec selects tables or views to expose. It is one of
// PatternResource, TableResource or ViewResource.
type ResourceSpec interface {
	Options() ResourceOptions
	Selector() string
	isResourceSpec()
}

// ResourceOptions are the settings shared by every resource spec.
type ResourceOptions struct {
	Description string
	// Columns is an allow-list. Empty means every column.
	Columns []string
	Exclude []string
	Where   string
	OrderBy string
	Limit   int
}

// Options returns the shared settings.
func (o ResourceOptions) Options() ResourceOptions { return o }

// PatternResource selects every table and view whose qualified name matches
// a wildcard pattern.
type PatternResource struct {
	Pattern string
	ResourceOptions
}

// TableResource selects base tables by name or qualified name.
type TableResource struct {
	Name string
	ResourceOptions
}

// ViewResource selects views by name or qualified name.
type ViewResource struct {
	Name string
	ResourceOptions
}

func (s PatternResource) Selector() string { return "pattern " + s.Pattern }
func (s TableResource) Selector() string   { return "table " + s.Name }
func (s ViewResource) Selector() string    { return "view " + s.Name }

func (PatternResource) isResourceSpec() {}
func (TableResource) isResourceSpec()   {}
func (ViewResource) isResourceSpec()    {}

// ToolSpec selects functions to expose. It is one of PatternTool or
// FunctionTool.
type ToolSpec interface {
	Options() ToolOptions
	Selector() string
	isToolSpec()
}

// ToolOptions are the settings shared by every tool spec.
type ToolOptions struct {
	Description string
	Dangerous   bool
	// ParamDescriptions overrides the documentation of input parameters by
	// name.
	ParamDescriptions map[string]string
}

// Options returns the shared settings.
func (o ToolOptions) Options() ToolOptions { return o }

// PatternTool selects every function whose qualified name matches a
// wildcard pattern.
type PatternTool struct {
	Pattern string
	ToolOptions
}

// FunctionTool selects functions by name or qualified name.
type FunctionTool struct {
	Name string
	ToolOptions
}

func (s PatternTool) Selector() string  { return "pattern " + s.Pattern }
func (s FunctionTool) Selector() string { return "function " + s.Name }

func (PatternTool) isToolSpec()  {}
func (FunctionTool) isToolSpec() {}

// Spec converts the entry into its tagged variant. Exactly one of pattern,
// table and view must be set.
func (r ResourceYAML) Spec() (ResourceSpec, error) {
	set := 0
	for _, v := range []string{r.Pattern, r.Table, r.View} {
		if v != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, fmt.Errorf("%w: one of pattern, table or view is required", ErrConfiguration)
	case r.Pattern != "" && set > 1:
		return nil, fmt.Errorf("%w: cannot specify both pattern and a specific table or view", ErrConfiguration)
	case set > 1:
		return nil, fmt.Errorf("%w: cannot specify both table and view", ErrConfiguration)
	}

	limit := DefaultResourceLimit
	if r.Limit != nil {
		if *r.Limit < 1 {
			return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrConfiguration, *r.Limit)
		}
		limit = *r.Limit
	}

	opts := ResourceOptions{
		Description: r.Description,
		Columns:     slices.Clone(r.Columns),
		Exclude:     slices.Clone(r.Exclude),
		Where:       r.Where,
		OrderBy:     r.OrderBy,
		Limit:       limit,
	}
	switch {
	case r.Pattern != "":
		return PatternResource{Pattern: r.Pattern, ResourceOptions: opts}, nil
	case r.Table != "":
		return TableResource{Name: r.Table, ResourceOptions: opts}, nil
	default:
		return ViewResource{Name: r.View, ResourceOptions: opts}, nil
	}
}

// Spec converts the entry into its tagged variant. Exactly one of pattern
// and function must be set.
func (t ToolYAML) Spec() (ToolSpec, error) {
	switch {
	case t.Pattern != "" && t.Function != "":
		return nil, fmt.Errorf("%w: cannot specify both pattern and a specific function", ErrConfiguration)
	case t.Pattern == "" && t.Function == "":
		return nil, fmt.Errorf("%w: one of pattern or function is required", ErrConfiguration)
	}

	opts := ToolOptions{
		Description: t.Description,
		Dangerous:   t.Dangerous,
	}
	for name, p := range t.Params {
		if p.Description == "" {
			continue
		}
		if opts.ParamDescriptions == nil {
			opts.ParamDescriptions = make(map[string]string)
		}
		opts.ParamDescriptions[name] = p.Description
	}

	if t.Pattern != "" {
		return PatternTool{Pattern: t.Pattern, ToolOptions: opts}, nil
	}
	return FunctionTool{Name: t.Function, ToolOptions: opts}, nil
}

// ResourceSpecs converts every resource entry, in file order.
func (e ExposeConfig) ResourceSpecs() ([]ResourceSpec, error) {
	specs := make([]ResourceSpec, 0, len(e.Resources))
	for i, r := range e.Resources {
		s, err := r.Spec()
		if err != nil {
			return nil, fmt.Errorf("expose.resources[%d]: %w", i, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// ToolSpecs converts every tool entry, in file order.
func (e ExposeConfig) ToolSpecs() ([]ToolSpec, error) {
	specs := make([]ToolSpec, 0, len(e.Tools))
	for i, t := range e.Tools {
		s, err := t.Spec()
		if err != nil {
			return nil, fmt.Errorf("expose.tools[%d]: %w", i, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}
