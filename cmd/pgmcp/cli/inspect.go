package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faucetdb/pgmcp/internal/expose"
	"github.com/faucetdb/pgmcp/internal/model"
	"github.com/faucetdb/pgmcp/internal/typemap"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the database catalog and what the bridge exposes",
	}

	cmd.AddCommand(newInspectTablesCmd())
	cmd.AddCommand(newInspectFunctionsCmd())
	cmd.AddCommand(newInspectExposedCmd())

	return cmd
}

// ---------- inspect tables ----------

// tableView is the JSON form of a table with its mapped row schema.
type tableView struct {
	model.Table
	RowSchema *typemap.Schema `json:"row_schema"`
}

func newInspectTablesCmd() *cobra.Command {
	var (
		schema     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables and views",
		Example: `  pgmcp inspect tables
  pgmcp inspect tables --schema '^(public|api)$' --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(viper.GetViper())
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Logging, verbose)

			b, err := openBridge(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer b.pool.Close()

			tables, err := b.inspector.Tables(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("list tables: %w", err)
			}
			return printTables(cmd.OutOrStdout(), tables, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Regular expression the schema name must match")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON with mapped schemas")

	return cmd
}

func printTables(w io.Writer, tables []model.Table, jsonOutput bool) error {
	if jsonOutput {
		views := make([]tableView, len(tables))
		for i, t := range tables {
			views[i] = tableView{Table: t, RowSchema: typemap.TableSchema(t.Columns)}
		}
		return writeJSON(w, views)
	}

	if len(tables) == 0 {
		fmt.Fprintln(w, "No tables found.")
		return nil
	}

	fmt.Fprintf(w, "%-40s %-6s %s\n", "NAME", "KIND", "COLUMNS")
	fmt.Fprintf(w, "%-40s %-6s %s\n", "----", "----", "-------")
	for _, t := range tables {
		fmt.Fprintf(w, "%-40s %-6s %s\n", t.QualifiedName(), t.Kind, strings.Join(t.ColumnNames(), ", "))
	}
	return nil
}

// ---------- inspect functions ----------

// functionView is the JSON form of a function with its mapped schemas.
type functionView struct {
	model.Function
	InputSchema  *typemap.Schema `json:"input_schema"`
	OutputSchema *typemap.Schema `json:"output_schema"`
}

func newInspectFunctionsCmd() *cobra.Command {
	var (
		schema     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List functions and aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(viper.GetViper())
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Logging, verbose)

			b, err := openBridge(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer b.pool.Close()

			fns, err := b.inspector.Functions(cmd.Context(), schema)
			if err != nil {
				return fmt.Errorf("list functions: %w", err)
			}
			return printFunctions(cmd.OutOrStdout(), fns, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&schema, "schema", "", "Regular expression the schema name must match")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON with mapped schemas")

	return cmd
}

func printFunctions(w io.Writer, fns []model.Function, jsonOutput bool) error {
	if jsonOutput {
		views := make([]functionView, len(fns))
		for i, fn := range fns {
			views[i] = functionView{
				Function:     fn,
				InputSchema:  typemap.FunctionParamsSchema(fn.Parameters),
				OutputSchema: typemap.FunctionResultSchema(fn.ReturnType, fn.OutputParameters()),
			}
		}
		return writeJSON(w, views)
	}

	if len(fns) == 0 {
		fmt.Fprintln(w, "No functions found.")
		return nil
	}

	fmt.Fprintf(w, "%-40s %s\n", "SIGNATURE", "RETURNS")
	fmt.Fprintf(w, "%-40s %s\n", "---------", "-------")
	for _, fn := range fns {
		args := make([]string, len(fn.Parameters))
		for i, p := range fn.Parameters {
			args[i] = p.Name + " " + p.Type
			if p.Mode != model.ModeIn {
				args[i] = string(p.Mode) + " " + args[i]
			}
		}
		sig := fmt.Sprintf("%s(%s)", fn.QualifiedName(), strings.Join(args, ", "))
		fmt.Fprintf(w, "%-40s %s\n", sig, fn.ReturnType)
	}
	return nil
}

// ---------- inspect exposed ----------

func newInspectExposedCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "exposed",
		Short: "Resolve the expose section and list the resulting resources and tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(viper.GetViper())
			if err != nil {
				return err
			}
			logger := newLogger(os.Stderr, cfg.Logging, verbose)

			b, err := openBridge(cmd.Context(), cfg, logger, true)
			if err != nil {
				return err
			}
			defer b.pool.Close()

			return printExposed(cmd.OutOrStdout(), b.resources.Resources(), b.tools.Tools(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON with tool schemas")

	return cmd
}

func printExposed(w io.Writer, resources []expose.ResourceInfo, tools []expose.ToolInfo, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(w, map[string]any{
			"resources": resources,
			"tools":     tools,
		})
	}

	fmt.Fprintf(w, "Resources (%d):\n", len(resources))
	for _, r := range resources {
		fmt.Fprintf(w, "  %-40s %s\n", r.URI, r.Description)
	}
	fmt.Fprintf(w, "Tools (%d):\n", len(tools))
	for _, t := range tools {
		fmt.Fprintf(w, "  %-40s %s\n", t.Name, t.Description)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
