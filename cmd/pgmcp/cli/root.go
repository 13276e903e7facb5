package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	verbose    bool
	appVersion string // set in Execute
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.ExecuteContext(context.Background())
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pgmcp",
		Short: "Expose a PostgreSQL database over the Model Context Protocol",
		Long: `pgmcp publishes PostgreSQL tables and views as MCP resources and
functions as MCP tools.

The catalog is introspected at startup. Which objects are exposed, and how,
is controlled by the expose section of pgmcp.yaml. Settings can be overridden
with PGMCP_* environment variables, e.g. PGMCP_DATABASE_URL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pgmcp.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

// initConfig wires PGMCP_* environment variables into viper. The config
// file itself is parsed by loadConfig so that ${VAR} references in it are
// expanded.
func initConfig() {
	viper.SetEnvPrefix("PGMCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("config")
	for _, key := range overrideKeys {
		viper.BindEnv(key)
	}
}
