package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/faucetdb/pgmcp/internal/catalog"
	"github.com/faucetdb/pgmcp/internal/config"
	"github.com/faucetdb/pgmcp/internal/connector"
	"github.com/faucetdb/pgmcp/internal/connector/postgres"
	"github.com/faucetdb/pgmcp/internal/expose"
)

// defaultConfigFile is read when --config is not given.
const defaultConfigFile = "pgmcp.yaml"

// overrideKeys are the settings that PGMCP_* environment variables and
// command flags may override on top of the config file.
var overrideKeys = []string{
	"database.url",
	"server.transport",
	"server.host",
	"server.port",
	"server.rate_limit",
	"logging.level",
	"logging.format",
}

// configPath returns the --config flag value, PGMCP_CONFIG, or the default
// file name, and whether the path was chosen explicitly.
func configPath(v *viper.Viper) (string, bool) {
	if cfgFile != "" {
		return cfgFile, true
	}
	if p := v.GetString("config"); p != "" {
		return p, true
	}
	return defaultConfigFile, false
}

// loadConfig reads the config file, applies environment and flag overrides
// and validates the result. A missing default file is not an error, so a
// bridge can be configured from the environment alone.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	path, explicit := configPath(v)

	cfg := config.Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if cfg, err = config.Parse(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyOverrides(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s:\n%w", path, err)
	}
	return cfg, nil
}

// applyOverrides copies every override key that is set in v onto cfg.
func applyOverrides(v *viper.Viper, cfg *config.Config) {
	for _, key := range overrideKeys {
		if !v.IsSet(key) {
			continue
		}
		switch key {
		case "database.url":
			cfg.Database = config.DatabaseConfig{
				URL:          v.GetString(key),
				PoolMinSize:  cfg.Database.PoolMinSize,
				PoolMaxSize:  cfg.Database.PoolMaxSize,
				PoolTimeout:  cfg.Database.PoolTimeout,
				QueryTimeout: cfg.Database.QueryTimeout,
				SearchPath:   cfg.Database.SearchPath,
			}
		case "server.transport":
			cfg.Server.Transport = v.GetString(key)
		case "server.host":
			cfg.Server.Host = v.GetString(key)
		case "server.port":
			cfg.Server.Port = v.GetInt(key)
		case "server.rate_limit":
			cfg.Server.RateLimit = v.GetInt(key)
		case "logging.level":
			cfg.Logging.Level = v.GetString(key)
		case "logging.format":
			cfg.Logging.Format = v.GetString(key)
		}
	}
}

// newLogger builds the process logger. Logs always go to w (stderr in
// production) because stdout may carry the stdio transport.
func newLogger(w io.Writer, cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// connectionConfig maps the database section onto the connector settings.
func connectionConfig(d config.DatabaseConfig) connector.ConnectionConfig {
	return connector.ConnectionConfig{
		DSN:            d.DSN(),
		MinConns:       d.PoolMinSize,
		MaxConns:       d.PoolMaxSize,
		AcquireTimeout: d.PoolTimeoutDuration(),
		QueryTimeout:   d.QueryTimeoutDuration(),
		SearchPath:     d.SearchPath,
	}
}

// bridge holds the wired components shared by serve and inspect.
type bridge struct {
	pool      *postgres.PostgresConnector
	inspector *catalog.Inspector
	resources *expose.ResourceExposer
	tools     *expose.ToolExposer
}

// openBridge connects to the database and builds the inspector and both
// exposers. When register is true the configured specs are resolved.
func openBridge(ctx context.Context, cfg *config.Config, logger *slog.Logger, register bool) (*bridge, error) {
	pool, err := postgres.Connect(ctx, connectionConfig(cfg.Database), logger)
	if err != nil {
		return nil, err
	}

	inspector := catalog.NewInspector(pool, logger)
	b := &bridge{
		pool:      pool,
		inspector: inspector,
		resources: expose.NewResourceExposer(inspector, pool, logger),
		tools:     expose.NewToolExposer(inspector, pool, logger),
	}
	if !register {
		return b, nil
	}

	resourceSpecs, err := cfg.Expose.ResourceSpecs()
	if err != nil {
		pool.Close()
		return nil, err
	}
	toolSpecs, err := cfg.Expose.ToolSpecs()
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := b.resources.RegisterSpecs(ctx, resourceSpecs); err != nil {
		pool.Close()
		return nil, err
	}
	if err := b.tools.RegisterSpecs(ctx, toolSpecs); err != nil {
		pool.Close()
		return nil, err
	}
	return b, nil
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
