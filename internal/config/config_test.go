package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sampleConfig = `
database:
  url: postgres://app:${PGMCP_TEST_PASSWORD}@db:5432/app
  pool_max_size: 8
  query_timeout: 5s
server:
  name: Sales DB
  transport: http
  port: 9000
expose:
  resources:
    - pattern: "public.*"
      exclude: [password_hash]
    - table: users
      columns: [id, email]
      where: "active = true"
      order_by: id
      limit: 50
    - view: active_users
  tools:
    - pattern: "api.*"
    - function: public.purge_sessions
      dangerous: true
      description: Deletes expired sessions
      params:
        older_than:
          description: Age threshold
logging:
  level: debug
  format: json
`

func TestLoad(t *testing.T) {
	t.Setenv("PGMCP_TEST_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "pgmcp.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.Database.DSN(); got != "postgres://app:s3cret@db:5432/app" {
		t.Errorf("DSN = %q", got)
	}
	// Unset keys keep their defaults.
	if cfg.Database.PoolMinSize != 5 || cfg.Database.PoolMaxSize != 8 {
		t.Errorf("pool sizes = %d/%d, want 5/8", cfg.Database.PoolMinSize, cfg.Database.PoolMaxSize)
	}
	if cfg.Database.SearchPath != "public" {
		t.Errorf("search_path = %q", cfg.Database.SearchPath)
	}
	if cfg.Database.PoolTimeoutDuration() != 30*time.Second {
		t.Errorf("pool timeout = %v", cfg.Database.PoolTimeoutDuration())
	}
	if cfg.Database.QueryTimeoutDuration() != 5*time.Second {
		t.Errorf("query timeout = %v", cfg.Database.QueryTimeoutDuration())
	}
	if cfg.Server.Name != "Sales DB" || cfg.Server.Version != "1.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %+v", cfg.Server)
	}

	resources, err := cfg.Expose.ResourceSpecs()
	if err != nil {
		t.Fatalf("ResourceSpecs: %v", err)
	}
	wantResources := []ResourceSpec{
		PatternResource{Pattern: "public.*", ResourceOptions: ResourceOptions{Exclude: []string{"password_hash"}, Limit: 1000}},
		TableResource{Name: "users", ResourceOptions: ResourceOptions{Columns: []string{"id", "email"}, Where: "active = true", OrderBy: "id", Limit: 50}},
		ViewResource{Name: "active_users", ResourceOptions: ResourceOptions{Limit: 1000}},
	}
	if diff := cmp.Diff(wantResources, resources); diff != "" {
		t.Errorf("resource specs (-want +got):\n%s", diff)
	}

	tools, err := cfg.Expose.ToolSpecs()
	if err != nil {
		t.Fatalf("ToolSpecs: %v", err)
	}
	wantTools := []ToolSpec{
		PatternTool{Pattern: "api.*"},
		FunctionTool{Name: "public.purge_sessions", ToolOptions: ToolOptions{
			Description:       "Deletes expired sessions",
			Dangerous:         true,
			ParamDescriptions: map[string]string{"older_than": "Age threshold"},
		}},
	}
	if diff := cmp.Diff(wantTools, tools); diff != "" {
		t.Errorf("tool specs (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("database: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDSNFromFields(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want string
	}{
		{
			name: "all fields",
			db:   DatabaseConfig{Host: "localhost", Port: 5433, Database: "shop", User: "app", Password: "pw"},
			want: "postgresql://app:pw@localhost:5433/shop",
		},
		{
			name: "default port and no password",
			db:   DatabaseConfig{Host: "db", Database: "shop", User: "app"},
			want: "postgresql://app@db:5432/shop",
		},
		{
			name: "password is escaped",
			db:   DatabaseConfig{Host: "db", Port: 5432, Database: "shop", User: "app", Password: "p@ss/word"},
			want: "postgresql://app:p%40ss%2Fword@db:5432/shop",
		},
		{
			name: "url wins",
			db:   DatabaseConfig{URL: "postgres://x@y/z"},
			want: "postgres://x@y/z",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.db.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want DatabaseConfig
	}{
		{
			name: "url with password",
			db:   DatabaseConfig{URL: "postgres://app:secret@db:5432/shop"},
			want: DatabaseConfig{URL: "postgres://app:xxxxx@db:5432/shop"},
		},
		{
			name: "url without password",
			db:   DatabaseConfig{URL: "postgres://app@db/shop"},
			want: DatabaseConfig{URL: "postgres://app@db/shop"},
		},
		{
			name: "individual fields",
			db:   DatabaseConfig{Host: "db", User: "app", Password: "secret"},
			want: DatabaseConfig{Host: "db", User: "app", Password: "xxxxx"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.db.Redacted()); diff != "" {
				t.Errorf("Redacted() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResourceSpecVariants(t *testing.T) {
	limit := func(n int) *int { return &n }

	tests := []struct {
		name    string
		in      ResourceYAML
		want    ResourceSpec
		wantErr bool
	}{
		{name: "pattern", in: ResourceYAML{Pattern: "public.*"}, want: PatternResource{Pattern: "public.*", ResourceOptions: ResourceOptions{Limit: 1000}}},
		{name: "table", in: ResourceYAML{Table: "users", Limit: limit(10)}, want: TableResource{Name: "users", ResourceOptions: ResourceOptions{Limit: 10}}},
		{name: "view", in: ResourceYAML{View: "v"}, want: ViewResource{Name: "v", ResourceOptions: ResourceOptions{Limit: 1000}}},
		{name: "pattern and table", in: ResourceYAML{Pattern: "public.*", Table: "users"}, wantErr: true},
		{name: "pattern and view", in: ResourceYAML{Pattern: "public.*", View: "v"}, wantErr: true},
		{name: "table and view", in: ResourceYAML{Table: "users", View: "v"}, wantErr: true},
		{name: "nothing selected", in: ResourceYAML{Description: "orphan"}, wantErr: true},
		{name: "zero limit", in: ResourceYAML{Table: "users", Limit: limit(0)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Spec()
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Spec() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToolSpecVariants(t *testing.T) {
	tests := []struct {
		name    string
		in      ToolYAML
		want    ToolSpec
		wantErr bool
	}{
		{name: "pattern", in: ToolYAML{Pattern: "api.*"}, want: PatternTool{Pattern: "api.*"}},
		{name: "function", in: ToolYAML{Function: "create_user", Dangerous: true}, want: FunctionTool{Name: "create_user", ToolOptions: ToolOptions{Dangerous: true}}},
		{name: "empty param description ignored", in: ToolYAML{Function: "f", Params: map[string]ParamYAML{"a": {}}}, want: FunctionTool{Name: "f"}},
		{name: "both", in: ToolYAML{Pattern: "api.*", Function: "create_user"}, wantErr: true},
		{name: "neither", in: ToolYAML{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Spec()
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Spec() (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost/db"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults with url", mutate: func(*Config) {}},
		{name: "url and host", mutate: func(c *Config) { c.Database.Host = "h" }, wantErr: "database: cannot specify both"},
		{name: "no connection", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: "must specify either url"},
		{name: "partial fields", mutate: func(c *Config) {
			c.Database.URL = ""
			c.Database.Host = "h"
			c.Database.User = "u"
		}, wantErr: "must specify either url"},
		{name: "pool bounds", mutate: func(c *Config) { c.Database.PoolMinSize = 30 }, wantErr: "exceeds pool_max_size"},
		{name: "zero pool", mutate: func(c *Config) { c.Database.PoolMaxSize = 0 }, wantErr: "pool_max_size: must be at least 1"},
		{name: "bad duration", mutate: func(c *Config) { c.Database.PoolTimeout = "soon" }, wantErr: `invalid duration "soon"`},
		{name: "search path injection", mutate: func(c *Config) { c.Database.SearchPath = "public; DROP TABLE x" }, wantErr: "search_path"},
		{name: "transport", mutate: func(c *Config) { c.Server.Transport = "sse" }, wantErr: "server.transport"},
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "resource spec", mutate: func(c *Config) {
			c.Expose.Resources = []ResourceYAML{{Pattern: "a.*"}, {Pattern: "b.*", Table: "t"}}
		}, wantErr: "expose.resources[1]"},
		{name: "tool spec", mutate: func(c *Config) {
			c.Expose.Tools = []ToolYAML{{}}
		}, wantErr: "expose.tools[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Errorf("error %v does not match ErrConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	t.Setenv("PGPASSWORD", "pw")
	path := filepath.Join(t.TempDir(), "pgmcp.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DSN() != "postgres://postgres:pw@localhost:5432/postgres" {
		t.Errorf("DSN = %q", cfg.Database.DSN())
	}
	if len(cfg.Expose.Resources) != 1 || len(cfg.Expose.Tools) != 1 {
		t.Errorf("expose = %+v", cfg.Expose)
	}
}
