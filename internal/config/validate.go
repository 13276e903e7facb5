package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Validate checks the whole configuration and reports every problem found.
// Each reported error matches ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error

	d := c.Database
	individual := d.Host != "" || d.Database != "" || d.User != "" || d.Password != ""
	switch {
	case d.URL != "" && individual:
		errs = append(errs, invalid("database", "cannot specify both url and individual connection parameters"))
	case d.URL == "" && (d.Host == "" || d.Database == "" || d.User == ""):
		errs = append(errs, invalid("database", "must specify either url or all of: host, database, user"))
	}
	if d.Port < 0 || d.Port > 65535 {
		errs = append(errs, invalid("database.port", "out of range: %d", d.Port))
	}
	if d.PoolMinSize < 1 {
		errs = append(errs, invalid("database.pool_min_size", "must be at least 1, got %d", d.PoolMinSize))
	}
	if d.PoolMaxSize < 1 {
		errs = append(errs, invalid("database.pool_max_size", "must be at least 1, got %d", d.PoolMaxSize))
	}
	if d.PoolMinSize > d.PoolMaxSize {
		errs = append(errs, invalid("database.pool_min_size", "%d exceeds pool_max_size %d", d.PoolMinSize, d.PoolMaxSize))
	}
	errs = appendDurationErr(errs, "database.pool_timeout", d.PoolTimeout)
	errs = appendDurationErr(errs, "database.query_timeout", d.QueryTimeout)
	if strings.ContainsAny(d.SearchPath, ";'") {
		errs = append(errs, invalid("database.search_path", "must be a list of schema names"))
	}

	s := c.Server
	if !slices.Contains([]string{"stdio", "http"}, s.Transport) {
		errs = append(errs, invalid("server.transport", "must be stdio or http, got %q", s.Transport))
	}
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, invalid("server.port", "out of range: %d", s.Port))
	}
	if s.RateLimit < 0 {
		errs = append(errs, invalid("server.rate_limit", "must not be negative"))
	}
	errs = appendDurationErr(errs, "server.shutdown_timeout", s.ShutdownTimeout)

	for i, r := range c.Expose.Resources {
		if _, err := r.Spec(); err != nil {
			errs = append(errs, fmt.Errorf("expose.resources[%d]: %w", i, err))
		}
	}
	for i, t := range c.Expose.Tools {
		if _, err := t.Spec(); err != nil {
			errs = append(errs, fmt.Errorf("expose.tools[%d]: %w", i, err))
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, invalid("logging.level", "unknown level %q", c.Logging.Level))
	}
	if !slices.Contains([]string{"auto", "text", "json"}, c.Logging.Format) {
		errs = append(errs, invalid("logging.format", "must be auto, text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func appendDurationErr(errs []error, field, value string) []error {
	if value == "" {
		return errs
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, invalid(field, "invalid duration %q", value))
	}
	if d < 0 {
		return append(errs, invalid(field, "must not be negative"))
	}
	return errs
}
