package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/faucetdb/pgmcp/internal/connector"
)

const (
	defaultMinConns       = 5
	defaultMaxConns       = 20
	defaultAcquireTimeout = 30 * time.Second
	defaultSearchPath     = "public"
)

// PostgresConnector implements connector.Pool on top of a pgxpool. The pool
// enforces the connection ceiling; database/sql is layered on it through
// pgx's stdlib adapter so that results can be scanned with sqlx.
type PostgresConnector struct {
	pool           *pgxpool.Pool
	db             *sqlx.DB
	acquireTimeout time.Duration
	queryTimeout   time.Duration
	logger         *slog.Logger
}

// Connect builds the pool described by cfg and verifies it with a ping.
// Every new connection runs SET search_path before it is handed out.
func Connect(ctx context.Context, cfg connector.ConnectionConfig, logger *slog.Logger) (*PostgresConnector, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}

	poolCfg.MinConns = withDefault(cfg.MinConns, defaultMinConns)
	poolCfg.MaxConns = withDefault(cfg.MaxConns, defaultMaxConns)

	searchPath := cfg.SearchPath
	if searchPath == "" {
		searchPath = defaultSearchPath
	}
	setting := "SET search_path TO " + searchPath
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, setting); err != nil {
			return fmt.Errorf("apply session setting: %w", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	// database/sql must not keep its own idle connections: pgxpool owns
	// them and enforces the ceiling.
	sqlDB := stdlib.OpenDBFromPool(pool)
	sqlDB.SetMaxIdleConns(0)

	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}

	logger.Info("connection pool created",
		"min_size", poolCfg.MinConns,
		"max_size", poolCfg.MaxConns,
		"search_path", searchPath,
	)

	return &PostgresConnector{
		pool:           pool,
		db:             sqlx.NewDb(sqlDB, "pgx"),
		acquireTimeout: acquireTimeout,
		queryTimeout:   cfg.QueryTimeout,
		logger:         logger,
	}, nil
}

// WithConn acquires one connection, runs fn with it and releases it on
// every exit path. The acquisition timeout applies to acquiring only.
// Caller cancellation does not abort the work once the connection is held;
// the optional query timeout is the only bound.
func (c *PostgresConnector) WithConn(ctx context.Context, fn func(connector.Conn) error) error {
	acquireCtx, cancel := context.WithTimeout(ctx, c.acquireTimeout)
	conn, err := c.db.Connx(acquireCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %w", connector.ErrAcquire, err)
	}
	defer conn.Close()

	workCtx := context.WithoutCancel(ctx)
	if c.queryTimeout > 0 {
		var cancelWork context.CancelFunc
		workCtx, cancelWork = context.WithTimeout(workCtx, c.queryTimeout)
		defer cancelWork()
	}

	return fn(&pgConn{conn: conn, ctx: workCtx})
}

// Ping verifies the database connection is alive.
func (c *PostgresConnector) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Close closes the database/sql adapter and the underlying pool.
func (c *PostgresConnector) Close() error {
	err := c.db.Close()
	c.pool.Close()
	c.logger.Info("connection pool closed")
	return err
}

// Stat returns a snapshot of the pool counters.
func (c *PostgresConnector) Stat() *pgxpool.Stat {
	return c.pool.Stat()
}

func withDefault(val, def int32) int32 {
	if val == 0 {
		return def
	}
	return val
}

// queryError wraps a driver error, lifting the SQLSTATE when present.
func queryError(query string, err error) error {
	if err == nil {
		return nil
	}
	qe := &connector.QueryError{Query: query, Err: err}
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		qe.Code = pgErr.SQLState()
	}
	return qe
}
