package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the db section of the service config. Zero values keep the pgx
// defaults.
type Config struct {
	DSN               string        `mapstructure:"dsn"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
	ApplicationName   string        `mapstructure:"application_name"`
	Migrate           bool          `mapstructure:"migrate"`
}

// DB is the shared pool. Every repository call is bounded by QueryTimeout.
type DB struct {
	Pool         *pgxpool.Pool
	QueryTimeout time.Duration
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	setIf(&pcfg.MaxConns, cfg.MaxConns)
	setIf(&pcfg.MinConns, cfg.MinConns)
	setIf(&pcfg.MaxConnLifetime, cfg.MaxConnLifetime)
	setIf(&pcfg.MaxConnIdleTime, cfg.MaxConnIdleTime)
	setIf(&pcfg.HealthCheckPeriod, cfg.HealthCheckPeriod)
	setIf(&pcfg.ConnConfig.ConnectTimeout, cfg.ConnectTimeout)
	if cfg.ApplicationName != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	return pcfg, nil
}

func setIf[T int32 | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

// NewDB opens the pool and fails fast when the server is unreachable.
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingTimeout := 5 * time.Second
	if cfg.ConnectTimeout > 0 {
		pingTimeout = cfg.ConnectTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{Pool: pool, QueryTimeout: cfg.QueryTimeout}, nil
}

func (db *DB) Close() { db.Pool.Close() }

// Ping is the readiness probe for /healthz and grpc health.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return storageErr("db.ping", err)
	}
	return nil
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.QueryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.QueryTimeout)
}
