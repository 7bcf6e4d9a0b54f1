package postgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sifan077/hyperindex/config"
)

const defaultDialTimeout = 5 * time.Second

type poolSettings struct {
	maxConns          int32
	minConns          int32
	maxConnLifetime   time.Duration
	maxConnIdleTime   time.Duration
	healthCheckPeriod time.Duration
}

func parsePoolSettings(cfg config.PostgresConfig) (poolSettings, error) {
	s := poolSettings{maxConns: cfg.MaxConns, minConns: cfg.MinConns}
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"max_conn_lifetime", cfg.MaxConnLifetime, &s.maxConnLifetime},
		{"max_conn_idle_time", cfg.MaxConnIdleTime, &s.maxConnIdleTime},
		{"health_check_period", cfg.HealthCheckPeriod, &s.healthCheckPeriod},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return poolSettings{}, fmt.Errorf("postgres: invalid %s %q: %w", d.name, d.value, err)
		}
		*d.dst = parsed
	}
	if s.minConns > 0 && s.maxConns > 0 && s.minConns > s.maxConns {
		return poolSettings{}, fmt.Errorf("postgres: min_conns %d exceeds max_conns %d", s.minConns, s.maxConns)
	}
	return s, nil
}

// PoolConfig builds the pgx pool configuration for the read path.
func PoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	settings, err := parsePoolSettings(cfg)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}

	if settings.maxConns > 0 {
		poolCfg.MaxConns = settings.maxConns
	}
	if settings.minConns > 0 {
		poolCfg.MinConns = settings.minConns
	}
	if settings.maxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = settings.maxConnLifetime
	}
	if settings.maxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = settings.maxConnIdleTime
	}
	if settings.healthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = settings.healthCheckPeriod
	}
	return poolCfg, nil
}

// NewPool creates a pgx connection pool using the provided config and verifies connectivity.
func NewPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(dialCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return pool, nil
}

// ConnString renders cfg as a postgres:// URL, filling local defaults.
func ConnString(cfg config.PostgresConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	switch {
	case cfg.User != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.User, cfg.Password)
	case cfg.User != "":
		u.User = url.User(cfg.User)
	}
	return u.String()
}
