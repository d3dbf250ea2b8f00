package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverClickHouse = "clickhouse"
	DriverPostgres   = "postgres"
	DriverMySQL      = "mysql"
	DriverSQLite     = "sqlite"
)

// Client manages a database/sql connection pool.
type Client struct {
	db      *sql.DB
	dialect Dialect
}

// NewClient opens a pool for the configured driver and verifies it with a ping.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &ClientConfig{
		Driver:          DriverClickHouse,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		PingTimeout:     5 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := buildDSN(*cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s open: %w", cfg.Driver, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s ping: %w", cfg.Driver, err)
	}

	return &Client{db: db, dialect: dialect}, nil
}

// NewClientFromDB wraps an existing pool (tests, embedded setups).
func NewClientFromDB(db *sql.DB, dialect Dialect) *Client {
	return &Client{db: db, dialect: dialect}
}

// DB returns *sql.DB for direct use.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Dialect returns the SQL dialect of the pool.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// Health performs health check.
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs idempotent DDL statements.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func buildDSN(cfg ClientConfig) (string, error) {
	switch cfg.Driver {
	case DriverClickHouse:
		return clickhouseDSN(cfg)
	case DriverPostgres:
		return postgresDSN(cfg)
	case DriverMySQL:
		return mysqlDSN(cfg)
	case DriverSQLite:
		if cfg.Path == "" {
			return "", fmt.Errorf("sqlite path is required")
		}
		return cfg.Path, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}

func clickhouseDSN(cfg ClientConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 9000
		if cfg.UseHTTP {
			port = 8123
		}
	}
	u := url.URL{
		Scheme: "clickhouse",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	if cfg.UseHTTP {
		q.Set("protocol", "http")
	}
	if cfg.DialTimeout > 0 {
		q.Set("dial_timeout", cfg.DialTimeout.String())
	}
	if cfg.ReadTimeout > 0 {
		q.Set("read_timeout", cfg.ReadTimeout.String())
	}
	if cfg.MaxExecTime > 0 {
		q.Set("max_execution_time", fmt.Sprintf("%d", int(cfg.MaxExecTime.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func postgresDSN(cfg ClientConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
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
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, port),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.DialTimeout > 0 {
		q.Set("connect_timeout", fmt.Sprintf("%d", int(cfg.DialTimeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func mysqlDSN(cfg ClientConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	mc.DBName = cfg.Database
	// Stored timestamps are UTC wall clock.
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = cfg.DialTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	return mc.FormatDSN(), nil
}
