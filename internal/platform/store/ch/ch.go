// Package ch provides a thin clickhouse client over the native protocol
package ch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	URL string

	// ClientName and ClientTag are reported to the server through client info
	ClientName string
	ClientTag  string

	DialTimeout  time.Duration
	MaxOpenConns int
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// CH wraps a native clickhouse connection
// the connection dials lazily, Ping forces a round trip
type CH struct {
	conn driver.Conn
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Options turns cfg into driver options
func Options(cfg Config) (*clickhouse.Options, error) {
	if cfg.URL == "" {
		return nil, errors.New("ch: empty url")
	}
	opts, err := clickhouse.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ch: parse dsn: %w", err)
	}
	opts.ClientInfo = BuildClientInfo(cfg.ClientName, cfg.ClientTag)
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.MaxOpenConns > 0 {
		opts.MaxOpenConns = cfg.MaxOpenConns
	}
	return opts, nil
}

// Open returns a clickhouse client; no connection is made until first use
func Open(_ context.Context, cfg Config) (*CH, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	return &CH{conn: conn}, nil
}

// Ping verifies connectivity
func (c *CH) Ping(ctx context.Context) error { return c.conn.Ping(ctx) }

// Exec runs a statement without results, typically DDL
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	return c.conn.Exec(ctx, sql, args...)
}

// Insert appends rows to table in a single batch
// each row lists values in the table's column order
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("ch: invalid table name %q", table)
	}
	if len(rows) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return fmt.Errorf("ch: prepare %s: %w", table, err)
	}
	for i, r := range rows {
		if err := batch.Append(r...); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("ch: append %s row %d: %w", table, i, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("ch: send %s: %w", table, err)
	}
	return nil
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	r, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Close closes the connection pool
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
