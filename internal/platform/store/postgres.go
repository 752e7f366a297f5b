package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nhanes/internal/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgConn is the statement surface pgxpool.Pool and pgx.Tx share
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgQuerier struct{ c pgConn }

func (q pgQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return q.c.Exec(ctx, sql, args...)
}

func (q pgQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := q.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (q pgQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.c.QueryRow(ctx, sql, args...)
}

// pgDB is the pooled ledger connection
type pgDB struct {
	pgQuerier
	pool *pgxpool.Pool
}

var (
	_ TxRunner = (*pgDB)(nil)
	_ Pinger   = (*pgDB)(nil)
)

func (d *pgDB) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	if err := fn(pgQuerier{tx}); err != nil {
		// rollback must run even when ctx is what failed
		_ = tx.Rollback(context.WithoutCancel(ctx))
		return err
	}
	return tx.Commit(ctx)
}

func (d *pgDB) Ping(ctx context.Context) error {
	if d == nil || d.pool == nil {
		return errors.New("pg: not open")
	}
	return d.pool.Ping(ctx)
}

func (d *pgDB) Close() error {
	d.pool.Close()
	return nil
}

var newPool = pgxpool.NewWithConfig

// retryBase is the first backoff between pings; it doubles up to retryCap
var (
	retryBase = 150 * time.Millisecond
	retryCap  = 2 * time.Second
)

func openPG(ctx context.Context, app string, cfg PGConfig, log logger.Logger) (*pgDB, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("pg: parse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if app != "" {
		pcfg.ConnConfig.RuntimeParams["application_name"] = app
	}
	if cfg.LogSQL {
		pcfg.ConnConfig.Tracer = newSQLTracer(log, time.Duration(cfg.SlowQueryMs)*time.Millisecond)
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: pool: %w", err)
	}
	if err := waitReady(ctx, pool.Ping, cfg.ConnectRetries, cfg.PingTimeout); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgDB{pgQuerier: pgQuerier{pool}, pool: pool}, nil
}

// waitReady calls ping until it succeeds, attempts run out or ctx ends
func waitReady(ctx context.Context, ping func(context.Context) error, attempts int, timeout time.Duration) error {
	if attempts <= 0 {
		attempts = 20
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	wait := retryBase
	var last error
	for i := range attempts {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		last = ping(pctx)
		cancel()
		if last == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait = min(wait*2, retryCap)
	}
	return fmt.Errorf("pg: not reachable after %d pings: %w", attempts, last)
}
