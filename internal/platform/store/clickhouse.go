package store

import (
	"context"
	"errors"

	"nhanes/internal/platform/store/ch"
)

// chConn is the part of *ch.CH the store drives
type chConn interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (ch.Rows, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ chConn = (*ch.CH)(nil)

type chDB struct{ c chConn }

var (
	_ Clickhouse = chDB{}
	_ Pinger     = chDB{}
)

func openCH(app string, cfg CHConfig) (chDB, error) {
	c, err := ch.Open(context.Background(), ch.Config{
		URL:          cfg.URL,
		ClientName:   app,
		ClientTag:    cfg.ClientTag,
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: cfg.MaxOpenConns,
	})
	if err != nil {
		return chDB{}, err
	}
	return chDB{c: c}, nil
}

func (d chDB) Insert(ctx context.Context, table string, rows [][]any) error {
	return d.c.Insert(ctx, table, rows)
}

func (d chDB) Exec(ctx context.Context, sql string, args ...any) error {
	return d.c.Exec(ctx, sql, args...)
}

func (d chDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := d.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{rs}, nil
}

func (d chDB) Ping(ctx context.Context) error {
	if d.c == nil {
		return errors.New("ch: not open")
	}
	return d.c.Ping(ctx)
}

func (d chDB) Close() error {
	if d.c == nil {
		return nil
	}
	return d.c.Close()
}

// chRows drops the error ch.Rows returns from Close
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
