// Package store opens the run ledger (postgres) and the tensor warehouse (clickhouse)
// and exposes both through small interfaces repositories can fake
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nhanes/internal/platform/logger"

	"github.com/rs/zerolog"
)

// Row is a single result row
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set; Close is safe to call more than once
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// CommandTag reports what a statement did
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the sql surface of a pool or an open transaction
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner runs fn inside one transaction; an error from fn rolls it back
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Clickhouse is the columnar surface used by the tensor sink
type Clickhouse interface {
	Insert(ctx context.Context, table string, rows [][]any) error
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Close() error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Config selects and tunes the backends
type Config struct {
	// AppName is reported to both servers
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig tunes the postgres pool
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32

	// LogSQL logs every statement; SlowQueryMs marks slow ones at warn
	LogSQL      bool
	SlowQueryMs int

	// ConnectRetries and PingTimeout bound the wait for a reachable server
	ConnectRetries int
	PingTimeout    time.Duration
}

// CHConfig tunes the clickhouse client
type CHConfig struct {
	Enabled      bool
	URL          string
	ClientTag    string
	DialTimeout  time.Duration
	MaxOpenConns int
}

// Store holds whichever backends were enabled; disabled ones stay nil
type Store struct {
	Log logger.Logger
	PG  TxRunner
	CH  Clickhouse
}

// Option adjusts a Store before its backends open
type Option func(*Store)

// WithLogger routes backend logs through l
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.Log = l }
}

// Open connects every enabled backend. postgres is pinged until it answers,
// clickhouse dials lazily and is proven by Guard
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	if cfg.PG.Enabled {
		db, err := openPG(ctx, cfg.AppName, cfg.PG, s.Log)
		if err != nil {
			return nil, err
		}
		s.PG = db
	}
	if cfg.CH.Enabled {
		db, err := openCH(cfg.AppName, cfg.CH)
		if err != nil {
			if s.PG != nil {
				_ = s.Close(ctx)
			}
			return nil, err
		}
		s.Log.Debug().Str("client_tag", cfg.CH.ClientTag).Msg("clickhouse client configured")
		s.CH = db
	}
	return s, nil
}

type backend struct {
	name string
	seam any
}

func (s *Store) backends() []backend {
	return []backend{{"pg", s.PG}, {"ch", s.CH}}
}

// Guard pings every backend that can be pinged and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: nil")
	}
	var errs []error
	for _, b := range s.backends() {
		p, ok := b.seam.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every backend, clickhouse before postgres
func (s *Store) Close(context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, b := range []backend{{"ch", s.CH}, {"pg", s.PG}} {
		c, ok := b.seam.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}
