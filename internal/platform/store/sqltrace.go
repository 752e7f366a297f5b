package store

import (
	"context"
	"strings"
	"time"

	"nhanes/internal/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// sqlTracer logs every statement pgx runs. argument values are never logged,
// only their count, since the ledger carries subject identifiers
type sqlTracer struct {
	log  logger.Logger
	slow time.Duration
	now  func() time.Time
}

var _ pgx.QueryTracer = (*sqlTracer)(nil)

func newSQLTracer(log logger.Logger, slow time.Duration) *sqlTracer {
	return &sqlTracer{
		log:  log.With().Str("component", "pg").Logger(),
		slow: slow,
		now:  time.Now,
	}
}

type traceKey struct{}

type traceStart struct {
	sql  string
	args int
	at   time.Time
}

func (t *sqlTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{sql: d.SQL, args: len(d.Args), at: t.now()})
}

func (t *sqlTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, d pgx.TraceQueryEndData) {
	st, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	took := t.now().Sub(st.at)
	slow := t.slow > 0 && took >= t.slow

	var ev *zerolog.Event
	switch {
	case d.Err != nil:
		ev = t.log.Error().Err(d.Err)
	case slow:
		ev = t.log.Warn()
	default:
		ev = t.log.Info()
	}
	ev.Dur("took", took).
		Bool("slow", slow).
		Str("sql", squash(st.sql)).
		Int("args", st.args).
		Int64("rows", d.CommandTag.RowsAffected()).
		Msg("pg query")
}

// squash folds runs of whitespace into single spaces
func squash(s string) string { return strings.Join(strings.Fields(s), " ") }
