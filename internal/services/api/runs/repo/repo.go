// Package repo provides postgres access for published runs
package repo

import (
	"context"
	"encoding/json"
	"errors"

	"nhanes/internal/modkit/repokit"
	perr "nhanes/internal/platform/errors"
	"nhanes/internal/platform/store"
	"nhanes/internal/services/api/runs/domain"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound reports a run or subject that was never published
var ErrNotFound = errors.New("runs: not found")

// Repo is the read surface over the run ledger
type Repo interface {
	Run(ctx context.Context, runID string) (domain.Run, error)
	Issues(ctx context.Context, runID, kind string, cycle, limit int) ([]domain.Issue, error)
	Subject(ctx context.Context, runID string, seqn int64) (domain.SubjectRow, error)
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, perr.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func scanRun(row store.Row) (domain.Run, error) {
	var (
		out domain.Run
		doc string
	)
	err := row.Scan(
		&out.RunID, &out.Dir, &out.Status, &out.StartedAt, &out.FinishedAt,
		&out.PublishedAt, &out.Subjects, &out.FrameRows, &doc,
	)
	out.Summary = json.RawMessage(doc)
	return out, err
}

func scanIssue(row store.Row) (domain.Issue, error) {
	var is domain.Issue
	err := row.Scan(&is.Ordinal, &is.Kind, &is.Cycle, &is.File, &is.Variable,
		&is.Subject, &is.Generation, &is.Detail)
	return is, err
}

func (r *queries) Run(ctx context.Context, runID string) (domain.Run, error) {
	const sql = `
select run_id, dir, status, started_at, finished_at, published_at, subjects, frame_rows, summary::text
from prep_runs
where run_id = $1
`
	out, err := store.One(ctx, r.q, scanRun, sql, runID)
	if err != nil {
		return domain.Run{}, notFound(err)
	}
	return out, nil
}

func (r *queries) Issues(ctx context.Context, runID, kind string, cycle, limit int) ([]domain.Issue, error) {
	// zero filters match everything
	const sql = `
select ordinal, kind, coalesce(cycle, 0), coalesce(file, ''), coalesce(variable, ''),
	coalesce(seqn, 0), coalesce(generation, ''), detail
from prep_issues
where run_id = $1
and ($2 = '' or kind = $2)
and ($3 = 0 or cycle = $3)
order by ordinal asc
limit $4
`
	return store.Many(ctx, r.q, scanIssue, sql, runID, kind, cycle, limit)
}

func (r *queries) Subject(ctx context.Context, runID string, seqn int64) (domain.SubjectRow, error) {
	const sql = `
select cycle, vals::text
from prep_frames
where run_id = $1 and seqn = $2
`
	scan := func(row store.Row) (domain.SubjectRow, error) {
		out := domain.SubjectRow{RunID: runID, Subject: seqn}
		var doc string
		if err := row.Scan(&out.Cycle, &doc); err != nil {
			return out, err
		}
		return out, json.Unmarshal([]byte(doc), &out.Values)
	}
	out, err := store.One(ctx, r.q, scan, sql, runID, seqn)
	if err != nil {
		return domain.SubjectRow{}, notFound(err)
	}
	return out, nil
}
