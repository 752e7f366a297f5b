// Package service contains run ledger read workflows
package service

import (
	"context"
	"errors"

	"nhanes/internal/modkit/repokit"
	perr "nhanes/internal/platform/errors"
	"nhanes/internal/services/api/runs/domain"
	"nhanes/internal/services/api/runs/repo"
)

// Service defines the runs service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the runs service
type Svc struct {
	Repo repo.Repo
}

// New constructs a runs service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("runs.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("runs.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db)}
}

// Run returns the stored summary of runID
func (s *Svc) Run(ctx context.Context, runID string) (domain.Run, error) {
	if runID == "" {
		return domain.Run{}, perr.InvalidArgf("run id is required")
	}
	out, err := s.Repo.Run(ctx, runID)
	if err != nil {
		return domain.Run{}, mapErr(err, "run %s not found", runID)
	}
	return out, nil
}

// Issues lists the issues of runID in recording order
func (s *Svc) Issues(ctx context.Context, runID string, q domain.IssuesQuery) ([]domain.Issue, error) {
	if q.Kind != "" {
		if _, ok := perr.ParseCode(q.Kind); !ok {
			return nil, perr.WithField(perr.InvalidArgf("unknown issue kind %q", q.Kind), "kind")
		}
	}
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultIssueLimit
	}
	out, err := s.Repo.Issues(ctx, runID, q.Kind, q.Cycle, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "list issues")
	}
	return out, nil
}

// Subject returns the resolved frame row of seqn in runID
func (s *Svc) Subject(ctx context.Context, runID string, seqn int64) (domain.SubjectRow, error) {
	if seqn <= 0 {
		return domain.SubjectRow{}, perr.InvalidArgf("seqn must be positive")
	}
	out, err := s.Repo.Subject(ctx, runID, seqn)
	if err != nil {
		return domain.SubjectRow{}, mapErr(err, "subject %d not in run %s", seqn, runID)
	}
	return out, nil
}

func mapErr(err error, format string, a ...any) error {
	if errors.Is(err, repo.ErrNotFound) {
		return perr.NotFoundf(format, a...)
	}
	return perr.FromPostgres(err, "read run ledger")
}
