package service

import (
	"context"
	"time"

	"nhanes/internal/core/sensor"
	"nhanes/internal/modkit/repokit"
	perr "nhanes/internal/platform/errors"
	"nhanes/internal/platform/logger"
	"nhanes/internal/services/prep/domain"
	"nhanes/internal/services/prep/guardrails"
)

// publish writes the run in one ledger transaction
// tensors are written inside it after the run header claims the id, so a
// failed commit leaves only unreferenced tensor rows behind
func (s *Service) publish(ctx context.Context, r *run) error {
	dbCtx, cancel := guardrails.ForDB(ctx, s.timeouts())
	defer cancel()
	t0 := time.Now()

	r.sum.Published = true
	r.finish(s.now(), nil)

	var tensorRows int
	writeTensors := func(c context.Context) error {
		if s.Sink == nil {
			return nil
		}
		for _, gen := range sensor.Generations() {
			t, ok := r.tensors[gen]
			if !ok || t.Len() == 0 {
				continue
			}
			n, err := s.Sink.Write(c, r.sum.RunID, t)
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeUnavailable, "write %s tensor", gen)
			}
			tensorRows += n
		}
		return nil
	}

	var err error
	if s.DB == nil {
		err = writeTensors(dbCtx)
	} else {
		err = s.DB.Tx(dbCtx, func(q repokit.Queryer) error {
			repo := s.Binder.Bind(q)
			ok, err := repo.InsertRun(dbCtx, r.sum)
			if err != nil {
				return perr.FromPostgres(err, "publish ledger")
			}
			if !ok {
				return perr.Conflictf("run %s is already published", r.sum.RunID)
			}
			if err := writeTensors(dbCtx); err != nil {
				return err
			}
			if err := repo.InsertFiles(dbCtx, r.sum.RunID, r.sum.Files); err != nil {
				return perr.FromPostgres(err, "publish ledger")
			}
			if err := repo.InsertIssues(dbCtx, r.sum.RunID, r.sum.Issues); err != nil {
				return perr.FromPostgres(err, "publish ledger")
			}
			return s.insertFrame(dbCtx, repo, r)
		})
	}
	if err != nil {
		r.sum.Published = false
		if ctx.Err() != nil {
			return perr.Wrap(ctx.Err(), perr.ErrorCodeCanceled, "prep canceled during publish")
		}
		return err
	}
	logger.C(ctx).Info().
		Int("tensor_rows", tensorRows).
		Int("frame_rows", r.frame.Len()).
		Dur("elapsed", time.Since(t0)).
		Msg("prep: published")
	return nil
}

func (s *Service) insertFrame(ctx context.Context, repo domain.LedgerRepo, r *run) error {
	chunk := s.Cfg.FrameChunk
	if chunk <= 0 {
		chunk = 1000
	}
	f := r.frame
	batch := make([]domain.FrameRow, 0, min(chunk, f.Len()))
	for i := range f.Len() {
		batch = append(batch, domain.FrameRow{Subject: f.Subjects[i], Cycle: f.Cycles[i], Values: f.RowMap(i)})
		if len(batch) == chunk || i == f.Len()-1 {
			if err := repo.InsertFrame(ctx, r.sum.RunID, batch); err != nil {
				return perr.FromPostgres(err, "publish ledger")
			}
			batch = batch[:0]
		}
	}
	return nil
}
