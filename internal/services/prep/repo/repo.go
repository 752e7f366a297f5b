// Package repo provides postgres access for the prep run ledger
package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"nhanes/internal/modkit/repokit"
	"nhanes/internal/services/prep/domain"
)

type (
	// PG is a Postgres binder for domain.LedgerRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.LedgerRepo
func NewPG() repokit.Binder[domain.LedgerRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.LedgerRepo { return &queries{q: q} }

// InsertRun claims the run id; false means another run already holds it
func (r *queries) InsertRun(ctx context.Context, s domain.Summary) (bool, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("encode summary %s: %w", s.RunID, err)
	}
	tag, err := r.q.Exec(ctx, `
		INSERT INTO prep_runs (run_id, dir, status, started_at, finished_at, subjects, frame_rows, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		ON CONFLICT (run_id) DO NOTHING
	`, s.RunID, s.Dir, string(s.Status), s.StartedAt, s.FinishedAt, s.Subjects, s.FrameRows, string(doc))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// InsertFiles writes one row per file report
func (r *queries) InsertFiles(ctx context.Context, runID string, files []domain.FileReport) error {
	for _, f := range files {
		if _, err := r.q.Exec(ctx, `
			INSERT INTO prep_files (
				run_id, name, path, category, cycle, kind, generation,
				status, rows, declared, bytes, elapsed_ms, error
			)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8, $9, $10, $11, $12, NULLIF($13,''))
		`,
			runID, f.Name, f.Path, f.Category, f.Cycle, f.Kind, f.Gen,
			string(f.Status), f.Rows, f.Declared, f.Bytes, f.ElapsedMS, f.Err,
		); err != nil {
			return fmt.Errorf("insert file %s: %w", f.Name, err)
		}
	}
	return nil
}

// InsertIssues writes issues with their position as ordinal
func (r *queries) InsertIssues(ctx context.Context, runID string, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	ords := make([]int32, len(issues))
	kinds := make([]string, len(issues))
	cycles := make([]int32, len(issues))
	files := make([]string, len(issues))
	vars := make([]string, len(issues))
	seqns := make([]int64, len(issues))
	gens := make([]string, len(issues))
	details := make([]string, len(issues))
	for i, is := range issues {
		ords[i], kinds[i], cycles[i] = int32(i), is.Kind, int32(is.Cycle)
		files[i], vars[i], seqns[i] = is.File, is.Variable, is.Subject
		gens[i], details[i] = is.Generation, is.Detail
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO prep_issues (run_id, ordinal, kind, cycle, file, variable, seqn, generation, detail)
		SELECT $1, t.ordinal, t.kind, NULLIF(t.cycle, 0), NULLIF(t.file, ''), NULLIF(t.variable, ''),
			NULLIF(t.seqn, 0), NULLIF(t.generation, ''), t.detail
		FROM UNNEST($2::int[], $3::text[], $4::int[], $5::text[], $6::text[], $7::bigint[], $8::text[], $9::text[])
			AS t(ordinal, kind, cycle, file, variable, seqn, generation, detail)
	`, runID, ords, kinds, cycles, files, vars, seqns, gens, details)
	return err
}

// InsertFrame writes resolved subject rows as jsonb
func (r *queries) InsertFrame(ctx context.Context, runID string, rows []domain.FrameRow) error {
	if len(rows) == 0 {
		return nil
	}
	seqns := make([]int64, len(rows))
	cycles := make([]int32, len(rows))
	vals := make([]string, len(rows))
	for i, row := range rows {
		doc, err := json.Marshal(row.Values)
		if err != nil {
			return fmt.Errorf("encode frame row %d: %w", row.Subject, err)
		}
		seqns[i], cycles[i], vals[i] = row.Subject, int32(row.Cycle), string(doc)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO prep_frames (run_id, seqn, cycle, vals)
		SELECT $1, t.seqn, t.cycle, t.vals::jsonb
		FROM UNNEST($2::bigint[], $3::int[], $4::text[]) AS t(seqn, cycle, vals)
	`, runID, seqns, cycles, vals)
	return err
}
