package store

import (
	"context"
	"errors"
	"testing"

	perr "nhanes/internal/platform/errors"
)

type sliceRows struct {
	data [][]any
	i    int
	err  error
}

func (r *sliceRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = row[i].(int64)
		case *string:
			*p = row[i].(string)
		}
	}
	return nil
}
func (r *sliceRows) Err() error { return r.err }
func (r *sliceRows) Close()     {}

type sliceQuerier struct {
	rows *sliceRows
	err  error
}

func (q sliceQuerier) Exec(context.Context, string, ...any) (CommandTag, error) { return nil, nil }
func (q sliceQuerier) Query(context.Context, string, ...any) (Rows, error)      { return q.rows, q.err }
func (q sliceQuerier) QueryRow(context.Context, string, ...any) Row             { return nil }

type issueRow struct {
	Seqn int64
	Kind string
}

func scanIssueRow(r Row) (issueRow, error) {
	var out issueRow
	return out, r.Scan(&out.Seqn, &out.Kind)
}

func TestOne(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	cases := []struct {
		name    string
		q       sliceQuerier
		want    issueRow
		wantErr error
	}{
		{"single row", sliceQuerier{rows: &sliceRows{data: [][]any{{int64(7), "subject_excluded"}}}}, issueRow{7, "subject_excluded"}, nil},
		{"no rows", sliceQuerier{rows: &sliceRows{}}, issueRow{}, perr.ErrNotFound},
		{"query error", sliceQuerier{err: boom}, issueRow{}, boom},
		{"iteration error", sliceQuerier{rows: &sliceRows{err: boom}}, issueRow{}, boom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := One(ctx, tc.q, scanIssueRow, "select")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err=%v want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}

	t.Run("more than one row", func(t *testing.T) {
		q := sliceQuerier{rows: &sliceRows{data: [][]any{{int64(1), "a"}, {int64(2), "b"}}}}
		if _, err := One(ctx, q, scanIssueRow, "select"); err == nil {
			t.Fatalf("expected error for two rows")
		}
	})
}

func TestMany(t *testing.T) {
	ctx := context.Background()

	got, err := Many(ctx, sliceQuerier{rows: &sliceRows{data: [][]any{{int64(1), "a"}, {int64(2), "b"}}}}, scanIssueRow, "select")
	if err != nil || len(got) != 2 || got[1].Kind != "b" {
		t.Fatalf("got %+v err=%v", got, err)
	}

	empty, err := Many(ctx, sliceQuerier{rows: &sliceRows{}}, scanIssueRow, "select")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty result must be a non nil empty slice: %#v err=%v", empty, err)
	}

	if _, err := Many(ctx, sliceQuerier{err: errors.New("down")}, scanIssueRow, "select"); err == nil {
		t.Fatalf("expected query error")
	}
}
