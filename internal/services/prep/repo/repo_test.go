package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nhanes/internal/modkit/repokit"
	"nhanes/internal/platform/store"
	"nhanes/internal/services/prep/domain"

	"github.com/google/go-cmp/cmp"
)

type tag int64

func (t tag) String() string      { return "INSERT" }
func (t tag) RowsAffected() int64 { return int64(t) }

type call struct {
	sql  string
	args []any
}

// fakeQ records Exec calls and answers with a fixed tag
type fakeQ struct {
	calls []call
	tag   tag
	err   error
}

func (f *fakeQ) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: append([]any(nil), args...)})
	return f.tag, f.err
}

func (f *fakeQ) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakeQ) QueryRow(context.Context, string, ...any) store.Row { return nil }

type fakeTx struct{ q *fakeQ }

func (f fakeTx) Tx(ctx context.Context, fn func(q repokit.Queryer) error) error { return fn(f.q) }
func (f fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return f.q.Exec(ctx, sql, args...)
}
func (f fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return f.q.Query(ctx, sql, args...)
}
func (f fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	return f.q.QueryRow(ctx, sql, args...)
}

func TestInsertRun_ConflictReportsFalse(t *testing.T) {
	ctx := context.Background()
	sum := domain.Summary{RunID: "r1", Dir: "/data", Status: domain.RunOK, StartedAt: time.Unix(0, 0)}

	q := &fakeQ{tag: 1}
	ok, err := NewPG().Bind(q).InsertRun(ctx, sum)
	if err != nil || !ok {
		t.Fatalf("insert: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(q.calls[0].sql, "ON CONFLICT (run_id) DO NOTHING") {
		t.Fatalf("run insert must not overwrite: %s", q.calls[0].sql)
	}
	doc, _ := q.calls[0].args[7].(string)
	if !strings.Contains(doc, `"run_id":"r1"`) {
		t.Fatalf("summary document: %s", doc)
	}

	q = &fakeQ{tag: 0}
	if ok, err := NewPG().Bind(q).InsertRun(ctx, sum); err != nil || ok {
		t.Fatalf("conflict: ok=%v err=%v", ok, err)
	}
}

func TestInsertIssues_ColumnArrays(t *testing.T) {
	q := &fakeQ{}
	issues := []domain.Issue{
		{Kind: "variable_unavailable", Cycle: 2003, Variable: "age", Detail: "x"},
		{Kind: "subject_excluded", Subject: 21005, Generation: "gen2003", Detail: "no valid epochs"},
	}
	if err := NewPG().Bind(q).InsertIssues(context.Background(), "r1", issues); err != nil {
		t.Fatal(err)
	}
	if len(q.calls) != 1 {
		t.Fatalf("want one batched statement, got %d", len(q.calls))
	}
	a := q.calls[0].args
	if diff := cmp.Diff([]int32{0, 1}, a[1]); diff != "" {
		t.Errorf("ordinals (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{0, 21005}, a[6]); diff != "" {
		t.Errorf("seqns (-want +got):\n%s", diff)
	}

	q = &fakeQ{}
	if err := NewPG().Bind(q).InsertIssues(context.Background(), "r1", nil); err != nil || len(q.calls) != 0 {
		t.Fatalf("empty issues must be a no-op: %v %d", err, len(q.calls))
	}
}

func TestInsertFrame_JSONValues(t *testing.T) {
	q := &fakeQ{}
	rows := []domain.FrameRow{
		{Subject: 1, Cycle: 1999, Values: map[string]any{"age": 42.0, "smoker": nil}},
		{Subject: 2, Cycle: 2001, Values: map[string]any{"age": 7.0}},
	}
	if err := NewPG().Bind(q).InsertFrame(context.Background(), "r1", rows); err != nil {
		t.Fatal(err)
	}
	vals := q.calls[0].args[3].([]string)
	if diff := cmp.Diff([]string{`{"age":42,"smoker":null}`, `{"age":7}`}, vals); diff != "" {
		t.Fatalf("vals (-want +got):\n%s", diff)
	}
}

func TestInsertFiles_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	q := &fakeQ{err: boom}
	err := NewPG().Bind(q).InsertFiles(context.Background(), "r1", []domain.FileReport{{Name: "DEMO.XPT"}})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "DEMO.XPT") {
		t.Fatalf("err=%v", err)
	}
}

func TestEnsureSchema_RunsEveryStatement(t *testing.T) {
	q := &fakeQ{}
	if err := EnsureSchema(context.Background(), fakeTx{q: q}); err != nil {
		t.Fatal(err)
	}
	if len(q.calls) != len(Statements()) || len(q.calls) < 4 {
		t.Fatalf("statements=%d calls=%d", len(Statements()), len(q.calls))
	}
	for _, c := range q.calls {
		if strings.HasSuffix(c.sql, ";") {
			t.Fatalf("statement not split: %q", c.sql)
		}
	}
}
