package repokit

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "nhanes/internal/platform/errors"
)

type recTx struct {
	log   []string
	txErr error
}

func (r *recTx) Exec(_ context.Context, sql string, _ ...any) (CommandTag, error) {
	r.log = append(r.log, sql)
	return nil, nil
}
func (r *recTx) Query(context.Context, string, ...any) (Rows, error) { return nil, nil }
func (r *recTx) QueryRow(context.Context, string, ...any) Row        { return nil }
func (r *recTx) Tx(_ context.Context, fn func(Queryer) error) error {
	r.log = append(r.log, "BEGIN")
	if err := fn(r); err != nil {
		r.log = append(r.log, "ROLLBACK")
		return err
	}
	r.log = append(r.log, "COMMIT")
	return r.txErr
}

func hook(sql string, err error) BeginHook {
	return func(ctx context.Context, q Queryer) error {
		if err != nil {
			return err
		}
		_, e := q.Exec(ctx, sql)
		return e
	}
}

func TestWithBeginHooks(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name  string
		hooks []BeginHook
		want  []string
		err   error
	}{
		{"ordered", []BeginHook{hook("SET LOCAL a", nil), hook("SET LOCAL b", nil)}, []string{"BEGIN", "SET LOCAL a", "SET LOCAL b", "INSERT", "COMMIT"}, nil},
		{"hook fails", []BeginHook{hook("", boom)}, []string{"BEGIN", "ROLLBACK"}, boom},
		{"no hooks", nil, []string{"BEGIN", "INSERT", "COMMIT"}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			inner := &recTx{}
			db := WithBeginHooks(inner, c.hooks...)
			err := db.Tx(context.Background(), func(q Queryer) error {
				_, e := q.Exec(context.Background(), "INSERT")
				return e
			})
			if !errors.Is(err, c.err) {
				t.Fatalf("err=%v want %v", err, c.err)
			}
			if len(inner.log) != len(c.want) {
				t.Fatalf("log=%v want %v", inner.log, c.want)
			}
			for i := range c.want {
				if inner.log[i] != c.want[i] {
					t.Fatalf("log=%v want %v", inner.log, c.want)
				}
			}
		})
	}

	t.Run("plain exec skips hooks", func(t *testing.T) {
		inner := &recTx{}
		_, _ = WithBeginHooks(inner, hook("SET LOCAL a", nil)).Exec(context.Background(), "SELECT 1")
		if len(inner.log) != 1 || inner.log[0] != "SELECT 1" {
			t.Fatalf("log=%v", inner.log)
		}
	})
}

func TestBindFunc(t *testing.T) {
	type repo struct{ q Queryer }
	var b Binder[repo] = BindFunc[repo](func(q Queryer) repo { return repo{q: q} })
	q := &recTx{}
	if got := b.Bind(q); got.q != q {
		t.Fatal("queryer not bound")
	}
}

type guardFunc func(context.Context) error

func (g guardFunc) Guard(ctx context.Context) error { return g(ctx) }

func TestGuard(t *testing.T) {
	ok := guardFunc(func(ctx context.Context) error {
		if _, has := ctx.Deadline(); !has {
			return errors.New("no deadline")
		}
		return nil
	})
	if err := Guard(context.Background(), ok, time.Second); err != nil {
		t.Fatalf("healthy store: %v", err)
	}

	down := guardFunc(func(context.Context) error { return errors.New("pg: refused") })
	if err := Guard(context.Background(), down, time.Second); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
	if err := Guard(context.Background(), nil, time.Second); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("nil store: %v", err)
	}
}
