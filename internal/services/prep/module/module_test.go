package module

import (
	"context"
	"testing"
	"time"

	"nhanes/internal/modkit"
	"nhanes/internal/modkit/repokit"
	"nhanes/internal/platform/config"
	"nhanes/internal/platform/store"
	"nhanes/internal/services/prep/domain"
)

type execQ struct{ sqls []string }

func (q *execQ) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	q.sqls = append(q.sqls, sql)
	return nil, nil
}
func (q *execQ) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (q *execQ) QueryRow(context.Context, string, ...any) store.Row        { return nil }

func TestFromConfig(t *testing.T) {
	t.Setenv("PREP_DECODE_WORKERS", "3")
	t.Setenv("PREP_FILE_TIMEOUT", "30s")
	t.Setenv("PREP_ENSURE_SCHEMA", "true")
	o := FromConfig(config.New())
	if o.DecodeWorkers != 3 || o.FileTimeout != 30*time.Second || !o.EnsureSchema {
		t.Fatalf("options: %+v", o)
	}
	if o.AlignWorkers < 1 || o.FrameChunk != 1000 || o.TensorBatch != 1024 {
		t.Fatalf("defaults: %+v", o)
	}
}

func TestNew_NoStores(t *testing.T) {
	m := New(modkit.Deps{Cfg: config.New()})
	if m.Name() != "prep" {
		t.Fatalf("name: %s", m.Name())
	}
	p, ok := m.Ports().(Ports)
	if !ok || p.Runner == nil {
		t.Fatalf("ports: %#v", m.Ports())
	}
	_, err := p.Runner.Run(context.Background(), domain.Plan{Dir: t.TempDir(), Publish: true, Variables: nil})
	if err == nil {
		t.Fatalf("expected invalid plan error")
	}
	if err := m.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema without stores: %v", err)
	}
}

func TestStatementTimeoutHook(t *testing.T) {
	q := &execQ{}
	var hook repokit.BeginHook = statementTimeout(1500 * time.Millisecond)
	if err := hook(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if len(q.sqls) != 1 || q.sqls[0] != "SET LOCAL statement_timeout = 1500" {
		t.Fatalf("sql=%v", q.sqls)
	}
}
