package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func TestSQLTracer(t *testing.T) {
	cases := []struct {
		name      string
		took      time.Duration
		err       error
		wantLevel string
		wantSlow  bool
	}{
		{"fast", 2 * time.Millisecond, nil, "info", false},
		{"slow", 600 * time.Millisecond, nil, "warn", true},
		{"failed", time.Millisecond, errors.New("syntax error"), "error", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			tr := newSQLTracer(zerolog.New(&buf), 500*time.Millisecond)
			start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			clock := start
			tr.now = func() time.Time { return clock }

			ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
				SQL:  "SELECT seqn\n\t  FROM run_issues\n WHERE run_id = $1",
				Args: []any{"run-1"},
			})
			clock = start.Add(tc.took)
			tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 3"), Err: tc.err})

			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("decode %q: %v", buf.String(), err)
			}
			if line["level"] != tc.wantLevel || line["slow"] != tc.wantSlow {
				t.Fatalf("level=%v slow=%v", line["level"], line["slow"])
			}
			if line["sql"] != "SELECT seqn FROM run_issues WHERE run_id = $1" {
				t.Fatalf("sql=%q", line["sql"])
			}
			if line["args"] != float64(1) || line["rows"] != float64(3) || line["component"] != "pg" {
				t.Fatalf("fields: %v", line)
			}
			if bytes.Contains(buf.Bytes(), []byte("run-1")) {
				t.Fatalf("argument values must not be logged")
			}
		})
	}
}

func TestSQLTracer_NoStart(t *testing.T) {
	var buf bytes.Buffer
	tr := newSQLTracer(zerolog.New(&buf), 0)
	tr.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	if buf.Len() != 0 {
		t.Fatalf("an end without a start logs nothing, got %q", buf.String())
	}
}
