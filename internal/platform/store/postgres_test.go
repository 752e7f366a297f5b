package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nhanes/internal/platform/testkit"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func fastRetries(t *testing.T) {
	t.Helper()
	testkit.Serial(t)
	testkit.Swap(t, &retryBase, time.Millisecond)
	testkit.Swap(t, &retryCap, 2*time.Millisecond)
}

func TestWaitReady(t *testing.T) {
	fastRetries(t)
	refused := errors.New("connection refused")

	cases := []struct {
		name      string
		failFirst int
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"first ping", 0, 3, 1, false},
		{"after two failures", 2, 5, 3, false},
		{"never", 10, 4, 4, true},
		{"default attempts", 100, 0, 20, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			ping := func(ctx context.Context) error {
				calls++
				if _, ok := ctx.Deadline(); !ok {
					t.Fatalf("ping must run under a timeout")
				}
				if calls <= tc.failFirst {
					return refused
				}
				return nil
			}
			err := waitReady(context.Background(), ping, tc.attempts, time.Second)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
			if tc.wantErr && !errors.Is(err, refused) {
				t.Fatalf("last ping error must be wrapped: %v", err)
			}
			if calls != tc.wantCalls {
				t.Fatalf("calls=%d want %d", calls, tc.wantCalls)
			}
		})
	}
}

func TestWaitReady_Canceled(t *testing.T) {
	testkit.Serial(t)
	testkit.Swap(t, &retryBase, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	ping := func(context.Context) error {
		cancel()
		return errors.New("down")
	}
	if err := waitReady(ctx, ping, 5, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestOpenPG_PoolError(t *testing.T) {
	testkit.Serial(t)

	var seen *pgxpool.Config
	testkit.Swap(t, &newPool, func(_ context.Context, c *pgxpool.Config) (*pgxpool.Pool, error) {
		seen = c
		return nil, errors.New("boom")
	})

	cfg := PGConfig{URL: "postgres://u:p@h:5432/ledger?sslmode=disable", MaxConns: 7, LogSQL: true}
	_, err := openPG(context.Background(), "nhanes", cfg, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "pg: pool: boom") {
		t.Fatalf("err=%v", err)
	}
	if seen.MaxConns != 7 {
		t.Fatalf("MaxConns=%d", seen.MaxConns)
	}
	if got := seen.ConnConfig.RuntimeParams["application_name"]; got != "nhanes" {
		t.Fatalf("application_name=%q", got)
	}
	if _, ok := seen.ConnConfig.Tracer.(*sqlTracer); !ok {
		t.Fatalf("LogSQL must install the tracer, got %T", seen.ConnConfig.Tracer)
	}
}
