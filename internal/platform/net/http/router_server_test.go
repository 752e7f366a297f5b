package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nhanes/internal/platform/config"
	phttp "nhanes/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestNewServer(t *testing.T) {
	t.Run("default addr", func(t *testing.T) {
		t.Setenv("API_PORT", "")
		if got := phttp.NewServer(config.New()).Addr(); got != ":4000" {
			t.Fatalf("addr=%q", got)
		}
	})
	t.Run("addr from env", func(t *testing.T) {
		t.Setenv("API_PORT", ":12345")
		if got := phttp.NewServer(config.New()).Addr(); got != ":12345" {
			t.Fatalf("addr=%q", got)
		}
	})
	t.Run("options see the mux", func(t *testing.T) {
		var seen *chi.Mux
		srv := phttp.NewServer(config.New(), func(m *chi.Mux) { seen = m })
		if seen == nil {
			t.Fatal("option not invoked")
		}
		srv.Router().Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("pong")) })
		rec := httptest.NewRecorder()
		seen.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Body.String() != "pong" {
			t.Fatalf("router and option mux differ: %q", rec.Body.String())
		}
	})
}

func runServer(t *testing.T, ctx context.Context, srv *phttp.Server) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	return done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestServer_Run(t *testing.T) {
	t.Run("shutdown", func(t *testing.T) {
		t.Setenv("API_PORT", "127.0.0.1:0")
		srv := phttp.NewServer(config.New())
		done := runServer(t, context.Background(), srv)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
		waitRun(t, done)
	})

	t.Run("drains on cancel", func(t *testing.T) {
		t.Setenv("API_PORT", "127.0.0.1:0")
		srv := phttp.NewServer(config.New())
		ctx, cancel := context.WithCancel(context.Background())
		done := runServer(t, ctx, srv)
		cancel()
		waitRun(t, done)
	})

	t.Run("listen error", func(t *testing.T) {
		t.Setenv("API_PORT", "127.0.0.1:abc")
		if err := phttp.NewServer(config.New()).Run(context.Background()); err == nil {
			t.Fatal("want listen error")
		}
	})
}
