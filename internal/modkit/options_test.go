package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"nhanes/internal/modkit/httpkit"
	phttp "nhanes/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestBuild(t *testing.T) {
	defaults := []Option{WithName("runs"), WithPrefix("runs/")}

	b := Build(defaults)
	if b.Name != "runs" || b.Prefix != "/runs" {
		t.Fatalf("defaults: %+v", b)
	}
	b = Build(defaults, WithPrefix("/published"))
	if b.Prefix != "/published" {
		t.Fatalf("override: %+v", b)
	}

	for name, opts := range map[string][]Option{
		"no name":   {WithPrefix("/x")},
		"no prefix": {WithName("x")},
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			Build(opts)
		})
	}
}

func TestBuilt_Mount(t *testing.T) {
	mark := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Module", "runs")
			next.ServeHTTP(w, r)
		})
	}
	b := Build([]Option{WithName("runs"), WithPrefix("/runs")},
		WithMiddlewares(mark),
		WithExtra(func(r httpkit.Router) {
			httpkit.Get(r, "/extra", func(*http.Request) (any, error) { return "extra", nil })
		}),
	)
	r := phttp.AdaptChi(chi.NewRouter())
	b.Mount(r, func(rr httpkit.Router) {
		httpkit.Get(rr, "/{runID}", func(req *http.Request) (any, error) { return chi.URLParam(req, "runID"), nil })
	})

	for _, path := range []string{"/runs/r1", "/runs/extra"} {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Header().Get("X-Module") != "runs" {
			t.Fatalf("GET %s: code=%d header=%q", path, rec.Code, rec.Header().Get("X-Module"))
		}
	}
}
