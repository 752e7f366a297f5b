package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	phttp "nhanes/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func fixedClock(at time.Time) func() time.Time { return func() time.Time { return at } }

func TestReady(t *testing.T) {
	refused := errors.New("refused")
	cases := []struct {
		name    string
		pg, ch  any
		overall string
		checks  []ReadyCheck
	}{
		{"all up", pinger{}, pinger{}, ProbeOK, []ReadyCheck{{Name: "pg", Status: ProbeOK}, {Name: "ch", Status: ProbeOK}}},
		{"no clickhouse", pinger{}, nil, "degraded", []ReadyCheck{{Name: "pg", Status: ProbeOK}, {Name: "ch", Status: ProbeSkipped}}},
		{"pg down", pinger{err: refused}, nil, ProbeFail, []ReadyCheck{{Name: "pg", Status: ProbeFail, Error: "refused"}, {Name: "ch", Status: ProbeSkipped}}},
		{"not a pinger", struct{}{}, pinger{}, "degraded", []ReadyCheck{{Name: "pg", Status: ProbeUnknown}, {Name: "ch", Status: ProbeOK}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &handlers{
				deps: Deps{Backends: []Backend{{"pg", tc.pg}, {"ch", tc.ch}}},
				now:  fixedClock(time.Unix(0, 0)),
			}
			out, err := h.ready(httptest.NewRequest(http.MethodGet, "/ready", nil))
			if err != nil {
				t.Fatal(err)
			}
			want := ReadyResponse{Status: tc.overall, Checks: tc.checks}
			if diff := cmp.Diff(want, out); diff != "" {
				t.Fatalf("ready (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReady_ProbeHasDeadline(t *testing.T) {
	var sawDeadline bool
	p := pingFunc(func(ctx context.Context) error {
		_, sawDeadline = ctx.Deadline()
		return nil
	})
	h := &handlers{deps: Deps{Backends: []Backend{{"pg", p}}, ProbeTimeout: time.Second}, now: time.Now}
	if _, err := h.ready(nil); err != nil {
		t.Fatal(err)
	}
	if !sawDeadline {
		t.Fatalf("ping ran without a deadline")
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestService_Uptime(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 55, 0, 0, time.UTC)
	h := &handlers{
		deps: Deps{ServiceName: "nhanes-api", StartedAt: started},
		now:  fixedClock(started.Add(90 * time.Second)),
	}
	out, _ := h.service(nil)
	want := ServiceResponse{Name: "nhanes-api", Started: "2026-03-01T09:55:00Z", Uptime: 90}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("service (-want +got):\n%s", diff)
	}
}

func TestGenerations(t *testing.T) {
	out, _ := (&handlers{}).generations(nil)
	gens := out.([]GenerationResponse)
	if len(gens) == 0 {
		t.Fatal("no generations")
	}
	for _, g := range gens {
		if g.EpochSeconds*g.EpochsPerDay != 86400 || len(g.Channels) == 0 {
			t.Fatalf("generation shape: %+v", g)
		}
	}
}

func TestRegister_Routes(t *testing.T) {
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), Deps{ServiceName: "nhanes-api", StartedAt: time.Now()})

	for _, path := range []string{"/health", "/ready", "/version", "/service", "/generations"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s = %d: %s", path, rr.Code, rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	var env struct {
		Data HealthResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(HealthResponse{OK: true, Service: "nhanes-api"}, env.Data, cmpopts.IgnoreFields(HealthResponse{}, "Now")); diff != "" {
		t.Fatalf("health (-want +got):\n%s", diff)
	}
}
