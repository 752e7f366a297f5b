package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "nhanes/internal/platform/errors"
	phttp "nhanes/internal/platform/net/http"
	"nhanes/internal/services/api/runs/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
)

type fakeSvc struct {
	gotRun  string
	gotSeqn int64
	gotQ    domain.IssuesQuery
}

func (f *fakeSvc) Run(_ context.Context, runID string) (domain.Run, error) {
	f.gotRun = runID
	if runID == "missing" {
		return domain.Run{}, perr.NotFoundf("run %s not found", runID)
	}
	return domain.Run{RunID: runID, Status: "ok", Summary: json.RawMessage(`{"run_id":"` + runID + `"}`)}, nil
}

func (f *fakeSvc) Issues(_ context.Context, runID string, q domain.IssuesQuery) ([]domain.Issue, error) {
	f.gotRun, f.gotQ = runID, q
	return []domain.Issue{{Ordinal: 0, Kind: "subject_excluded", Subject: 62161, Detail: "no valid epochs"}}, nil
}

func (f *fakeSvc) Subject(_ context.Context, runID string, seqn int64) (domain.SubjectRow, error) {
	f.gotRun, f.gotSeqn = runID, seqn
	return domain.SubjectRow{RunID: runID, Subject: seqn, Cycle: 2011, Values: map[string]any{"age": 40.0}}, nil
}

func serve(t *testing.T, s *fakeSvc, path string) (*httptest.ResponseRecorder, phttp.Envelope) {
	t.Helper()
	mux := chi.NewRouter()
	phttp.AdaptChi(mux).Route("/runs", func(r phttp.Router) { Register(r, s) })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func TestRun(t *testing.T) {
	s := &fakeSvc{}
	rec, env := serve(t, s, "/runs/run-1")
	if rec.Code != http.StatusOK || s.gotRun != "run-1" {
		t.Fatalf("code=%d run=%q", rec.Code, s.gotRun)
	}
	data, _ := env.Data.(map[string]any)
	sum, _ := data["summary"].(map[string]any)
	if data["status"] != "ok" || sum["run_id"] != "run-1" {
		t.Fatalf("data: %+v", env.Data)
	}

	rec, env = serve(t, s, "/runs/missing")
	if rec.Code != http.StatusNotFound || env.Code != perr.ErrorCodeNotFound {
		t.Fatalf("missing run: code=%d env=%+v", rec.Code, env)
	}
}

func TestIssues_BindsQuery(t *testing.T) {
	s := &fakeSvc{}
	rec, _ := serve(t, s, "/runs/run-1/issues?kind=subject_excluded&cycle=2011&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
	}
	want := domain.IssuesQuery{Kind: "subject_excluded", Cycle: 2011, Limit: 5}
	if diff := cmp.Diff(want, s.gotQ); diff != "" {
		t.Fatalf("query (-want +got):\n%s", diff)
	}
}

func TestIssues_RejectsBadQuery(t *testing.T) {
	cases := []string{
		"/runs/run-1/issues?cycle=2012",
		"/runs/run-1/issues?cycle=1997",
		"/runs/run-1/issues?limit=0x",
		"/runs/run-1/issues?limit=5000",
	}
	for _, path := range cases {
		rec, env := serve(t, &fakeSvc{}, path)
		if rec.Code != http.StatusBadRequest || env.Error == "" {
			t.Errorf("%s: code=%d env=%+v", path, rec.Code, env)
		}
	}
}

func TestSubject(t *testing.T) {
	s := &fakeSvc{}
	rec, env := serve(t, s, "/runs/run-1/subjects/62161")
	if rec.Code != http.StatusOK || s.gotSeqn != 62161 {
		t.Fatalf("code=%d seqn=%d", rec.Code, s.gotSeqn)
	}
	data, _ := env.Data.(map[string]any)
	vals, _ := data["values"].(map[string]any)
	if vals["age"] != 40.0 || data["cycle"] != 2011.0 {
		t.Fatalf("data: %+v", env.Data)
	}

	rec, _ = serve(t, s, "/runs/run-1/subjects/abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad seqn: code=%d", rec.Code)
	}
}
