package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "nhanes/internal/platform/errors"
	pnet "nhanes/internal/platform/net"
	phttp "nhanes/internal/platform/net/http"
)

func reqWithReqID(path, id string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	return r.WithContext(pnet.WithRequest(r.Context(), id))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestHandle(t *testing.T) {
	withHeader := phttp.OK("x")
	withHeader.Header = http.Header{"X-Run": {"r1"}}

	cases := []struct {
		name       string
		resp       phttp.Response
		wantStatus int
		wantKind   string
		wantData   any
	}{
		{name: "ok", resp: phttp.OK(map[string]any{"seqn": 7.0}), wantStatus: 200, wantData: map[string]any{"seqn": 7.0}},
		{name: "zero status defaults to 200", resp: phttp.Response{Body: "x"}, wantStatus: 200, wantData: "x"},
		{name: "header", resp: withHeader, wantStatus: 200, wantData: "x"},
		{name: "no content", resp: phttp.NoContent(), wantStatus: 204},
		{name: "project error", resp: phttp.Error(perr.NotFoundf("run r1")), wantStatus: 404, wantKind: "not_found"},
		{name: "foreign error", resp: phttp.Error(errors.New("boom")), wantStatus: 500, wantKind: "unknown"},
		{name: "result error", resp: phttp.Result(nil, perr.InvalidArgf("bad")), wantStatus: 422, wantKind: "invalid_argument"},
		{name: "result passthrough", resp: phttp.Result(phttp.NoContent(), nil), wantStatus: 204},
		{name: "result value", resp: phttp.Result([]any{1.0}, nil), wantStatus: 200, wantData: []any{1.0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			phttp.Handle(func(*http.Request) phttp.Response { return c.resp })(rec, reqWithReqID("/x", "rid-1"))

			if rec.Code != c.wantStatus {
				t.Fatalf("status=%d want %d", rec.Code, c.wantStatus)
			}
			if c.wantStatus == http.StatusNoContent {
				if rec.Body.Len() != 0 {
					t.Fatalf("204 with body %q", rec.Body.String())
				}
				return
			}
			env := decode(t, rec)
			if env.StatusCode != c.wantStatus || env.RequestID != "rid-1" || env.Kind != c.wantKind {
				t.Fatalf("envelope: %+v", env)
			}
			if c.wantData != nil {
				got, _ := json.Marshal(env.Data)
				want, _ := json.Marshal(c.wantData)
				if string(got) != string(want) {
					t.Fatalf("data=%s want %s", got, want)
				}
			}
			if c.resp.Header != nil && rec.Header().Get("X-Run") != "r1" {
				t.Fatalf("header not copied")
			}
		})
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	phttp.JSON(rec, http.StatusAccepted, map[string]string{"a": "b"})
	if rec.Code != http.StatusAccepted || rec.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("code=%d ct=%q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "{\"a\":\"b\"}\n" {
		t.Fatalf("body=%q", rec.Body.String())
	}
}
