// Package http provides http transport for published runs
package http

import (
	stdhttp "net/http"
	"strconv"

	"nhanes/internal/modkit/httpkit"
	perr "nhanes/internal/platform/errors"
	"nhanes/internal/platform/net/http/bind"
	"nhanes/internal/services/api/runs/domain"
	svc "nhanes/internal/services/api/runs/service"

	"github.com/go-chi/chi/v5"
)

// Register mounts runs endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}
	httpkit.Get(r, "/{runID}", h.run)
	httpkit.Get(r, "/{runID}/issues", h.issues)
	httpkit.Get(r, "/{runID}/subjects/{seqn}", h.subject)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /runs/{runID} Runs runsGet
// @Summary Published run summary
// @Tags Runs
// @Produce json
// @Param runID path string true "Run id"
// @Success 200 {object} domain.Run "ok"
// @Router /runs/{runID} [get]
func (h *handlers) run(r *stdhttp.Request) (any, error) {
	return h.svc.Run(r.Context(), chi.URLParam(r, "runID"))
}

// swagger:route GET /runs/{runID}/issues Runs runsIssues
// @Summary Issues recorded by a run
// @Tags Runs
// @Produce json
// @Param runID path string true "Run id"
// @Param kind query string false "Issue kind"
// @Param cycle query int false "Survey cycle start year"
// @Param limit query int false "Max rows, 1..1000"
// @Success 200 {array} domain.Issue "ok"
// @Router /runs/{runID}/issues [get]
func (h *handlers) issues(r *stdhttp.Request) (any, error) {
	q, err := bind.ParseQuery[domain.IssuesQuery](r)
	if err != nil {
		return nil, err
	}
	return h.svc.Issues(r.Context(), chi.URLParam(r, "runID"), q)
}

// swagger:route GET /runs/{runID}/subjects/{seqn} Runs runsSubject
// @Summary Resolved frame row of one subject
// @Tags Runs
// @Produce json
// @Param runID path string true "Run id"
// @Param seqn path int true "Respondent sequence number"
// @Success 200 {object} domain.SubjectRow "ok"
// @Router /runs/{runID}/subjects/{seqn} [get]
func (h *handlers) subject(r *stdhttp.Request) (any, error) {
	seqn, err := strconv.ParseInt(chi.URLParam(r, "seqn"), 10, 64)
	if err != nil {
		return nil, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "seqn must be a valid int"), "seqn")
	}
	return h.svc.Subject(r.Context(), chi.URLParam(r, "runID"), seqn)
}
