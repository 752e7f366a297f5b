// Package http serves liveness, readiness and build metadata
package http

import (
	"context"
	"net/http"
	"time"

	"nhanes/internal/core/sensor"
	"nhanes/internal/core/version"
	"nhanes/internal/modkit/httpkit"
)

// Backend is one dependency /ready probes; a nil Seam is reported as skipped
type Backend struct {
	Name string
	Seam any
}

// Deps are what the meta routes report on
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Backends    []Backend
	// ProbeTimeout bounds each ping, 2s when zero
	ProbeTimeout time.Duration
}

type handlers struct {
	deps Deps
	now  func() time.Time
}

// Register mounts the meta routes on r
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d, now: time.Now}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
	httpkit.Get(r, "/generations", h.generations)
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"      example:"true"`
	Service string `json:"service" example:"nhanes-api"`
	Now     string `json:"now"     example:"2026-03-01T10:00:00Z"`
}

// Probe states
const (
	ProbeOK      = "ok"
	ProbeFail    = "fail"
	ProbeSkipped = "skipped"
	ProbeUnknown = "unknown"
)

// ReadyCheck is the outcome of probing one backend
type ReadyCheck struct {
	Name   string `json:"name"            example:"pg"`
	Status string `json:"status"          example:"ok"`
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432: connect: connection refused"`
	TookMs int64  `json:"took_ms"         example:"3"`
}

// ReadyResponse is ok when every backend answered, fail when one refused
// and degraded otherwise
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"`
	Checks []ReadyCheck `json:"checks"`
}

// ServiceResponse reports process uptime
type ServiceResponse struct {
	Name    string `json:"name"    example:"nhanes-api"`
	Started string `json:"started" example:"2026-03-01T09:55:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// GenerationResponse is the tensor shape of one accelerometer generation
type GenerationResponse struct {
	Name          string   `json:"name"           example:"gen2011"`
	Category      string   `json:"category"       example:"PAXMIN"`
	EpochSeconds  int      `json:"epoch_seconds"  example:"60"`
	EpochsPerDay  int      `json:"epochs_per_day" example:"1440"`
	CanonicalDays int      `json:"canonical_days" example:"7"`
	Channels      []string `json:"channels"`
}

// @Summary Liveness
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /meta/health [get]
func (h *handlers) health(*http.Request) (any, error) {
	return HealthResponse{OK: true, Service: h.deps.ServiceName, Now: h.now().UTC().Format(time.RFC3339)}, nil
}

// @Summary Readiness with one check per backend
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	out := ReadyResponse{Status: ProbeOK, Checks: make([]ReadyCheck, 0, len(h.deps.Backends))}
	for _, b := range h.deps.Backends {
		c := h.probe(ctx, b)
		out.Checks = append(out.Checks, c)
		switch {
		case c.Status == ProbeFail:
			out.Status = ProbeFail
		case c.Status != ProbeOK && out.Status == ProbeOK:
			out.Status = "degraded"
		}
	}
	return out, nil
}

func (h *handlers) probe(ctx context.Context, b Backend) ReadyCheck {
	c := ReadyCheck{Name: b.Name}
	if b.Seam == nil {
		c.Status = ProbeSkipped
		return c
	}
	p, ok := b.Seam.(interface{ Ping(context.Context) error })
	if !ok {
		c.Status = ProbeUnknown
		return c
	}
	timeout := h.deps.ProbeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := h.now()
	err := p.Ping(ctx)
	c.TookMs = h.now().Sub(start).Milliseconds()
	if err != nil {
		c.Status, c.Error = ProbeFail, err.Error()
		return c
	}
	c.Status = ProbeOK
	return c
}

// @Summary Build information
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo
// @Router /meta/version [get]
func (h *handlers) version(*http.Request) (any, error) {
	return version.Info(h.deps.ServiceName), nil
}

// @Summary Service uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse
// @Router /meta/service [get]
func (h *handlers) service(*http.Request) (any, error) {
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(h.now().Sub(h.deps.StartedAt) / time.Second),
	}, nil
}

// @Summary Accelerometer generations and their tensor shape
// @Tags Meta
// @Produce json
// @Success 200 {array} GenerationResponse
// @Router /meta/generations [get]
func (h *handlers) generations(*http.Request) (any, error) {
	gens := sensor.Generations()
	out := make([]GenerationResponse, 0, len(gens))
	for _, g := range gens {
		sp := g.Spec()
		names := make([]string, len(sp.Channels))
		for i, c := range sp.Channels {
			names[i] = c.Name
		}
		out = append(out, GenerationResponse{
			Name:          g.String(),
			Category:      sp.Category,
			EpochSeconds:  sp.EpochSeconds,
			EpochsPerDay:  sp.EpochsPerDay,
			CanonicalDays: sp.CanonicalDays,
			Channels:      names,
		})
	}
	return out, nil
}
