// Package module wires the run ledger read API
package module

import (
	"nhanes/internal/modkit"
	"nhanes/internal/modkit/httpkit"
	"nhanes/internal/modkit/swaggerkit"
	runshttp "nhanes/internal/services/api/runs/http"
	runsrepo "nhanes/internal/services/api/runs/repo"
	runssvc "nhanes/internal/services/api/runs/service"
)

// Module implements the runs module
type Module struct {
	b     modkit.Built
	svc   runssvc.Service
	ports Ports
}

// New constructs the runs module; deps.PG must be set
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	svc := runssvc.New(deps.PG, runsrepo.NewPG())
	return &Module{
		b:     modkit.Build([]modkit.Option{modkit.WithName("runs"), modkit.WithPrefix("/runs")}, opts...),
		svc:   svc,
		ports: Ports{Runs: svc},
	}
}

func init() {
	swaggerkit.Register(describeTag)
}

// describeTag documents the Runs tag when the served document lacks it
func describeTag(spec map[string]any) {
	tags, _ := spec["tags"].([]any)
	for _, t := range tags {
		if m, ok := t.(map[string]any); ok && m["name"] == "Runs" {
			return
		}
	}
	spec["tags"] = append(tags, map[string]any{
		"name":        "Runs",
		"description": "Published prep runs: summaries, issues and resolved subject rows",
	})
}

// MountRoutes mounts /runs/*
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { runshttp.Register(rr, m.svc) })
}

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }
