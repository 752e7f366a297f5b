// Package module mounts the meta endpoints
package module

import (
	"time"

	"nhanes/internal/modkit"
	"nhanes/internal/modkit/httpkit"

	metahttp "nhanes/internal/services/api/meta/http"
)

// Module serves health, readiness, version and generation metadata
type Module struct {
	b    modkit.Built
	deps metahttp.Deps
}

// New constructs the meta module
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	return &Module{
		b: modkit.Build([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...),
		deps: metahttp.Deps{
			ServiceName: "nhanes-api",
			StartedAt:   time.Now(),
			Backends:    []metahttp.Backend{{Name: "pg", Seam: deps.PG}, {Name: "ch", Seam: deps.CH}},
		},
	}
}

// MountRoutes mounts /meta/*
func (m *Module) MountRoutes(r httpkit.Router) {
	m.b.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.deps) })
}

// Name returns the module name
func (m *Module) Name() string { return m.b.Name }

// Ports is nil; meta exposes nothing to other modules
func (m *Module) Ports() any { return nil }
