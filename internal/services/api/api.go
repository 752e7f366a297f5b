// Package api provides the HTTP API over published prep runs
package api

import (
	"nhanes/internal/platform/config"
	"nhanes/internal/platform/logger"
	phttp "nhanes/internal/platform/net/http"
	"nhanes/internal/platform/store"

	"nhanes/internal/modkit"
	"nhanes/internal/modkit/httpkit"
	"nhanes/internal/modkit/module"
	"nhanes/internal/modkit/swaggerkit"

	metamod "nhanes/internal/services/api/meta/module"
	runsmod "nhanes/internal/services/api/runs/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
// the runs module needs Postgres; without it only meta routes are served
func Mount(r phttp.Router, opt Options) {
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	open := []module.Module{metamod.New(deps)}
	var guarded []module.Module
	if deps.HasLedger() {
		guarded = append(guarded, runsmod.New(deps))
	} else {
		logger.Get().Warn().Msg("api: postgres disabled, runs routes not mounted")
	}

	// NHANES_API_TOKEN guards published data; meta stays open for probes
	token := httpkit.StaticToken(opt.Config.MayString("TOKEN", ""), "reader")
	if token == nil && len(guarded) > 0 {
		logger.Get().Warn().Msg("api: no read token configured, runs routes are open")
	}

	swaggerkit.Mount(r, swaggerkit.Options{
		Enabled:     opt.EnableSwagger,
		Base:        "/v1",
		TitleSuffix: opt.Config.MayString("DOCS_TITLE_SUFFIX", ""),
	})
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range open {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
		httpkit.Protected(api, token, func(gr httpkit.Router) {
			for _, m := range guarded {
				module.Register(m.Name(), m.Ports())
				m.MountRoutes(gr)
			}
		})
	})
}
