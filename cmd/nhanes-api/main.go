// @title         NHANES prep API
// @version       0.1.0
// @description   Read only endpoints over published prep runs

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nhanes/internal/modkit/repokit"
	"nhanes/internal/platform/config"
	"nhanes/internal/platform/logger"
	phttp "nhanes/internal/platform/net/http"
	"nhanes/internal/platform/store"

	"nhanes/internal/services/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// service-scoped config for HTTP etc (NHANES_API_*)
	root := config.New()
	apiCfg := root.Prefix("NHANES_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	l := logger.Get()

	// the ledger is required to serve runs; ClickHouse is optional
	chURL := chCfg.MayString("DBURL", "")
	st, err := store.Open(ctx,
		store.Config{
			AppName: "nhanes",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled:   chURL != "",
				URL:       chURL,
				ClientTag: "api",
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	if err := repokit.Guard(ctx, st, 5*time.Second); err != nil {
		l.Panic().Err(err).Msg("store not ready")
	}

	// http server (reads NHANES_API_API_PORT)
	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	if err := srv.Run(ctx); err != nil {
		l.Error().Err(err).Msg("http server stopped")
	}
}
