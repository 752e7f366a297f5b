// Command nhanes-prep decodes NHANES releases into an analysis frame and accelerometer tensors
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nhanes/internal/core/version"
	"nhanes/internal/modkit/repokit"
	"nhanes/internal/platform/config"
	"nhanes/internal/platform/logger"
	"nhanes/internal/platform/store"

	"github.com/spf13/cobra"
)

// exit codes
const (
	exitOK      = 0
	exitFailed  = 1
	exitPartial = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the command tree and maps the outcome to an exit code
func execute(ctx context.Context, args []string) int {
	// stdout carries the run summary, logs go to stderr
	opt := logger.FromEnv()
	opt.Writer = os.Stderr
	logger.Init(opt)

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if e, ok := err.(exitError); ok {
			return e.code
		}
		_, _ = fmt.Fprintln(root.ErrOrStderr(), "error:", err)
		return exitFailed
	}
	return exitOK
}

// exitError carries a non zero exit code after output was already written
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nhanes-prep",
		Short: "Prepare NHANES survey releases for modeling",
		Long: `nhanes-prep reads a directory of NHANES transport files, mortality linkage files
and accelerometer files, resolves requested variables across survey cycles, and aligns
minute level wear data into fixed seven day tensors.

Storage is optional: set SERVICE_PGSQL_DBURL to publish the run ledger and frame, and
SERVICE_CLICKHOUSE_DBURL to publish tensors. Without either the run only prints its summary.`,
		Version:       version.Info("nhanes-prep").Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newInspectCmd(), newMortalityCmd())
	return root
}

// mustSetEnv surfaces a flag to modules that read their options from the environment
func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

// openStore opens the backends that have a URL configured
func openStore(ctx context.Context, root config.Conf) (*store.Store, error) {
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	pgURL := pgCfg.MayString("DBURL", "")
	chURL := chCfg.MayString("DBURL", "")

	st, err := store.Open(ctx, store.Config{
		AppName: "nhanes",
		PG: store.PGConfig{
			Enabled:     pgURL != "",
			URL:         pgURL,
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:   chURL != "",
			URL:       chURL,
			ClientTag: "prep",
		},
	}, store.WithLogger(*logger.Get()))
	if err != nil {
		return nil, err
	}
	if err := repokit.Guard(ctx, st, root.MayDuration("STORE_GUARD_TIMEOUT", 5*time.Second)); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	return st, nil
}
