// Package module provides the prep module implementation
package module

import (
	"context"
	"fmt"
	"time"

	"nhanes/internal/modkit"
	"nhanes/internal/modkit/httpkit"
	"nhanes/internal/modkit/repokit"
	"nhanes/internal/services/prep/domain"
	"nhanes/internal/services/prep/ingest"
	"nhanes/internal/services/prep/repo"
	"nhanes/internal/services/prep/service"
	"nhanes/internal/services/prep/sink"
)

// Ports defines the prep module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the prep module
type Module struct {
	deps  modkit.Deps
	opts  Options
	sink  *sink.CH
	ports Ports
}

// New constructs the prep module
// The ledger is wired when deps.PG is set and the tensor sink when deps.CH is set
// It does not mount any routes.
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	m := &Module{deps: deps, opts: opts}

	var db repokit.TxRunner
	if deps.HasLedger() {
		db = deps.PG
		if opts.StatementTimeout > 0 {
			db = repokit.WithBeginHooks(db, statementTimeout(opts.StatementTimeout))
		}
	}
	var ts domain.TensorSink
	if deps.HasWarehouse() {
		m.sink = sink.New(deps.CH, opts.TensorBatch)
		ts = m.sink
	}

	svc := service.New(
		ingest.NewSource(), db, repo.NewPG(), ts,
		service.Config{
			DecodeWorkers: opts.DecodeWorkers,
			AlignWorkers:  opts.AlignWorkers,
			RunTimeout:    opts.RunTimeout,
			FileTimeout:   opts.FileTimeout,
			AlignTimeout:  opts.AlignTimeout,
			DBTimeout:     opts.DBTimeout,
			FrameChunk:    opts.FrameChunk,
		},
	)
	m.ports = Ports{Runner: svc}
	return m
}

// EnsureSchema creates the ledger tables and the tensor table for the wired stores
func (m *Module) EnsureSchema(ctx context.Context) error {
	if m.deps.HasLedger() {
		if err := repo.EnsureSchema(ctx, m.deps.PG); err != nil {
			return fmt.Errorf("prep: ledger schema: %w", err)
		}
	}
	if m.sink != nil {
		if err := m.sink.EnsureTable(ctx); err != nil {
			return fmt.Errorf("prep: tensor table: %w", err)
		}
	}
	return nil
}

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return "prep" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op; prep runs from the CLI
func (m *Module) MountRoutes(httpkit.Router) {}

var _ modkit.Module = (*Module)(nil)

// statementTimeout bounds every ledger statement of a publish transaction
func statementTimeout(d time.Duration) repokit.BeginHook {
	ms := d.Milliseconds()
	return func(ctx context.Context, q repokit.Queryer) error {
		_, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", ms))
		return err
	}
}
