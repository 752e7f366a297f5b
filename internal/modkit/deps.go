package modkit

import (
	"nhanes/internal/modkit/repokit"
	"nhanes/internal/platform/config"
	"nhanes/internal/platform/logger"
	"nhanes/internal/platform/store"
)

// Deps is what a module is built from
// PG is the run ledger and CH the tensor warehouse; either is nil when not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// HasLedger reports whether runs can be recorded and read back
func (d Deps) HasLedger() bool { return d.PG != nil }

// HasWarehouse reports whether aligned tensors can be published
func (d Deps) HasWarehouse() bool { return d.CH != nil }
