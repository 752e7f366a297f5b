package module

import (
	"runtime"
	"time"

	"nhanes/internal/platform/config"
)

// Options holds configuration options for the prep service
type Options struct {
	DecodeWorkers int
	AlignWorkers  int

	RunTimeout       time.Duration
	FileTimeout      time.Duration
	AlignTimeout     time.Duration
	DBTimeout        time.Duration
	StatementTimeout time.Duration

	FrameChunk  int
	TensorBatch int

	// EnsureSchema creates ledger and tensor tables before use
	EnsureSchema bool
}

// FromConfig reads the prep options from config with PREP_ prefix
func FromConfig(cfg config.Conf) Options {
	p := cfg.Prefix("PREP_")
	cpus := runtime.NumCPU()
	return Options{
		DecodeWorkers:    p.MayInt("DECODE_WORKERS", min(cpus, 4)),
		AlignWorkers:     p.MayInt("ALIGN_WORKERS", cpus),
		RunTimeout:       p.MayDuration("RUN_TIMEOUT", 0),
		FileTimeout:      p.MayDuration("FILE_TIMEOUT", 10*time.Minute),
		AlignTimeout:     p.MayDuration("ALIGN_TIMEOUT", 10*time.Minute),
		DBTimeout:        p.MayDuration("DB_TIMEOUT", 5*time.Minute),
		StatementTimeout: p.MayDuration("STATEMENT_TIMEOUT", 0),
		FrameChunk:       p.MayInt("FRAME_CHUNK", 1000),
		TensorBatch:      p.MayInt("TENSOR_BATCH", 1024),
		EnsureSchema:     p.MayBool("ENSURE_SCHEMA", false),
	}
}
