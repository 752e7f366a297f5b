// Package domain holds the types and ports of a prep run
package domain

import (
	"time"

	"nhanes/internal/adapters/ingest/nhanesfiles"
	"nhanes/internal/core/align"
	"nhanes/internal/core/resolve"
	"nhanes/internal/core/sensor"
	"nhanes/internal/core/subjects"
)

// FileRef re-exports the cataloged input shape
type FileRef = nhanesfiles.File

// FileStatus is the outcome of decoding one input file
type FileStatus string

const (
	FileOK      FileStatus = "ok"
	FileWarning FileStatus = "warning"
	FileFailed  FileStatus = "failed"
	FileSkipped FileStatus = "skipped"
)

// RunStatus is the outcome of a whole run
type RunStatus string

const (
	// RunOK means every needed file decoded
	RunOK RunStatus = "ok"
	// RunPartial means at least one file failed and was left out
	RunPartial RunStatus = "partial"
	// RunFailed means a fatal error stopped the run
	RunFailed RunStatus = "failed"
	// RunCanceled means the context ended before the run finished
	RunCanceled RunStatus = "canceled"
)

// FileReport describes what happened to one cataloged file
type FileReport struct {
	Path      string     `json:"path"`
	Name      string     `json:"name"`
	Category  string     `json:"category"`
	Cycle     int        `json:"cycle"`
	Kind      string     `json:"kind"`
	Gen       string     `json:"generation,omitempty"`
	Status    FileStatus `json:"status"`
	Rows      int        `json:"rows"`
	Declared  int        `json:"declared"`
	Subjects  int        `json:"subjects,omitempty"`
	Bytes     int64      `json:"bytes"`
	Columns   int        `json:"columns"`
	ElapsedMS int        `json:"elapsed_ms"`
	Err       string     `json:"error,omitempty"`
}

// Issue is one non-fatal finding collected during a run
// Kind is the snake_case name of the platform error code
type Issue struct {
	Kind       string `json:"kind"`
	Cycle      int    `json:"cycle,omitempty"`
	File       string `json:"file,omitempty"`
	Variable   string `json:"variable,omitempty"`
	Subject    int64  `json:"subject,omitempty"`
	Generation string `json:"generation,omitempty"`
	Detail     string `json:"detail"`
}

// TensorSummary describes the aligned tensor of one generation
type TensorSummary struct {
	Generation  string `json:"generation"`
	Subjects    int    `json:"subjects"`
	Excluded    int    `json:"excluded"`
	Duplicates  int    `json:"duplicates,omitempty"`
	Days        int    `json:"days"`
	Epochs      int    `json:"epochs"`
	Channels    int    `json:"channels"`
	ValidEpochs int64  `json:"valid_epochs"`

	// Truncated counts subjects recorded past the canonical week; their later
	// days were dropped earliest-first and summed into DiscardedEpochs
	Truncated       int   `json:"truncated"`
	DiscardedEpochs int64 `json:"discarded_epochs"`
}

// Summary is the serializable account of a run; it is what the ledger stores
type Summary struct {
	RunID           string             `json:"run_id"`
	Dir             string             `json:"dir"`
	StartedAt       time.Time          `json:"started_at"`
	FinishedAt      time.Time          `json:"finished_at"`
	Status          RunStatus          `json:"status"`
	Err             string             `json:"error,omitempty"`
	Files           []FileReport       `json:"files"`
	Subjects        int                `json:"subjects"`
	SubjectsByCycle map[int]int        `json:"subjects_by_cycle"`
	FrameRows       int                `json:"frame_rows"`
	Variables       []string           `json:"variables"`
	Completeness    map[string]float64 `json:"completeness"`
	Tensors         []TensorSummary    `json:"tensors"`
	Issues          []Issue            `json:"issues"`
	IssueCounts     map[string]int     `json:"issue_counts"`
	Published       bool               `json:"published"`
}

// Result is the in-memory output of a run
type Result struct {
	Summary Summary
	Frame   *resolve.Frame
	Tensors map[sensor.Generation]*align.Tensor
	Index   *subjects.Index
}

// Plan is the input of a run
type Plan struct {
	// RunID is generated when empty
	RunID string
	// Dir holds the transport, sensor and mortality files
	Dir       string
	Variables []resolve.Variable
	// Codebook is optional; it restricts decoded categories and decodes refusal codes
	Codebook Codebook
	// Coalesce fills missing values from later alternatives of the same cycle
	Coalesce bool
	// Mortality reports cycles without a linkage file as unavailable
	Mortality bool
	// Generations limits sensor decoding; empty means all
	Generations []sensor.Generation
	// Publish writes the run to the configured ledger and tensor sink
	Publish bool
}

// FrameRow is one resolved subject as persisted by the ledger
type FrameRow struct {
	Subject int64          `json:"seqn"`
	Cycle   int            `json:"cycle"`
	Values  map[string]any `json:"values"`
}
