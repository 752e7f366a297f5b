package domain

import (
	"context"
	"io"

	"nhanes/internal/core/align"
)

// RunnerPort is the public port of the prep module
type RunnerPort interface {
	Run(ctx context.Context, plan Plan) (*Result, error)
}

// Source lists and opens input files
type Source interface {
	Catalog(ctx context.Context, dir string) ([]FileRef, error)
	Open(ctx context.Context, f FileRef) (io.ReadCloser, error)
}

// Codebook answers category and refusal code questions about variable codes
type Codebook interface {
	MissingCodes(code string) []float64
	Categories(codes []string) map[string]bool
}

// LedgerRepo persists a published run
type LedgerRepo interface {
	// InsertRun records the run header; false means the run id already exists
	InsertRun(ctx context.Context, s Summary) (bool, error)

	// InsertFiles records the per file reports of a run
	InsertFiles(ctx context.Context, runID string, files []FileReport) error

	// InsertIssues records the collected issues of a run
	InsertIssues(ctx context.Context, runID string, issues []Issue) error

	// InsertFrame records resolved subject rows
	InsertFrame(ctx context.Context, runID string, rows []FrameRow) error
}

// TensorSink stores aligned tensors
type TensorSink interface {
	Write(ctx context.Context, runID string, t *align.Tensor) (rows int, err error)
}
