// Package ingest adapts the file catalog and the local filesystem to the prep ports
package ingest

import (
	"context"
	"io"
	"os"

	"nhanes/internal/adapters/ingest/nhanesfiles"
	"nhanes/internal/services/prep/domain"
)

// Dir is a domain.Source over a local directory
type Dir struct{}

// NewSource returns the filesystem source
func NewSource() domain.Source { return Dir{} }

// Catalog lists every known input under dir
func (Dir) Catalog(ctx context.Context, dir string) ([]domain.FileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nhanesfiles.Catalog(dir)
}

// Open opens f for reading; reads fail once ctx ends
func (Dir) Open(ctx context.Context, f domain.FileRef) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	return &ctxFile{ctx: ctx, f: fh}, nil
}

type ctxFile struct {
	ctx context.Context
	f   *os.File
}

func (c *ctxFile) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.f.Read(p)
}

func (c *ctxFile) Close() error { return c.f.Close() }

// Name lets callers tell a file-backed reader apart
func (c *ctxFile) Name() string { return c.f.Name() }
