package domain

import "context"

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Run(ctx context.Context, runID string) (Run, error)
	Issues(ctx context.Context, runID string, q IssuesQuery) ([]Issue, error)
	Subject(ctx context.Context, runID string, seqn int64) (SubjectRow, error)
}
