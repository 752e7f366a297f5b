// Package net provides utilities for working with request contexts
package net

import (
	"context"

	"nhanes/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// WithRequest annotates context with the request id for chi and for logger.C
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	// set chi RequestID so chimw.GetReqID can retrieve it
	ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	return logger.WithRequest(ctx, reqID)
}

// RequestID returns the request id on the context if present
func RequestID(ctx context.Context) string {
	return chimw.GetReqID(ctx)
}
