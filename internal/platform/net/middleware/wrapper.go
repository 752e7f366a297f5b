// Package middleware wraps chi middleware and adds the in house ones
package middleware

import (
	"net/http"
	"time"

	pstrings "nhanes/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// RequestID attaches or propagates X-Request-ID and stores it on context
func RequestID() func(http.Handler) http.Handler { return chimw.RequestID }

// RealIP sets RemoteAddr from X-Forwarded-For or X-Real-IP
func RealIP() func(http.Handler) http.Handler { return chimw.RealIP }

// Timeout cancels the request context after d
func Timeout(d time.Duration) func(http.Handler) http.Handler { return chimw.Timeout(d) }

// NoCache disables client and proxy caching; published runs can be superseded
func NoCache() func(http.Handler) http.Handler { return chimw.NoCache }

// Compress wraps chi's compressor at the given flate level
func Compress(level int) func(http.Handler) http.Handler {
	c := chimw.NewCompressor(level)
	return c.Handler
}

// StripSlashes strips a trailing slash from the request path
func StripSlashes() func(http.Handler) http.Handler { return chimw.StripSlashes }

// Throttle caps concurrent requests; excess requests get 429
func Throttle(limit int) func(http.Handler) http.Handler { return chimw.Throttle(limit) }

// Heartbeat answers GET path with 200 before routing
func Heartbeat(path string) func(http.Handler) http.Handler { return chimw.Heartbeat(path) }

// CORSOptions is a narrow surface over go-chi/cors
type CORSOptions struct {
	AllowedOrigins []string
	AllowedHeaders []string
	MaxAge         int
}

// CORS allows cross origin reads of the API
func CORS(o CORSOptions) func(http.Handler) http.Handler {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: pstrings.IfEmpty(o.AllowedOrigins, []string{"*"}),
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: pstrings.IfEmpty(o.AllowedHeaders, []string{"Accept", "Authorization", "X-Request-ID"}),
		ExposedHeaders: []string{"X-Request-ID", "X-Caller"},
		MaxAge:         o.MaxAge,
	})
}
