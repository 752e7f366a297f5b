// Package logger provides a zerolog wrapper with opinionated defaults and
// request and run scoped logging support
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nhanes/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the root logger
type Options struct {
	Level       string // trace debug info warn error; anything else is debug
	Format      string // console or json
	Service     string
	Writer      io.Writer
	WithCaller  bool
	SampleEvery int
}

// FromEnv reads LOG_* through the raw config view, which does not log
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       rc.Get("LEVEL", "debug"),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once sync.Once
	root atomic.Pointer[zerolog.Logger]
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Get returns the process-wide root logger, building it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Init builds the root logger; only the first call has any effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var w io.Writer = os.Stdout
		if opt.Writer != nil {
			w = opt.Writer
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if bi, ok := debug.ReadBuildInfo(); ok {
			ctx = ctx.Str("go_version", bi.GoVersion)
		}
		if opt.Service != "" {
			ctx = ctx.Str("service", opt.Service)
		}
		if opt.WithCaller {
			ctx = ctx.Caller()
		}
		log := ctx.Logger()
		if opt.SampleEvery > 1 {
			log = log.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
		}
		root.Store(&log)
	})
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.DebugLevel
	}
	return lvl
}

type ctxKey struct{ name string }

var (
	keyRequestID = ctxKey{"req_id"}
	keyRunID     = ctxKey{"run_id"}
	keyFile      = ctxKey{"file"}
)

func withString(ctx context.Context, k ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

// WithRequest annotates ctx with the http request id
func WithRequest(ctx context.Context, reqID string) context.Context {
	return withString(ctx, keyRequestID, reqID)
}

// WithRun annotates ctx with the prep run id
func WithRun(ctx context.Context, runID string) context.Context {
	return withString(ctx, keyRunID, runID)
}

// WithFile annotates ctx with the input file being processed
func WithFile(ctx context.Context, file string) context.Context {
	return withString(ctx, keyFile, file)
}

// C returns a child logger enriched from ctx (request_id, run_id, file)
func C(ctx context.Context) *Logger {
	builder := Get().With()
	for _, f := range []struct {
		key   ctxKey
		field string
	}{
		{keyRequestID, "request_id"},
		{keyRunID, "run_id"},
		{keyFile, "file"},
	} {
		if s, ok := ctx.Value(f.key).(string); ok && s != "" {
			builder = builder.Str(f.field, s)
		}
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
