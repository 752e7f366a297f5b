package modkit

import (
	"net/http"

	"nhanes/internal/modkit/httpkit"
	pstrings "nhanes/internal/platform/strings"
)

// Option mutates build configuration for a module
type Option func(*Built)

// Built is the resolved module configuration
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	// Extra attaches routes beside the module's own
	Extra func(httpkit.Router)
}

// WithName sets a module name used in logs and the registry
func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix mounts a module under a path prefix
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares attaches per module middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw, mw...) }
}

// WithExtra registers additional routes on the module router
func WithExtra(fn func(httpkit.Router)) Option { return func(b *Built) { b.Extra = fn } }

// Build applies defaults then opts; name and prefix are required
func Build(defaults []Option, opts ...Option) Built {
	var b Built
	for _, o := range append(defaults, opts...) {
		o(&b)
	}
	b.Name = pstrings.MustString(b.Name, "module name")
	b.Prefix = pstrings.MustPrefix(b.Prefix)
	return b
}

// Mount routes the module prefix, applies its middleware, then its routes and any extras
func (b Built) Mount(r httpkit.Router, register func(httpkit.Router)) {
	r.Route(b.Prefix, func(rr httpkit.Router) {
		if len(b.Mw) > 0 {
			rr.Use(b.Mw...)
		}
		register(rr)
		if b.Extra != nil {
			b.Extra(rr)
		}
	})
}
