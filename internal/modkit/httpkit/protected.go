package httpkit

import (
	"nhanes/internal/platform/net/middleware"
)

// Protected groups routes behind bearer auth
// a nil port mounts them unguarded
func Protected(r Router, p *Port, fn func(Router)) {
	r.Group(func(gr Router) {
		if p != nil {
			gr.Use(Auth(p))
		}
		fn(gr)
	})
}

var _ middleware.AuthPort = (*Port)(nil)
