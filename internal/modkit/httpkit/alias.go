// Package httpkit is the HTTP surface modules build on
// modules import it instead of internal/platform/net/http
package httpkit

import (
	"net/http"

	phttp "nhanes/internal/platform/net/http"
)

type (
	// Router is the platform router seam
	Router = phttp.Router

	// Response is the return-style handler result
	Response = phttp.Response
)

// NoContent returns a 204 response
func NoContent() Response { return phttp.NoContent() }

// Get mounts a read handler; its value is enveloped and its error mapped to a status
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.Handle(func(req *http.Request) phttp.Response {
		return phttp.Result(h(req))
	}))
}
