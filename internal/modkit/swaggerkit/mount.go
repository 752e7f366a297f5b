// Package swaggerkit serves the API's OpenAPI document and Swagger UI
package swaggerkit

import (
	"net/http"

	phttp "nhanes/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Options configure the docs routes
type Options struct {
	Enabled bool
	// Base is the server url written into the document
	Base string
	// TitleSuffix is appended to the document title, e.g. "(staging)"
	TitleSuffix string
}

// Mount serves /docs/ (Swagger UI) and /docs/doc.json when enabled
func Mount(r phttp.Router, opt Options) {
	if !opt.Enabled {
		return
	}
	if opt.Base == "" {
		opt.Base = "/v1"
	}
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/docs/doc.json", docHandler(openAPI, opt.Base, opt.TitleSuffix))
	r.Handle("/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("nhanes"),
		httpSwagger.URL("/docs/doc.json"),
	))
}
