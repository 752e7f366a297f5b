package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	phttp "nhanes/internal/platform/net/http"
	"nhanes/internal/platform/net/middleware"
)

// CommonStack is the middleware every versioned API scope gets
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLog(500 * time.Millisecond),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.Throttle(64),
		middleware.Timeout(30 * time.Second),
	}
}

// Auth wires the auth middleware to the platform JSON writer
func Auth(p middleware.AuthPort) func(http.Handler) http.Handler {
	return middleware.Auth(p, phttp.JSON)
}
