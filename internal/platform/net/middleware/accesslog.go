package middleware

import (
	"net/http"
	"time"

	"nhanes/internal/platform/logger"
)

// captureWriter records the status and body size a handler produced
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

// AccessLog logs one line per request on the request scoped logger
// requests taking at least slow are logged at warn; 0 disables that
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(cw, r)
			elapsed := time.Since(start)

			log := logger.C(r.Context())
			evt := log.Info()
			if cw.status >= http.StatusInternalServerError || (slow > 0 && elapsed >= slow) {
				evt = log.Warn()
			}
			evt.Int("status", cw.status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("bytes", cw.bytes).
				Str("caller", w.Header().Get("X-Caller")).
				Msg("request done")
		})
	}
}
