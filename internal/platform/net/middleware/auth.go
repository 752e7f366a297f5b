package middleware

import (
	"net/http"

	"nhanes/internal/platform/logger"
	pnet "nhanes/internal/platform/net"
)

// AuthPort decides whether a request may read published data
type AuthPort interface {
	// Parse returns the caller name or an error
	Parse(r *http.Request) (caller string, err error)
}

// Auth rejects requests the port refuses; a nil port lets everything through
func Auth(p AuthPort, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p == nil {
				next.ServeHTTP(w, r)
				return
			}
			caller, err := p.Parse(r)
			if err != nil {
				logger.C(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("auth rejected")
				status, body := pnet.Error(err, pnet.RequestID(r.Context()))
				write(w, status, body)
				return
			}
			w.Header().Set("X-Caller", caller)
			next.ServeHTTP(w, r)
		})
	}
}
