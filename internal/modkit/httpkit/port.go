package httpkit

import (
	"crypto/subtle"
	"net/http"
	"strings"

	perrs "nhanes/internal/platform/errors"
)

// TokenFunc checks a bearer token and returns the caller name
type TokenFunc func(token string) (caller string, err error)

// Port implements middleware.AuthPort by reading Authorization and delegating to a TokenFunc
type Port struct {
	parse TokenFunc
}

// NewPortFunc builds a Port from a simple parser function
func NewPortFunc(fn TokenFunc) *Port {
	return &Port{parse: fn}
}

// StaticToken accepts exactly one shared token and names its holder caller
// an empty want yields a nil port, which leaves routes open
func StaticToken(want, caller string) *Port {
	if want == "" {
		return nil
	}
	return NewPortFunc(func(tok string) (string, error) {
		if subtle.ConstantTimeCompare([]byte(tok), []byte(want)) != 1 {
			return "", perrs.Unauthorizedf("invalid bearer token")
		}
		return caller, nil
	})
}

// Parse extracts the bearer token and hands it to the parser
// a missing or malformed header and any parser error are unauthorized
func (p *Port) Parse(r *http.Request) (string, error) {
	scheme, raw, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	raw = strings.TrimSpace(raw)
	if !strings.EqualFold(scheme, "bearer") || raw == "" {
		return "", perrs.Unauthorizedf("missing bearer token")
	}
	if p.parse == nil {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	caller, err := p.parse(raw)
	if err != nil {
		return "", perrs.Unauthorizedf("invalid bearer token")
	}
	return caller, nil
}
