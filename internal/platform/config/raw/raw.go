// Package raw reads environment variables during bootstrap
// it must not import the logger, which is configured from it
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a namespaced view over environment variables
type Conf struct{ prefix string }

// New returns a root Conf
func New() Conf { return Conf{} }

// Prefix returns a child Conf reading p+KEY
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

// Get returns the trimmed value or def
func (c Conf) Get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(c.prefix + key)); v != "" {
		return v
	}
	return def
}

// GetBool treats 1, true and yes as true; missing gives def
func (c Conf) GetBool(key string, def bool) bool {
	switch strings.ToLower(c.Get(key, "")) {
	case "":
		return def
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// GetInt parses a non negative integer; missing or invalid gives def
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.Get(key, ""))
	if err != nil || n < 0 {
		return def
	}
	return n
}
