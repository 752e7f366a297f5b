// Package config reads settings from environment variables
// a Conf is a prefixed view, e.g. New().Prefix("PREP_") reads PREP_*
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"nhanes/internal/platform/logger"
)

// Conf is a namespaced view over environment variables
type Conf struct{ prefix string }

// New creates a root Conf with no prefix
func New() Conf { return Conf{} }

// Prefix returns a child Conf reading p+KEY
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) raw(key string) string { return strings.TrimSpace(os.Getenv(c.key(key))) }

// may parses key with parse; missing gives def, unparsable logs and gives def
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.raw(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).Msg("invalid config value; using default")
		return def
	}
	return v
}

// MustString panics when key is missing or blank
func (c Conf) MustString(key string) string {
	v := c.raw(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MayString returns the trimmed value or def
func (c Conf) MayString(key, def string) string {
	return may(c, key, def, func(s string) (string, error) { return s, nil })
}

// MayInt returns the value as an int or def
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

// MayBool returns the value as a bool or def
func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration returns the value as a duration like 250ms or 10m, or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV splits a comma separated value, dropping blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.raw(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the value when it is one of allowed (case insensitive) or def when missing
// any other value panics
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
