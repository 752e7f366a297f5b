// Package strings holds the few string helpers module wiring needs
package strings

import std "strings"

// IfEmpty returns def when in is empty
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// MustString returns s unless it is blank, in which case it panics naming what was missing
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a route prefix to one leading slash and no trailing slash
// it panics on an empty prefix or bare root
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), "/ ")
	if s == "/" {
		panic("root path is required")
	}
	return s
}
