// Package testkit holds small helpers shared by package tests
package testkit

import (
	"sync"
	"testing"
)

var seams sync.Mutex

// Swap replaces *target for the rest of the test
func Swap[T any](t *testing.T, target *T, v T) {
	t.Helper()
	prev := *target
	*target = v
	t.Cleanup(func() { *target = prev })
}

// Serial holds a process-wide lock until the test ends.
// tests that Swap package variables call it first
func Serial(t *testing.T) {
	t.Helper()
	seams.Lock()
	t.Cleanup(seams.Unlock)
}

// MustPanic fails the test unless fn panics
func MustPanic(t *testing.T, fn func()) {
	t.Helper()
	if !panics(fn) {
		t.Fatal("expected a panic")
	}
}

func panics(fn func()) (did bool) {
	defer func() { did = recover() != nil }()
	fn()
	return false
}
