package module

import (
	"sync"
	"testing"
)

type runPorts struct{ Runner string }

func TestRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Register("prep", runPorts{Runner: "a"})
	Register("prep", runPorts{Runner: "b"})
	Register("meta", nil)

	cases := []struct {
		name   string
		lookup func() (any, bool)
		want   any
		ok     bool
	}{
		{"latest wins", func() (any, bool) { return PortsAs[runPorts]("prep") }, runPorts{Runner: "b"}, true},
		{"missing", func() (any, bool) { return PortsAs[runPorts]("runs") }, runPorts{}, false},
		{"wrong type", func() (any, bool) { return PortsAs[int]("prep") }, 0, false},
		{"nil ports", func() (any, bool) { return PortsAs[runPorts]("meta") }, runPorts{}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := c.lookup()
			if ok != c.ok || got != c.want {
				t.Fatalf("got %v,%v want %v,%v", got, ok, c.want, c.ok)
			}
		})
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() { defer wg.Done(); Register("prep", runPorts{Runner: string(rune('a' + i))}) }()
		go func() { defer wg.Done(); _, _ = PortsAs[runPorts]("prep") }()
	}
	wg.Wait()
	if _, ok := PortsAs[runPorts]("prep"); !ok {
		t.Fatal("port set lost")
	}
}
