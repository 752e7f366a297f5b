// Package resolve binds logical variables to concrete columns per survey cycle
//
// A variable lists alternative source codes in priority order. For every cycle the
// first code found in any of that cycle's tables wins; a cycle where no code exists
// is recorded as unavailable rather than silently dropped.
package resolve

import (
	"slices"
	"strings"

	"nhanes/internal/core/table"
)

// Variable is a logical name with ordered alternative codes
type Variable struct {
	Name  string
	Codes []string
}

// Source is every decoded table of one cycle
type Source struct {
	Cycle  int
	Tables []*table.Table
}

// Ref points at one column of one table
type Ref struct {
	Code   string
	Table  *table.Table
	Column int
}

// Binding is the resolved column for a variable in a cycle
// Fallbacks lists the other alternatives present in the same cycle, in priority order
type Binding struct {
	Variable string
	Cycle    int
	Ref
	Fallbacks []Ref
}

// Unavailable records a variable with no alternative present in a cycle
type Unavailable struct {
	Variable string   `json:"variable"`
	Cycle    int      `json:"cycle"`
	Codes    []string `json:"codes"`
}

type key struct {
	name  string
	cycle int
}

// Resolution is the outcome of Resolve
type Resolution struct {
	Variables   []Variable
	Cycles      []int
	Bindings    []Binding
	Unavailable []Unavailable

	at map[key]int
}

// Lookup returns the binding of name in cycle
func (r *Resolution) Lookup(name string, cycle int) (Binding, bool) {
	i, ok := r.at[key{name, cycle}]
	if !ok {
		return Binding{}, false
	}
	return r.Bindings[i], true
}

// Resolve binds vars against sources
// cycles are visited in ascending order and variables in the given order
func Resolve(vars []Variable, sources []Source) *Resolution {
	srcs := slices.Clone(sources)
	slices.SortStableFunc(srcs, func(a, b Source) int { return a.Cycle - b.Cycle })

	r := &Resolution{Variables: vars, at: map[key]int{}}
	for _, src := range srcs {
		if n := len(r.Cycles); n == 0 || r.Cycles[n-1] != src.Cycle {
			r.Cycles = append(r.Cycles, src.Cycle)
		}
	}

	for _, cycle := range r.Cycles {
		var tables []*table.Table
		for _, src := range srcs {
			if src.Cycle == cycle {
				tables = append(tables, src.Tables...)
			}
		}
		for _, v := range vars {
			refs := candidates(v, tables)
			if len(refs) == 0 {
				r.Unavailable = append(r.Unavailable, Unavailable{Variable: v.Name, Cycle: cycle, Codes: slices.Clone(v.Codes)})
				continue
			}
			r.at[key{v.Name, cycle}] = len(r.Bindings)
			r.Bindings = append(r.Bindings, Binding{Variable: v.Name, Cycle: cycle, Ref: refs[0], Fallbacks: refs[1:]})
		}
	}
	return r
}

// candidates lists every (code, table) hit for v, codes first then tables
func candidates(v Variable, tables []*table.Table) []Ref {
	var out []Ref
	for _, code := range v.Codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		for _, t := range tables {
			if c := t.Col(code); c >= 0 {
				out = append(out, Ref{Code: strings.ToUpper(code), Table: t, Column: c})
			}
		}
	}
	return out
}
