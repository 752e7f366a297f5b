// Package table holds the typed, columnar representation shared by every decoder
package table

import (
	"math"
	"slices"
	"strings"
)

// Kind is the physical type of a column
type Kind uint8

const (
	// Numeric columns decode to float64
	Numeric Kind = iota + 1
	// String columns decode to trimmed UTF-8 text
	String
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Column describes one field of a fixed-width record
// Sentinels are the raw cell values reserved to mean missing
type Column struct {
	Name      string   `json:"name"`
	Label     string   `json:"label,omitempty"`
	Kind      Kind     `json:"kind"`
	Width     int      `json:"width"`
	Offset    int      `json:"offset"`
	Format    string   `json:"format,omitempty"`
	Sentinels []string `json:"sentinels,omitempty"`
}

// End returns the first byte after the column
func (c Column) End() int { return c.Offset + c.Width }

// IsSentinel reports whether raw is one of the column's missing markers
func (c Column) IsSentinel(raw string) bool { return slices.Contains(c.Sentinels, raw) }

// ValueKind tags the variant held by a Value
type ValueKind uint8

const (
	// Missing carries a sentinel code instead of data
	Missing ValueKind = iota
	// Number is a numeric observation
	Number
	// Text is a string observation
	Text
)

// Value is a single typed cell
// a Missing value keeps the sentinel byte it was decoded from ('.', '_', 'A'..'Z')
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Code byte
}

// Num wraps a float
func Num(f float64) Value { return Value{Kind: Number, Num: f} }

// Str wraps a string
func Str(s string) Value { return Value{Kind: Text, Str: s} }

// Miss returns a missing value with the given sentinel code
func Miss(code byte) Value { return Value{Kind: Missing, Code: code} }

// IsMissing reports whether v holds no observation
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Float returns the numeric payload or NaN for missing and text values
func (v Value) Float() float64 {
	if v.Kind != Number {
		return math.NaN()
	}
	return v.Num
}

// Schema is an ordered column table with name lookup
type Schema struct {
	Columns []Column
	byName  map[string]int
}

// NewSchema indexes cols by upper-cased name
func NewSchema(cols []Column) *Schema {
	s := &Schema{Columns: cols, byName: make(map[string]int, len(cols))}
	for i, c := range cols {
		s.byName[strings.ToUpper(c.Name)] = i
	}
	return s
}

// Index returns the position of name or -1
func (s *Schema) Index(name string) int {
	if s == nil {
		return -1
	}
	if i, ok := s.byName[strings.ToUpper(name)]; ok {
		return i
	}
	return -1
}

// Has reports whether the schema carries name
func (s *Schema) Has(name string) bool { return s.Index(name) >= 0 }

// Width returns the sum of column widths
func (s *Schema) Width() int {
	w := 0
	for _, c := range s.Columns {
		w += c.Width
	}
	return w
}

// Record is one decoded row
type Record struct {
	Values []Value
	schema *Schema
}

// NewRecord binds values to a schema
func NewRecord(s *Schema, vals []Value) Record { return Record{Values: vals, schema: s} }

// Schema returns the column table the record was decoded with
func (r Record) Schema() *Schema { return r.schema }

// Get returns the value of the named column, missing when absent
func (r Record) Get(name string) Value {
	i := r.schema.Index(name)
	if i < 0 || i >= len(r.Values) {
		return Miss('.')
	}
	return r.Values[i]
}

// Subject returns the integer subject id stored under key
func (r Record) Subject(key string) (int64, bool) {
	v := r.Get(key)
	if v.Kind != Number || math.IsNaN(v.Num) {
		return 0, false
	}
	return int64(v.Num), true
}
