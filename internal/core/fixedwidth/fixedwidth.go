// Package fixedwidth decodes text files whose rows follow a static column layout
package fixedwidth

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"nhanes/internal/core/table"
)

// Field is one column of a Layout
// Sentinels overrides the layout-wide missing markers for this field
type Field struct {
	Name      string
	Start     int
	Width     int
	Kind      table.Kind
	Sentinels []string
}

// Layout is the static description of a fixed-width file
// a blank cell is always missing; Sentinels adds the trimmed values that also are
type Layout struct {
	Name      string
	Key       string
	Fields    []Field
	RowWidth  int
	Sentinels []string
}

// SchemaMismatchError reports a row that does not fit the layout
type SchemaMismatchError struct {
	Line   int
	Field  string
	Got    int
	Want   int
	Reason string
}

func (e *SchemaMismatchError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("fixedwidth: line %d field %s: %s", e.Line, e.Field, e.Reason)
	}
	return fmt.Sprintf("fixedwidth: line %d: row width %d, layout expects %d", e.Line, e.Got, e.Want)
}

// MortalityLayout is the public-use linked mortality file layout
func MortalityLayout() Layout {
	widths := []struct {
		name  string
		width int
	}{
		{"SEQN", 14},
		{"ELIGSTAT", 1},
		{"MORTSTAT", 1},
		{"UCOD_LEADING", 3},
		{"DIABETES", 1},
		{"HYPERTEN", 1},
		{"DODQTR", 1},
		{"DODYEAR", 4},
		{"WGT_NEW", 8},
		{"SA_WGT_NEW", 8},
		{"PERMTH_INT", 3},
		{"PERMTH_EXM", 3},
	}
	l := Layout{Name: "MORT", Key: "SEQN", Sentinels: []string{"."}}
	off := 0
	for _, w := range widths {
		l.Fields = append(l.Fields, Field{Name: w.name, Start: off, Width: w.width, Kind: table.Numeric})
		off += w.width
	}
	l.RowWidth = off
	return l
}

// Schema converts the layout into a column table
func (l Layout) Schema() *table.Schema {
	cols := make([]table.Column, len(l.Fields))
	for i, f := range l.Fields {
		sent := f.Sentinels
		if sent == nil {
			sent = l.Sentinels
		}
		cols[i] = table.Column{Name: f.Name, Kind: f.Kind, Width: f.Width, Offset: f.Start, Sentinels: slices.Clone(sent)}
	}
	return table.NewSchema(cols)
}

// Validate checks fields sit inside the row and do not overlap
func (l Layout) Validate() error {
	if l.RowWidth <= 0 || len(l.Fields) == 0 {
		return fmt.Errorf("fixedwidth: layout %q is empty", l.Name)
	}
	end := 0
	for _, f := range l.Fields {
		if f.Width <= 0 || f.Start < end || f.Start+f.Width > l.RowWidth {
			return fmt.Errorf("fixedwidth: layout %q field %s [%d,+%d) is out of order or out of bounds", l.Name, f.Name, f.Start, f.Width)
		}
		end = f.Start + f.Width
	}
	return nil
}

// Decode reads every row of r into a table
// a row of the wrong width or with an unparsable numeric field fails the whole file
func Decode(r io.Reader, l Layout) (*table.Table, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	schema := l.Schema()
	t := table.New(l.Name, schema)
	vals := make([]table.Value, len(l.Fields))

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(row) == "" {
			continue
		}
		if len(row) != l.RowWidth {
			return nil, &SchemaMismatchError{Line: line, Got: len(row), Want: l.RowWidth}
		}
		for i, f := range l.Fields {
			raw := strings.TrimSpace(row[f.Start : f.Start+f.Width])
			if raw == "" || schema.Columns[i].IsSentinel(raw) {
				vals[i] = table.Miss('.')
				continue
			}
			if f.Kind == table.String {
				vals[i] = table.Str(raw)
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, &SchemaMismatchError{Line: line, Field: f.Name, Reason: fmt.Sprintf("%q is not numeric", raw)}
			}
			vals[i] = table.Num(v)
		}
		t.Append(vals)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
