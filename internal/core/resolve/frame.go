package resolve

import (
	"fmt"
	"slices"

	"nhanes/internal/core/subjects"
	"nhanes/internal/core/table"
)

// DefaultKey is the subject id column shared by every survey file
const DefaultKey = "SEQN"

// Codebook reports the numeric codes of a variable that mean "no answer"
type Codebook interface {
	MissingCodes(code string) []float64
}

// Options tunes Assemble
type Options struct {
	// Key names the subject column, DefaultKey when empty
	Key string
	// Coalesce fills a missing value from later alternatives of the same cycle
	Coalesce bool
	// Codebook decodes refusal and "don't know" answers to missing
	Codebook Codebook
	// Mortality tables are joined on the key; a later table wins on duplicate subjects
	Mortality []*table.Table
}

// Frame is one row per subject and one column per variable
type Frame struct {
	Columns  []string
	Subjects []int64
	Cycles   []int

	data [][]table.Value
	row  map[int64]int
}

// Len returns the number of rows
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Subjects)
}

// Col returns the position of name or -1
func (f *Frame) Col(name string) int { return slices.Index(f.Columns, name) }

// Value returns the cell at row i, column c
func (f *Frame) Value(i, c int) table.Value { return f.data[c][i] }

// Get returns the named cell of subject id
func (f *Frame) Get(id int64, name string) (table.Value, bool) {
	i, ok := f.row[id]
	c := f.Col(name)
	if !ok || c < 0 {
		return table.Value{}, false
	}
	return f.data[c][i], true
}

// Row returns the row of subject id
func (f *Frame) Row(id int64) (int, bool) {
	i, ok := f.row[id]
	return i, ok
}

// RowMap renders row i as plain values, nil for missing cells
func (f *Frame) RowMap(i int) map[string]any {
	m := make(map[string]any, len(f.Columns))
	for c, name := range f.Columns {
		v := f.data[c][i]
		switch v.Kind {
		case table.Number:
			m[name] = v.Num
		case table.Text:
			m[name] = v.Str
		default:
			m[name] = nil
		}
	}
	return m
}

// keyed maps subject ids to the first row holding them
type keyed map[*table.Table]map[int64]int

func (k keyed) rowOf(t *table.Table, keyCol string, id int64) (int, bool, error) {
	rows, ok := k[t]
	if !ok {
		c := t.Col(keyCol)
		if c < 0 {
			return 0, false, fmt.Errorf("resolve: table %s has no %s column", t.Name, keyCol)
		}
		ids, present := t.Keys(c)
		rows = make(map[int64]int, len(ids))
		for r, id := range ids {
			if !present[r] {
				continue
			}
			if _, dup := rows[id]; !dup {
				rows[id] = r
			}
		}
		k[t] = rows
	}
	r, ok := rows[id]
	return r, ok, nil
}

// Assemble builds the resolved frame for every subject of idx with a survey cycle
// subjects appear in index order and rows are registered back into idx
func Assemble(res *Resolution, idx *subjects.Index, opts Options) (*Frame, error) {
	if res == nil || idx == nil {
		return nil, fmt.Errorf("resolve: assemble needs a resolution and an index")
	}
	keyCol := opts.Key
	if keyCol == "" {
		keyCol = DefaultKey
	}

	f := &Frame{row: map[int64]int{}}
	for _, v := range res.Variables {
		f.Columns = append(f.Columns, v.Name)
	}
	mortCols, err := mortalityColumns(opts.Mortality, keyCol)
	if err != nil {
		return nil, err
	}
	f.Columns = append(f.Columns, mortCols...)
	f.data = make([][]table.Value, len(f.Columns))

	lookup := keyed{}
	missing := map[string][]float64{}
	if opts.Codebook != nil {
		for _, b := range res.Bindings {
			refs := append([]Ref{b.Ref}, b.Fallbacks...)
			for _, r := range refs {
				if _, ok := missing[r.Code]; !ok {
					missing[r.Code] = opts.Codebook.MissingCodes(r.Code)
				}
			}
		}
	}

	read := func(r Ref, id int64) (table.Value, error) {
		row, ok, err := lookup.rowOf(r.Table, keyCol, id)
		if err != nil || !ok {
			return table.Miss('.'), err
		}
		v := r.Table.Value(row, r.Column)
		if v.Kind == table.Number && slices.Contains(missing[r.Code], v.Num) {
			return table.Miss('.'), nil
		}
		return v, nil
	}

	for i := range idx.Len() {
		cycle := idx.Cycle(i)
		if cycle == 0 {
			continue
		}
		id := idx.ID(i)
		n := len(f.Subjects)
		f.Subjects = append(f.Subjects, id)
		f.Cycles = append(f.Cycles, cycle)
		f.row[id] = n
		idx.SetFrameRow(i, n)

		for c, v := range res.Variables {
			val := table.Miss('.')
			if b, ok := res.Lookup(v.Name, cycle); ok {
				if val, err = read(b.Ref, id); err != nil {
					return nil, err
				}
				if opts.Coalesce {
					for _, fb := range b.Fallbacks {
						if !val.IsMissing() {
							break
						}
						if val, err = read(fb, id); err != nil {
							return nil, err
						}
					}
				}
			}
			f.data[c] = append(f.data[c], val)
		}

		mv, err := mortalityRow(opts.Mortality, keyCol, mortCols, id, lookup)
		if err != nil {
			return nil, err
		}
		base := len(res.Variables)
		for k, v := range mv {
			f.data[base+k] = append(f.data[base+k], v)
		}
	}
	return f, nil
}

func mortalityColumns(tables []*table.Table, keyCol string) ([]string, error) {
	var out []string
	for _, t := range tables {
		if t.Col(keyCol) < 0 {
			return nil, fmt.Errorf("resolve: mortality table %s has no %s column", t.Name, keyCol)
		}
		for _, c := range t.Schema.Columns {
			if !slices.Contains(out, c.Name) && c.Name != keyCol {
				out = append(out, c.Name)
			}
		}
	}
	return out, nil
}

// mortalityRow reads cols for id from the last table holding the subject
func mortalityRow(tables []*table.Table, keyCol string, cols []string, id int64, lookup keyed) ([]table.Value, error) {
	out := make([]table.Value, len(cols))
	for k := range out {
		out[k] = table.Miss('.')
	}
	for ti := len(tables) - 1; ti >= 0; ti-- {
		t := tables[ti]
		row, ok, err := lookup.rowOf(t, keyCol, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for k, name := range cols {
			if c := t.Col(name); c >= 0 {
				out[k] = t.Value(row, c)
			}
		}
		break
	}
	return out, nil
}

// Completeness returns the share of non-missing cells per column
func (f *Frame) Completeness() map[string]float64 {
	out := make(map[string]float64, len(f.Columns))
	for c, name := range f.Columns {
		if len(f.Subjects) == 0 {
			out[name] = 0
			continue
		}
		n := 0
		for _, v := range f.data[c] {
			if !v.IsMissing() {
				n++
			}
		}
		out[name] = float64(n) / float64(len(f.Subjects))
	}
	return out
}
