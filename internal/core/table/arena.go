package table

import "math"

// Table is a columnar arena of decoded rows
// numeric columns live in nums, string columns in strs, missing codes in miss
// a zero miss byte means the cell holds data
type Table struct {
	Name   string
	Schema *Schema

	nums [][]float64
	strs [][]string
	miss [][]byte
	rows int
}

// New allocates an empty table for schema s
func New(name string, s *Schema) *Table {
	t := &Table{
		Name:   name,
		Schema: s,
		nums:   make([][]float64, len(s.Columns)),
		strs:   make([][]string, len(s.Columns)),
		miss:   make([][]byte, len(s.Columns)),
	}
	return t
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Append copies one record into the arena
func (t *Table) Append(vals []Value) {
	for i, c := range t.Schema.Columns {
		var v Value
		if i < len(vals) {
			v = vals[i]
		} else {
			v = Miss('.')
		}
		code := byte(0)
		if v.Kind == Missing {
			code = v.Code
			if code == 0 {
				code = '.'
			}
		}
		t.miss[i] = append(t.miss[i], code)
		if c.Kind == String {
			t.strs[i] = append(t.strs[i], v.Str)
		} else {
			t.nums[i] = append(t.nums[i], v.Num)
		}
	}
	t.rows++
}

// AppendRecord appends r, which must share the table schema
func (t *Table) AppendRecord(r Record) { t.Append(r.Values) }

// Value returns the cell at row, col
func (t *Table) Value(row, col int) Value {
	if code := t.miss[col][row]; code != 0 {
		return Miss(code)
	}
	if t.Schema.Columns[col].Kind == String {
		return Str(t.strs[col][row])
	}
	return Num(t.nums[col][row])
}

// Float returns the numeric cell or NaN
func (t *Table) Float(row, col int) float64 {
	if t.miss[col][row] != 0 || t.Schema.Columns[col].Kind == String {
		return math.NaN()
	}
	return t.nums[col][row]
}

// Record materializes row as a Record
func (t *Table) Record(row int) Record {
	vals := make([]Value, len(t.Schema.Columns))
	for c := range vals {
		vals[c] = t.Value(row, c)
	}
	return NewRecord(t.Schema, vals)
}

// Col returns the index of name or -1
func (t *Table) Col(name string) int { return t.Schema.Index(name) }

// Keys returns the integer key of every row under col, with ok=false for missing keys
func (t *Table) Keys(col int) ([]int64, []bool) {
	ids := make([]int64, t.rows)
	ok := make([]bool, t.rows)
	for r := 0; r < t.rows; r++ {
		f := t.Float(r, col)
		if math.IsNaN(f) {
			continue
		}
		ids[r] = int64(f)
		ok[r] = true
	}
	return ids, ok
}
