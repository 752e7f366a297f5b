// Package subjects provides the arena-backed subject index shared by every pipeline stage
package subjects

import (
	"slices"

	"nhanes/internal/core/sensor"
)

// Loc points at one row of one decoded file
type Loc struct {
	File int32
	Row  int32
}

// NoRow marks an absent location
var NoRow = Loc{File: -1, Row: -1}

// Valid reports whether l points at a row
func (l Loc) Valid() bool { return l.File >= 0 && l.Row >= 0 }

type entry struct {
	id    int64
	cycle int
	resp  Loc
	mort  Loc
}

// Builder collects subject observations before sorting
type Builder struct {
	entries []entry
}

// NewBuilder returns an empty builder with room for n subjects
func NewBuilder(n int) *Builder {
	return &Builder{entries: make([]entry, 0, n)}
}

// AddResponse records that subject id has a row in a response file of cycle
func (b *Builder) AddResponse(id int64, cycle int, file, row int) {
	b.entries = append(b.entries, entry{id: id, cycle: cycle, resp: Loc{File: int32(file), Row: int32(row)}, mort: NoRow})
}

// AddMortality records that subject id has a row in a mortality file
func (b *Builder) AddMortality(id int64, file, row int) {
	b.entries = append(b.entries, entry{id: id, resp: NoRow, mort: Loc{File: int32(file), Row: int32(row)}})
}

// Build sorts and deduplicates into an Index
// the first cycle seen for a subject wins; later mortality rows replace earlier ones
func (b *Builder) Build() *Index {
	slices.SortStableFunc(b.entries, func(x, y entry) int {
		switch {
		case x.id < y.id:
			return -1
		case x.id > y.id:
			return 1
		}
		return 0
	})

	ix := &Index{
		ids:    make([]int64, 0, len(b.entries)),
		cycles: make([]int, 0, len(b.entries)),
		mort:   make([]Loc, 0, len(b.entries)),
		start:  make([]int32, 0, len(b.entries)+1),
	}
	for _, e := range b.entries {
		n := len(ix.ids)
		if n == 0 || ix.ids[n-1] != e.id {
			ix.ids = append(ix.ids, e.id)
			ix.cycles = append(ix.cycles, 0)
			ix.mort = append(ix.mort, NoRow)
			ix.start = append(ix.start, int32(len(ix.resp)))
			n++
		}
		i := n - 1
		if e.resp.Valid() {
			if ix.cycles[i] == 0 {
				ix.cycles[i] = e.cycle
			}
			ix.resp = append(ix.resp, e.resp)
		}
		if e.mort.Valid() {
			ix.mort[i] = e.mort
		}
	}
	ix.start = append(ix.start, int32(len(ix.resp)))

	ix.frame = make([]int32, len(ix.ids))
	for i := range ix.frame {
		ix.frame[i] = -1
	}
	ix.tensor = map[sensor.Generation][]int32{}
	return ix
}

// Index is the sorted set of subjects with per-subject locations
// all per-subject data live in parallel slices addressed by the position of the id
type Index struct {
	ids    []int64
	cycles []int
	mort   []Loc
	resp   []Loc
	start  []int32

	frame  []int32
	tensor map[sensor.Generation][]int32
}

// Len returns the number of subjects
func (ix *Index) Len() int { return len(ix.ids) }

// IDs returns the sorted subject ids; callers must not mutate it
func (ix *Index) IDs() []int64 { return ix.ids }

// ID returns the subject id at position i
func (ix *Index) ID(i int) int64 { return ix.ids[i] }

// Lookup returns the position of id
func (ix *Index) Lookup(id int64) (int, bool) {
	return slices.BinarySearch(ix.ids, id)
}

// Cycle returns the survey cycle of subject i, 0 when only mortality data exists
func (ix *Index) Cycle(i int) int { return ix.cycles[i] }

// Responses returns every response row of subject i in file order
func (ix *Index) Responses(i int) []Loc { return ix.resp[ix.start[i]:ix.start[i+1]] }

// Mortality returns the mortality row of subject i
func (ix *Index) Mortality(i int) (Loc, bool) {
	l := ix.mort[i]
	return l, l.Valid()
}

// SetFrameRow records the resolved frame row of subject i
func (ix *Index) SetFrameRow(i, row int) { ix.frame[i] = int32(row) }

// FrameRow returns the resolved frame row of subject i
func (ix *Index) FrameRow(i int) (int, bool) {
	r := ix.frame[i]
	return int(r), r >= 0
}

func (ix *Index) tensorRows(gen sensor.Generation) []int32 {
	rows, ok := ix.tensor[gen]
	if !ok {
		rows = make([]int32, len(ix.ids))
		for i := range rows {
			rows[i] = -1
		}
		ix.tensor[gen] = rows
	}
	return rows
}

// SetTensorRow records that subject i sits at row of the gen tensor
func (ix *Index) SetTensorRow(gen sensor.Generation, i, row int) {
	ix.tensorRows(gen)[i] = int32(row)
}

// SetTensorRows records tensor row positions for the given subject ids of gen
// ids not present in the index are ignored
func (ix *Index) SetTensorRows(gen sensor.Generation, ids []int64) {
	ix.tensorRows(gen)
	for r, id := range ids {
		if i, ok := ix.Lookup(id); ok {
			ix.SetTensorRow(gen, i, r)
		}
	}
}

// TensorRow returns the tensor row of subject i for gen
func (ix *Index) TensorRow(gen sensor.Generation, i int) (int, bool) {
	rows, ok := ix.tensor[gen]
	if !ok || rows[i] < 0 {
		return -1, false
	}
	return int(rows[i]), true
}

// CountByCycle returns subject counts keyed by cycle
func (ix *Index) CountByCycle() map[int]int {
	out := map[int]int{}
	for _, c := range ix.cycles {
		out[c]++
	}
	return out
}
