// Package pax turns decoded physical activity monitor records into per-subject epoch series
//
// Records stream in from the transport decoder one at a time and are bucketed by subject,
// so a sensor file is never held as a full table. Series() finalizes every subject into
// the epoch index expected by the aligner: index 0 is midnight of the first calendar day.
package pax

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"nhanes/internal/core/align"
	"nhanes/internal/core/sensor"
	"nhanes/internal/core/table"
)

// samplesPerMinute converts PAXSSNMP (80 Hz sample number) to minutes
const samplesPerMinute = 80 * 60

// column names per generation
const (
	colSEQN = "SEQN"

	colPAXN    = "PAXN"
	colPAXDAY  = "PAXDAY"
	colPAXHOUR = "PAXHOUR"
	colPAXMIN  = "PAXMINUT"

	colPAXDAYM  = "PAXDAYM"
	colPAXDAYWM = "PAXDAYWM"
	colPAXSSNMP = "PAXSSNMP"
	colPAXPREDM = "PAXPREDM"
)

// raw is the unfinalized stream of one subject
type raw struct {
	pos     []int32 // PAXN-1 or minute since recording start
	day     []int8  // PAXDAYM-1, gen2011 only
	values  []float32
	status  []int16
	weekday time.Weekday
	clock   int32 // minute of day of the first reading, gen2003 only
	first   int32 // earliest PAXN-1 (gen2003) or PAXDAYM (gen2011)
	started bool
}

// ErrMissingColumn reports a sensor file without a column its generation requires
var ErrMissingColumn = errors.New("pax: missing column")

// Extractor accumulates one generation's epochs from decoded records
type Extractor struct {
	gen  sensor.Generation
	spec sensor.Spec

	subjects map[int64]*raw
	skipped  int

	// resolved column positions for the current schema
	schema *table.Schema
	cols   map[string]int
	chans  []int
}

// New returns an extractor for gen
func New(gen sensor.Generation) (*Extractor, error) {
	if !gen.Valid() {
		return nil, fmt.Errorf("pax: unknown generation %d", gen)
	}
	return &Extractor{gen: gen, spec: gen.Spec(), subjects: map[int64]*raw{}}, nil
}

// Gen returns the generation being extracted
func (x *Extractor) Gen() sensor.Generation { return x.gen }

// Skipped returns how many records had no usable subject or position
func (x *Extractor) Skipped() int { return x.skipped }

// Subjects returns the number of distinct subjects seen so far
func (x *Extractor) Subjects() int { return len(x.subjects) }

func (x *Extractor) required() []string {
	if x.gen == sensor.Gen2003 {
		return []string{colSEQN, colPAXN, colPAXDAY, colPAXHOUR, colPAXMIN}
	}
	return []string{colSEQN, colPAXDAYM, colPAXDAYWM, colPAXSSNMP, colPAXPREDM}
}

// Bind resolves column positions for s; it is called implicitly by Consume when the schema changes
func (x *Extractor) Bind(s *table.Schema) error {
	cols := map[string]int{}
	for _, name := range x.required() {
		i := s.Index(name)
		if i < 0 {
			return fmt.Errorf("%w: %s file lacks %s", ErrMissingColumn, x.gen, name)
		}
		cols[name] = i
	}
	chans := make([]int, len(x.spec.Channels))
	for c, ch := range x.spec.Channels {
		chans[c] = s.Index(ch.Column)
		if chans[c] < 0 && !ch.Optional {
			return fmt.Errorf("%w: %s file lacks channel %s", ErrMissingColumn, x.gen, ch.Column)
		}
	}
	x.schema, x.cols, x.chans = s, cols, chans
	return nil
}

// Consume adds one decoded record
func (x *Extractor) Consume(rec table.Record) error {
	if s := rec.Schema(); s != x.schema {
		if err := x.Bind(s); err != nil {
			return err
		}
	}
	v := rec.Values
	seqn, ok := intOf(v[x.cols[colSEQN]])
	if !ok {
		x.skipped++
		return nil
	}
	id := int64(seqn)
	r := x.subjects[id]
	if r == nil {
		r = &raw{}
		x.subjects[id] = r
	}

	var st int16
	switch x.gen {
	case sensor.Gen2003:
		n, ok := intOf(v[x.cols[colPAXN]])
		if !ok || n < 1 {
			x.skipped++
			return nil
		}
		pos := int32(n - 1)
		if !r.started || pos < r.first {
			h, _ := intOf(v[x.cols[colPAXHOUR]])
			m, _ := intOf(v[x.cols[colPAXMIN]])
			d, _ := intOf(v[x.cols[colPAXDAY]])
			r.first, r.clock, r.weekday, r.started = pos, int32(h*60+m), weekday(d), true
		}
		r.pos = append(r.pos, pos)
	case sensor.Gen2011:
		ss, ok := intOf(v[x.cols[colPAXSSNMP]])
		d, dok := intOf(v[x.cols[colPAXDAYM]])
		if !ok || !dok || d < 1 {
			x.skipped++
			return nil
		}
		// the start weekday is taken from the earliest day seen, stepped back to day 1
		if !r.started || int32(d) < r.first {
			if wd, ok := intOf(v[x.cols[colPAXDAYWM]]); ok && wd >= 1 && wd <= 7 {
				r.weekday = startWeekday(wd, d)
			}
			r.first, r.started = int32(d), true
		}
		r.pos = append(r.pos, int32(ss/samplesPerMinute))
		r.day = append(r.day, int8(min(d-1, math.MaxInt8)))
		if p, ok := intOf(v[x.cols[colPAXPREDM]]); ok {
			st = int16(p)
		}
	}

	present := true
	for c, col := range x.chans {
		f := float32(math.NaN())
		if col >= 0 {
			if n := v[col].Float(); !math.IsNaN(n) && !(x.gen == sensor.Gen2011 && n < 0) {
				f = float32(n)
			}
		}
		if math.IsNaN(float64(f)) && !x.spec.Channels[c].Optional {
			present = false
		}
		r.values = append(r.values, f)
	}
	if x.gen == sensor.Gen2003 {
		st = sensor.RawNoReading
		if present {
			st = sensor.RawWorn
		}
	}
	r.status = append(r.status, st)
	return nil
}

// Series finalizes every subject into subject-ordered series
func (x *Extractor) Series() []align.Series {
	ids := make([]int64, 0, len(x.subjects))
	for id := range x.subjects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]align.Series, 0, len(ids))
	for _, id := range ids {
		r := x.subjects[id]
		s := align.Series{
			Subject:      id,
			Gen:          x.gen,
			StartWeekday: r.weekday,
			Index:        make([]int32, len(r.pos)),
			Values:       r.values,
			Status:       r.status,
		}
		switch x.gen {
		case sensor.Gen2003:
			shift := r.clock - r.first
			for i, p := range r.pos {
				s.Index[i] = p + shift
			}
		case sensor.Gen2011:
			// the first day ends at midnight, so its rows are right-aligned
			firstDay := int32(0)
			for _, d := range r.day {
				if d == 0 {
					firstDay++
				}
			}
			shift := int32(x.spec.EpochsPerDay) - firstDay
			for i, p := range r.pos {
				s.Index[i] = p + shift
			}
		}
		out = append(out, s)
	}
	return out
}

// intOf reads an integral numeric value
func intOf(v table.Value) (int, bool) {
	if v.Kind != table.Number || math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
		return 0, false
	}
	return int(v.Num), true
}

// startWeekday returns the weekday of day 1 given that day falls on wd (1 = Sunday)
func startWeekday(wd, day int) time.Weekday {
	return time.Weekday(((wd-1-(day-1))%7 + 7) % 7)
}

// weekday converts the survey convention (1 = Sunday) to time.Weekday
func weekday(d int) time.Weekday {
	if d < 1 || d > 7 {
		return time.Sunday
	}
	return time.Weekday(d - 1)
}
