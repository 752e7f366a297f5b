// Package align turns per-subject epoch streams into fixed-shape, calendar-aligned rows
package align

import (
	"fmt"
	"math"
	"time"

	"nhanes/internal/core/sensor"
)

// ReasonNoValidEpochs is the exclusion reason for subjects with nothing usable
const ReasonNoValidEpochs = "no valid epochs"

// Series is one subject's raw epoch stream
// Index is the epoch offset from midnight of the first recorded calendar day
// Values holds len(Index)*channels readings, NaN for a missing reading
type Series struct {
	Subject      int64
	Gen          sensor.Generation
	StartWeekday time.Weekday
	Index        []int32
	Values       []float32
	Status       []int16
}

// Len returns the number of epochs in the stream
func (s Series) Len() int { return len(s.Index) }

// DaysPresent counts the calendar days holding at least one epoch
// the count is not capped at the canonical week
func (s Series) DaysPresent() int {
	if !s.Gen.Valid() {
		return 0
	}
	epd := int32(s.Gen.Spec().EpochsPerDay)
	days := map[int32]struct{}{}
	for _, idx := range s.Index {
		if idx >= 0 {
			days[idx/epd] = struct{}{}
		}
	}
	return len(days)
}

// Check validates arena lengths against the generation shape
func (s Series) Check() error {
	if !s.Gen.Valid() {
		return fmt.Errorf("align: subject %d: unknown generation %d", s.Subject, s.Gen)
	}
	c := s.Gen.NumChannels()
	if len(s.Values) != len(s.Index)*c || len(s.Status) != len(s.Index) {
		return fmt.Errorf("align: subject %d: %d epochs with %d values and %d statuses, want %d values",
			s.Subject, len(s.Index), len(s.Values), len(s.Status), len(s.Index)*c)
	}
	return nil
}

// Exclusion records a subject dropped from the tensor
type Exclusion struct {
	Subject int64             `json:"subject"`
	Gen     sensor.Generation `json:"generation"`
	Reason  string            `json:"reason"`
}

// Row is one subject's aligned block: Days x EpochsPerDay x Channels
// DaysPresent counts every calendar day with data, including days past the canonical week
// whose epochs were counted in Discarded
type Row struct {
	Values      []float32
	Mask        []bool
	Status      []sensor.Status
	DaysPresent int
	Valid       int
	Discarded   int
}

// Align aligns a single series into a freshly allocated Row
// it returns an Exclusion instead when no epoch survives
func Align(s Series) (Row, *Exclusion, error) {
	if err := s.Check(); err != nil {
		return Row{}, nil, err
	}
	sp := s.Gen.Spec()
	cells := sp.CanonicalDays * sp.EpochsPerDay
	r := Row{
		Values: make([]float32, cells*len(sp.Channels)),
		Mask:   make([]bool, cells),
		Status: make([]sensor.Status, cells),
	}
	r.DaysPresent, r.Valid, r.Discarded = fill(sp, s, r.Values, r.Mask, r.Status)
	if r.Valid == 0 {
		return r, &Exclusion{Subject: s.Subject, Gen: s.Gen, Reason: ReasonNoValidEpochs}, nil
	}
	return r, nil, nil
}

// fill writes s into pre-zeroed row slices and returns days present, valid epochs and discarded epochs
func fill(sp sensor.Spec, s Series, values []float32, mask []bool, status []sensor.Status) (days, valid, discarded int) {
	epd := sp.EpochsPerDay
	nc := len(sp.Channels)
	seen := make([]bool, sp.CanonicalDays)

	for k, idx := range s.Index {
		if idx < 0 {
			discarded++
			continue
		}
		day, e := int(idx)/epd, int(idx)%epd
		if day >= len(seen) {
			seen = append(seen, make([]bool, day+1-len(seen))...)
		}
		seen[day] = true
		if day >= sp.CanonicalDays {
			// earliest-first: later days do not fit the canonical week
			discarded++
			continue
		}
		pos := day*epd + e

		st := sensor.Encode(s.Gen, int(s.Status[k]))
		ok := st != sensor.Missing
		for c, ch := range sp.Channels {
			v := s.Values[k*nc+c]
			if math.IsNaN(float64(v)) {
				values[pos*nc+c] = 0
				if !ch.Optional {
					ok = false
				}
				continue
			}
			if ch.Stuck > 0 && float64(v) > ch.Stuck && stuckAt(s, k, c, nc) {
				ok = false
			}
			values[pos*nc+c] = float32(ch.Clip(float64(v)))
		}
		if mask[pos] && !ok {
			valid--
		} else if !mask[pos] && ok {
			valid++
		}
		mask[pos] = ok
		status[pos] = st
	}
	for _, d := range seen {
		if d {
			days++
		}
	}
	return days, valid, discarded
}

// stuckAt reports whether the reading at k repeats in the following epoch
func stuckAt(s Series, k, c, nc int) bool {
	if k+1 >= len(s.Index) || s.Index[k+1] != s.Index[k]+1 {
		return false
	}
	return s.Values[(k+1)*nc+c] == s.Values[k*nc+c]
}
