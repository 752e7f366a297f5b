package align

import (
	"context"
	"fmt"
	"slices"
	"time"

	"nhanes/internal/core/sensor"

	"golang.org/x/sync/errgroup"
)

// Tensor is the aligned output of one generation
// Values is laid out subject-major: [subject][day][epoch][channel]
type Tensor struct {
	Gen      sensor.Generation
	Days     int
	Epochs   int
	Channels int

	Subjects     []int64
	StartWeekday []time.Weekday
	DaysPresent  []int
	Discarded    []int
	Values       []float32
	Mask         []bool
	Status       []sensor.Status
}

// Len returns the number of subjects
func (t *Tensor) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Subjects)
}

func (t *Tensor) cells() int { return t.Days * t.Epochs }

// Row returns views into subject i's slices
func (t *Tensor) Row(i int) Row {
	c := t.cells()
	return Row{
		Values:      t.Values[i*c*t.Channels : (i+1)*c*t.Channels],
		Mask:        t.Mask[i*c : (i+1)*c],
		Status:      t.Status[i*c : (i+1)*c],
		DaysPresent: t.DaysPresent[i],
		Discarded:   t.Discarded[i],
	}
}

// At returns the reading of subject i at day, epoch, channel and whether it is valid
func (t *Tensor) At(i, day, epoch, ch int) (float32, bool) {
	pos := i*t.cells() + day*t.Epochs + epoch
	return t.Values[pos*t.Channels+ch], t.Mask[pos]
}

// Find returns the row of subject id or -1
func (t *Tensor) Find(id int64) int {
	i, ok := slices.BinarySearch(t.Subjects, id)
	if !ok {
		return -1
	}
	return i
}

// ValidEpochs counts valid cells of subject i
func (t *Tensor) ValidEpochs(i int) int {
	n := 0
	for _, m := range t.Row(i).Mask {
		if m {
			n++
		}
	}
	return n
}

// Truncated counts subjects with more recorded days than the canonical week
func (t *Tensor) Truncated() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, d := range t.DaysPresent {
		if d > t.Days {
			n++
		}
	}
	return n
}

// DiscardedEpochs sums the epochs that fell outside the canonical week
func (t *Tensor) DiscardedEpochs() int64 {
	if t == nil {
		return 0
	}
	var n int64
	for _, d := range t.Discarded {
		n += int64(d)
	}
	return n
}

// Batch aligns every series of gen in parallel and assembles them in subject order
// workers <= 0 means one task at a time
func Batch(ctx context.Context, gen sensor.Generation, series []Series, workers int) (*Tensor, []Exclusion, error) {
	sp := gen.Spec()
	if !gen.Valid() {
		return nil, nil, fmt.Errorf("align: unknown generation %d", gen)
	}

	order := make([]int, len(series))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case series[a].Subject < series[b].Subject:
			return -1
		case series[a].Subject > series[b].Subject:
			return 1
		}
		return 0
	})
	for i, k := range order {
		s := series[k]
		if s.Gen != gen {
			return nil, nil, fmt.Errorf("align: subject %d is %s, batch is %s", s.Subject, s.Gen, gen)
		}
		if err := s.Check(); err != nil {
			return nil, nil, err
		}
		if i > 0 && series[order[i-1]].Subject == s.Subject {
			return nil, nil, fmt.Errorf("align: subject %d appears twice", s.Subject)
		}
	}

	n := len(order)
	cells := sp.CanonicalDays * sp.EpochsPerDay
	nc := len(sp.Channels)
	t := &Tensor{
		Gen:          gen,
		Days:         sp.CanonicalDays,
		Epochs:       sp.EpochsPerDay,
		Channels:     nc,
		Subjects:     make([]int64, n),
		StartWeekday: make([]time.Weekday, n),
		DaysPresent:  make([]int, n),
		Discarded:    make([]int, n),
		Values:       make([]float32, n*cells*nc),
		Mask:         make([]bool, n*cells),
		Status:       make([]sensor.Status, n*cells),
	}
	valid := make([]int, n)

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for i, k := range order {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			s := series[k]
			t.Subjects[i] = s.Subject
			t.StartWeekday[i] = s.StartWeekday
			t.DaysPresent[i], valid[i], t.Discarded[i] = fill(sp, s,
				t.Values[i*cells*nc:(i+1)*cells*nc],
				t.Mask[i*cells:(i+1)*cells],
				t.Status[i*cells:(i+1)*cells],
			)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var excl []Exclusion
	w := 0
	for i := range n {
		if valid[i] == 0 {
			excl = append(excl, Exclusion{Subject: t.Subjects[i], Gen: gen, Reason: ReasonNoValidEpochs})
			continue
		}
		if w != i {
			t.Subjects[w] = t.Subjects[i]
			t.StartWeekday[w] = t.StartWeekday[i]
			t.DaysPresent[w] = t.DaysPresent[i]
			t.Discarded[w] = t.Discarded[i]
			copy(t.Values[w*cells*nc:(w+1)*cells*nc], t.Values[i*cells*nc:(i+1)*cells*nc])
			copy(t.Mask[w*cells:(w+1)*cells], t.Mask[i*cells:(i+1)*cells])
			copy(t.Status[w*cells:(w+1)*cells], t.Status[i*cells:(i+1)*cells])
		}
		w++
	}
	t.Subjects = t.Subjects[:w]
	t.StartWeekday = t.StartWeekday[:w]
	t.DaysPresent = t.DaysPresent[:w]
	t.Discarded = t.Discarded[:w]
	t.Values = t.Values[:w*cells*nc]
	t.Mask = t.Mask[:w*cells]
	t.Status = t.Status[:w*cells]
	return t, excl, nil
}
