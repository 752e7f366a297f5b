package align

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"nhanes/internal/core/sensor"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const epd = 1440

// minuteSeries builds a gen2011 series covering [from, to) epochs with wake-wear status
func minuteSeries(subject int64, from, to int) Series {
	s := Series{Subject: subject, Gen: sensor.Gen2011, StartWeekday: time.Tuesday}
	for i := from; i < to; i++ {
		s.Index = append(s.Index, int32(i))
		s.Values = append(s.Values, float32(1+i%7), float32(i%100))
		s.Status = append(s.Status, 1)
	}
	return s
}

func TestAlign_ShapeAndIdempotence(t *testing.T) {
	s := minuteSeries(1, 0, 2*epd)
	a, ex, err := Align(s)
	if err != nil || ex != nil {
		t.Fatalf("Align: %v %v", err, ex)
	}
	sp := sensor.Gen2011.Spec()
	if len(a.Mask) != sp.CanonicalDays*sp.EpochsPerDay || len(a.Values) != len(a.Mask)*2 {
		t.Fatalf("shape mask=%d values=%d", len(a.Mask), len(a.Values))
	}
	b, _, _ := Align(s)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("alignment not idempotent:\n%s", diff)
	}
	if a.DaysPresent != 2 || a.Valid != 2*epd {
		t.Fatalf("days=%d valid=%d", a.DaysPresent, a.Valid)
	}
}

func TestAlign_NineDaysTruncatedToSeven(t *testing.T) {
	s := minuteSeries(2, 0, 9*epd)
	r, ex, err := Align(s)
	if err != nil || ex != nil {
		t.Fatalf("Align: %v %v", err, ex)
	}
	if s.DaysPresent() != 9 {
		t.Fatalf("series days=%d", s.DaysPresent())
	}
	if r.DaysPresent != 9 || r.Valid != 7*epd || r.Discarded != 2*epd {
		t.Fatalf("days=%d valid=%d discarded=%d", r.DaysPresent, r.Valid, r.Discarded)
	}
	// day 6 keeps the seventh recorded day, not the ninth
	last := 6*epd + 10
	if r.Values[last*2] != float32(1+(6*epd+10)%7) {
		t.Fatalf("day 6 holds wrong data: %v", r.Values[last*2])
	}
}

func TestAlign_ThreeDaysLeaveFourInvalid(t *testing.T) {
	r, _, err := Align(minuteSeries(3, 0, 3*epd))
	if err != nil {
		t.Fatal(err)
	}
	for day := range 7 {
		valid := 0
		for e := range epd {
			if r.Mask[day*epd+e] {
				valid++
			}
		}
		want := 0
		if day < 3 {
			want = epd
		}
		if valid != want {
			t.Fatalf("day %d valid=%d want %d", day, valid, want)
		}
	}
}

func TestAlign_PartialFinalDay(t *testing.T) {
	// device removed at 14:00 on day 2
	r, _, err := Align(minuteSeries(4, 0, 2*epd+14*60))
	if err != nil {
		t.Fatal(err)
	}
	if !r.Mask[2*epd+14*60-1] || r.Mask[2*epd+14*60] {
		t.Fatalf("partial day boundary wrong")
	}
	if r.DaysPresent != 3 {
		t.Fatalf("days=%d want 3", r.DaysPresent)
	}
}

func TestAlign_FirstDayRightAligned(t *testing.T) {
	// recording starts at 09:30 on day 0
	start := 9*60 + 30
	r, _, err := Align(minuteSeries(5, start, epd+60))
	if err != nil {
		t.Fatal(err)
	}
	if r.Mask[start-1] || !r.Mask[start] {
		t.Fatalf("first day should start at epoch %d", start)
	}
}

func TestAlign_AllMissingExcluded(t *testing.T) {
	s := minuteSeries(6, 0, epd)
	for i := range s.Status {
		s.Status[i] = 0
	}
	_, ex, err := Align(s)
	if err != nil {
		t.Fatal(err)
	}
	if ex == nil || ex.Subject != 6 || ex.Reason != ReasonNoValidEpochs {
		t.Fatalf("exclusion=%+v", ex)
	}
}

func TestAlign_MissingRequiredChannelInvalid(t *testing.T) {
	s := minuteSeries(7, 0, 10)
	nan := float32(math.NaN())
	s.Values[0] = nan // triax at epoch 0
	s.Values[3] = nan // lux at epoch 1 is optional
	r, _, err := Align(s)
	if err != nil {
		t.Fatal(err)
	}
	if r.Mask[0] {
		t.Fatalf("missing required channel must invalidate epoch")
	}
	if !r.Mask[1] || r.Values[3] != 0 {
		t.Fatalf("missing optional channel must not invalidate epoch")
	}
	if r.Status[0] != sensor.WakeWear {
		t.Fatalf("status must be kept for invalid epochs, got %v", r.Status[0])
	}
}

func TestAlign_ClipAndStuckSensor(t *testing.T) {
	s := Series{Subject: 8, Gen: sensor.Gen2003}
	for i, v := range []float32{100, 32500, 32500, 32500, 40000, 5} {
		s.Index = append(s.Index, int32(i))
		s.Values = append(s.Values, v, 300)
		s.Status = append(s.Status, sensor.RawWorn)
	}
	r, _, err := Align(s)
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{true, false, false, true, true, true}
	for i, w := range want {
		if r.Mask[i] != w {
			t.Fatalf("epoch %d valid=%v want %v", i, r.Mask[i], w)
		}
	}
	if r.Values[4*2] != 32767 || r.Values[1] != 255 {
		t.Fatalf("clip failed: counts=%v steps=%v", r.Values[4*2], r.Values[1])
	}
}

func TestAlign_StatusMapping(t *testing.T) {
	s := minuteSeries(9, 0, 5)
	copy(s.Status, []int16{1, 2, 3, 4, 7})
	r, ex, err := Align(s)
	if err != nil || ex != nil {
		t.Fatal(err, ex)
	}
	want := []sensor.Status{sensor.WakeWear, sensor.SleepWear, sensor.NonWear, sensor.Unknown, sensor.Unknown}
	if diff := cmp.Diff(want, r.Status[:5]); diff != "" {
		t.Fatalf("status (-want +got):\n%s", diff)
	}
}

func TestAlign_BadArenas(t *testing.T) {
	s := minuteSeries(10, 0, 3)
	s.Values = s.Values[:5]
	if _, _, err := Align(s); err == nil {
		t.Fatalf("expected arena length error")
	}
}

func batchInput() []Series {
	var in []Series
	for _, id := range []int64{50, 10, 40, 20, 30} {
		s := minuteSeries(id, int(id), int(id)*50)
		if id == 40 {
			for i := range s.Status {
				s.Status[i] = 0
			}
		}
		in = append(in, s)
	}
	return in
}

func TestBatch_DeterministicAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	one, ex1, err := Batch(ctx, sensor.Gen2011, batchInput(), 1)
	if err != nil {
		t.Fatal(err)
	}
	many, ex8, err := Batch(ctx, sensor.Gen2011, batchInput(), 8)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(one, many); diff != "" {
		t.Fatalf("tensor differs across worker counts:\n%s", diff)
	}
	if diff := cmp.Diff(ex1, ex8); diff != "" {
		t.Fatalf("exclusions differ:\n%s", diff)
	}

	if diff := cmp.Diff([]int64{10, 20, 30, 50}, one.Subjects); diff != "" {
		t.Fatalf("subject order (-want +got):\n%s", diff)
	}
	if len(ex1) != 1 || ex1[0].Subject != 40 {
		t.Fatalf("exclusions=%v", ex1)
	}
	if one.Find(50) != 3 || one.Find(40) != -1 {
		t.Fatalf("Find broken")
	}
	// subject 50 was compacted over the excluded slot and must keep its own data
	single, _, _ := Align(minuteSeries(50, 50, 2500))
	if diff := cmp.Diff(single.Mask, one.Row(3).Mask); diff != "" {
		t.Fatalf("row 3 is not subject 50")
	}
	if one.ValidEpochs(3) != single.Valid {
		t.Fatalf("ValidEpochs=%d want %d", one.ValidEpochs(3), single.Valid)
	}
	if v, ok := one.At(0, 0, 10, 0); !ok || v != float32(1+10%7) {
		t.Fatalf("At(0,0,10,0)=%v,%v", v, ok)
	}
}

func TestBatch_KeepsOverflowCounts(t *testing.T) {
	in := []Series{minuteSeries(2, 0, 9*epd), minuteSeries(1, 0, 3*epd)}
	tn, ex, err := Batch(context.Background(), sensor.Gen2011, in, 2)
	if err != nil || len(ex) != 0 {
		t.Fatalf("Batch: %v %v", err, ex)
	}
	if diff := cmp.Diff([]int{3, 9}, tn.DaysPresent); diff != "" {
		t.Fatalf("days present (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 2 * epd}, tn.Discarded); diff != "" {
		t.Fatalf("discarded (-want +got):\n%s", diff)
	}
	if tn.Truncated() != 1 || tn.DiscardedEpochs() != 2*epd {
		t.Fatalf("truncated=%d discarded=%d", tn.Truncated(), tn.DiscardedEpochs())
	}
	if r := tn.Row(1); r.DaysPresent != 9 || r.Discarded != 2*epd {
		t.Fatalf("row view: days=%d discarded=%d", r.DaysPresent, r.Discarded)
	}
	if tn.ValidEpochs(1) != 7*epd {
		t.Fatalf("valid=%d", tn.ValidEpochs(1))
	}
}

func TestBatch_Errors(t *testing.T) {
	ctx := context.Background()
	dup := []Series{minuteSeries(1, 0, 10), minuteSeries(1, 0, 10)}
	if _, _, err := Batch(ctx, sensor.Gen2011, dup, 2); err == nil {
		t.Fatalf("expected duplicate subject error")
	}
	wrong := []Series{minuteSeries(1, 0, 10)}
	if _, _, err := Batch(ctx, sensor.Gen2003, wrong, 2); err == nil {
		t.Fatalf("expected generation mismatch error")
	}
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := Batch(cctx, sensor.Gen2011, batchInput(), 2); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestBatch_Empty(t *testing.T) {
	tn, ex, err := Batch(context.Background(), sensor.Gen2003, nil, 4)
	if err != nil || tn.Len() != 0 || len(ex) != 0 {
		t.Fatalf("empty batch: %v %v %v", tn, ex, err)
	}
}
