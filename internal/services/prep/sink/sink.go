// Package sink writes aligned tensors to ClickHouse
//
// Each subject day becomes one row: the day's epochs for every channel, its validity
// mask and its unified status codes. Rows carry the run id so a tensor is only
// visible through a published ledger entry.
package sink

import (
	"context"
	"fmt"
	"math"
	"time"

	"nhanes/internal/core/align"
	"nhanes/internal/platform/store"
	"nhanes/internal/services/prep/domain"
)

// Table is the destination table name
const Table = "epoch_tensors"

// DDL creates Table when missing
const DDL = `CREATE TABLE IF NOT EXISTS ` + Table + ` (
	run_id       String,
	generation   LowCardinality(String),
	seqn         Int64,
	day_slot     UInt8,
	weekday      UInt8,
	days_present UInt8,
	values       Array(Array(Float32)),
	mask         Array(UInt8),
	status       Array(Int8)
) ENGINE = MergeTree
ORDER BY (run_id, generation, seqn, day_slot)`

// CH is a domain.TensorSink over the store clickhouse seam
type CH struct {
	db    store.Clickhouse
	batch int
}

// New returns a sink writing batch rows per insert; batch <= 0 means 1024
func New(db store.Clickhouse, batch int) *CH {
	if db == nil {
		panic("sink: nil clickhouse")
	}
	if batch <= 0 {
		batch = 1024
	}
	return &CH{db: db, batch: batch}
}

var _ domain.TensorSink = (*CH)(nil)

// EnsureTable creates the destination table
func (c *CH) EnsureTable(ctx context.Context) error {
	return c.db.Exec(ctx, DDL)
}

// Write inserts every subject day of t
func (c *CH) Write(ctx context.Context, runID string, t *align.Tensor) (int, error) {
	if t.Len() == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, c.batch)
	total := 0
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if err := c.db.Insert(ctx, Table, rows); err != nil {
			return fmt.Errorf("sink: insert %d %s rows: %w", len(rows), t.Gen, err)
		}
		total += len(rows)
		rows = rows[:0]
		return nil
	}
	for i := range t.Len() {
		for day := range t.Days {
			rows = append(rows, DayRow(runID, t, i, day))
			if len(rows) == c.batch {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
	return total, flush()
}

// DayRow renders subject i, day slot day of t in column order
func DayRow(runID string, t *align.Tensor, i, day int) []any {
	values := make([][]float32, t.Channels)
	for ch := range values {
		values[ch] = make([]float32, t.Epochs)
	}
	mask := make([]uint8, t.Epochs)
	status := make([]int8, t.Epochs)

	row := t.Row(i)
	base := day * t.Epochs
	for e := range t.Epochs {
		for ch := range t.Channels {
			values[ch][e] = row.Values[(base+e)*t.Channels+ch]
		}
		if row.Mask[base+e] {
			mask[e] = 1
		}
		status[e] = int8(row.Status[base+e])
	}
	wd := (int(t.StartWeekday[i]) + day) % 7
	return []any{
		runID,
		t.Gen.String(),
		t.Subjects[i],
		uint8(day),
		uint8(time.Weekday(wd)),
		uint8(min(t.DaysPresent[i], math.MaxUint8)),
		values,
		mask,
		status,
	}
}
