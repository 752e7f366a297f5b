package xport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"

	"nhanes/internal/core/table"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Dataset describes the single member a Writer emits
type Dataset struct {
	Name    string
	Label   string
	Columns []table.Column
	Created time.Time
}

// WriterOption customizes a Writer
type WriterOption func(*Writer)

// WithDeclaredRows stamps n into the observation header
func WithDeclaredRows(n int) WriterOption { return func(w *Writer) { w.declared = n } }

// Writer emits a transport file one row at a time
type Writer struct {
	bw       *bufio.Writer
	cols     []table.Column
	width    int
	declared int
	latin    *encoding.Encoder

	row  []byte
	body int64
	rows int
}

// Layout assigns contiguous offsets to cols in order and gives numeric
// columns without their own sentinels the transport missing codes
func Layout(cols []table.Column) []table.Column {
	out := make([]table.Column, len(cols))
	off := 0
	for i, c := range cols {
		c.Offset = off
		off += c.Width
		if c.Kind == table.Numeric && c.Sentinels == nil {
			c.Sentinels = MissingCodes()
		}
		out[i] = c
	}
	return out
}

// NewWriter writes the header for ds and returns a Writer positioned at the body
func NewWriter(w io.Writer, ds Dataset, opts ...WriterOption) (*Writer, error) {
	width := 0
	for _, c := range ds.Columns {
		if c.End() > width {
			width = c.End()
		}
	}
	wr := &Writer{
		bw:    bufio.NewWriter(w),
		cols:  ds.Columns,
		width: width,
		latin: charmap.ISO8859_1.NewEncoder(),
		row:   make([]byte, width),
	}
	for _, o := range opts {
		o(wr)
	}
	if err := wr.writeHeader(ds); err != nil {
		return nil, err
	}
	return wr, nil
}

func (w *Writer) writeHeader(ds Dataset) error {
	created := sasDate(ds.Created)
	recs := []string{
		libraryTag + strings.Repeat("0", 30) + "  ",
		fmt.Sprintf("%-8s%-8s%-8s%-8s%-8s%24s%-16s", "SAS", "SAS", "SASLIB", "9.4", "Linux", "", created),
		fmt.Sprintf("%-16s%64s", created, ""),
		memberTag + "000000000000000001600000000140  ",
		dscrptrTag + strings.Repeat("0", 30) + "  ",
		fmt.Sprintf("%-8s%-8s%-8s%-8s%-8s%24s%-16s", "SAS", clip(ds.Name, 8), "SASDATA", "9.4", "Linux", "", created),
		fmt.Sprintf("%-16s%16s%-40s%-8s", created, "", clip(ds.Label, 40), ""),
		fmt.Sprintf("%s000000%04d%s  ", namestrTag, len(ds.Columns), strings.Repeat("0", 20)),
	}
	for _, r := range recs {
		if _, err := w.bw.WriteString(r); err != nil {
			return err
		}
	}

	ns := make([]byte, namestrLen)
	for i, c := range ds.Columns {
		clear(ns)
		ntype := uint16(typeNumeric)
		if c.Kind == table.String {
			ntype = typeString
		}
		binary.BigEndian.PutUint16(ns[0:2], ntype)
		binary.BigEndian.PutUint16(ns[4:6], uint16(c.Width))
		binary.BigEndian.PutUint16(ns[6:8], uint16(i+1))
		copy(ns[8:16], fmt.Sprintf("%-8s", clip(c.Name, 8)))
		copy(ns[16:56], fmt.Sprintf("%-40s", clip(c.Label, 40)))
		copy(ns[56:64], fmt.Sprintf("%-8s", clip(c.Format, 8)))
		copy(ns[72:80], strings.Repeat(" ", 8))
		binary.BigEndian.PutUint32(ns[84:88], uint32(c.Offset))
		if _, err := w.bw.Write(ns); err != nil {
			return err
		}
	}
	if pad := (recordLen - (len(ds.Columns)*namestrLen)%recordLen) % recordLen; pad > 0 {
		if _, err := w.bw.WriteString(strings.Repeat(" ", pad)); err != nil {
			return err
		}
	}

	declared := max(w.declared, 0)
	_, err := w.bw.WriteString(fmt.Sprintf("%s%015d%015d  ", obsTag, declared, 0))
	return err
}

// WriteRow encodes one row; vals must follow the column order
func (w *Writer) WriteRow(vals []table.Value) error {
	if len(vals) != len(w.cols) {
		return fmt.Errorf("xport: row has %d values, want %d", len(vals), len(w.cols))
	}
	for i := range w.row {
		w.row[i] = ' '
	}
	for i, c := range w.cols {
		cell := w.row[c.Offset:c.End()]
		v := vals[i]
		if c.Kind == table.String {
			s := v.Str
			if v.Kind == table.Missing {
				s = ""
			}
			enc, err := w.latin.String(s)
			if err != nil {
				return fmt.Errorf("xport: column %s: %w", c.Name, err)
			}
			copy(cell, enc)
			continue
		}
		clear(cell)
		if v.Kind == table.Missing {
			code := v.Code
			if !IsMissingCode(code) {
				code = '.'
			}
			cell[0] = code
			continue
		}
		b, err := floatToIBM(v.Num)
		if err != nil {
			return fmt.Errorf("xport: column %s: %w", c.Name, err)
		}
		copy(cell, b[:c.Width])
	}
	n, err := w.bw.Write(w.row)
	w.body += int64(n)
	if err == nil {
		w.rows++
	}
	return err
}

// WriteRaw appends raw body bytes; used to build damaged fixtures
func (w *Writer) WriteRaw(b []byte) error {
	n, err := w.bw.Write(b)
	w.body += int64(n)
	return err
}

// Rows returns the number of rows written
func (w *Writer) Rows() int { return w.rows }

// Close pads the body to a record boundary and flushes
func (w *Writer) Close() error {
	if pad := (recordLen - int(w.body%recordLen)) % recordLen; pad > 0 {
		if _, err := w.bw.WriteString(strings.Repeat(" ", pad)); err != nil {
			return err
		}
	}
	return w.bw.Flush()
}

// Flush writes buffered bytes without padding the body
func (w *Writer) Flush() error { return w.bw.Flush() }

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func sasDate(t time.Time) string {
	if t.IsZero() {
		t = time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return strings.ToUpper(t.UTC().Format("02Jan06:15:04:05"))
}
