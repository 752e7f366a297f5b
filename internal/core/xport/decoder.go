package xport

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"nhanes/internal/core/table"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Decoder streams rows from a transport file
type Decoder struct {
	br     *bufio.Reader
	hdr    header
	schema *table.Schema
	latin  *encoding.Decoder

	row     []byte
	pending []byte // blank rows held back until we know they are not padding
	flush   int    // pending rows cleared for emission

	rows  int
	bytes int64
	warns []TruncatedWarning
	eof   bool
	err   error
}

// NewDecoder parses the header of r and positions the decoder at the first row
func NewDecoder(r io.Reader) (*Decoder, error) {
	br := bufio.NewReaderSize(r, 256*1024)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		br:     br,
		hdr:    h,
		schema: table.NewSchema(h.columns),
		latin:  charmap.ISO8859_1.NewDecoder(),
		row:    make([]byte, h.width),
	}, nil
}

// Columns returns the decoded column table
func (d *Decoder) Columns() []table.Column { return d.hdr.columns }

// Schema returns the indexed column table
func (d *Decoder) Schema() *table.Schema { return d.schema }

// Dataset returns the member name stored in the header
func (d *Decoder) Dataset() string { return d.hdr.dataset }

// Label returns the member label stored in the header
func (d *Decoder) Label() string { return d.hdr.label }

// Declared returns the record count promised by the header, -1 when absent
func (d *Decoder) Declared() int { return d.hdr.declared }

// RowWidth returns the fixed row width in bytes
func (d *Decoder) RowWidth() int { return d.hdr.width }

// Warnings returns truncation warnings seen so far
func (d *Decoder) Warnings() []TruncatedWarning { return d.warns }

// Stats returns rows decoded and body bytes consumed so far
func (d *Decoder) Stats() (rows int, bytes int64) { return d.rows, d.bytes }

// Next decodes the next row into a fresh Record; returns io.EOF when done
func (d *Decoder) Next() (table.Record, error) {
	vals := make([]table.Value, len(d.hdr.columns))
	if err := d.Scan(vals); err != nil {
		return table.Record{}, err
	}
	return table.NewRecord(d.schema, vals), nil
}

// Scan decodes the next row into dst, which must have one slot per column
func (d *Decoder) Scan(dst []table.Value) error {
	raw, err := d.nextRaw()
	if err != nil {
		return err
	}
	d.rows++
	d.decodeRow(raw, dst)
	return nil
}

func (d *Decoder) nextRaw() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.hdr.declared >= 0 && d.rows >= d.hdr.declared {
		d.err = io.EOF
		return nil, io.EOF
	}
	w := d.hdr.width

	if d.flush > 0 {
		out := d.pending[:w]
		d.pending = d.pending[w:]
		d.flush--
		if d.flush == 0 && d.eof {
			d.err = io.EOF
		}
		return out, nil
	}

	for {
		n, err := io.ReadFull(d.br, d.row)
		d.bytes += int64(n)
		switch {
		case err == nil:
			if isBlank(d.row) {
				d.pending = append(d.pending, d.row...)
				continue
			}
			if len(d.pending) == 0 {
				return d.row, nil
			}
			// blanks followed by data were real rows
			d.pending = append(d.pending, d.row...)
			d.flush = len(d.pending) / w
			return d.nextRaw()

		case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
			tail := d.row[:n]
			padding := len(d.pending)+n < recordLen && isBlank(tail)
			trailing := n
			if padding {
				d.pending = d.pending[:0]
				trailing = 0
			}
			got := d.rows + len(d.pending)/w
			short := d.hdr.declared >= 0 && got < d.hdr.declared
			partial := n > 0 && !isBlank(tail)
			if short || partial {
				d.warns = append(d.warns, TruncatedWarning{Declared: d.hdr.declared, Got: got, Trailing: trailing})
			}
			d.eof = true
			if len(d.pending) > 0 {
				d.flush = len(d.pending) / w
				return d.nextRaw()
			}
			d.err = io.EOF
			return nil, io.EOF

		default:
			d.err = err
			return nil, err
		}
	}
}

func (d *Decoder) decodeRow(raw []byte, dst []table.Value) {
	for i, c := range d.hdr.columns {
		if i >= len(dst) {
			return
		}
		cell := raw[c.Offset:c.End()]
		if c.Kind == table.String {
			dst[i] = table.Str(d.decodeString(cell))
			continue
		}
		if code, ok := missingCode(cell, c); ok {
			dst[i] = table.Miss(code)
			continue
		}
		dst[i] = table.Num(ibmToFloat(cell))
	}
}

func (d *Decoder) decodeString(b []byte) string {
	b = bytes.Trim(b, " \x00")
	if len(b) == 0 {
		return ""
	}
	for _, x := range b {
		if x >= 0x80 {
			out, err := d.latin.Bytes(b)
			if err != nil {
				return string(b)
			}
			return string(out)
		}
	}
	return string(b)
}

func isBlank(b []byte) bool {
	for _, x := range b {
		if x != ' ' {
			return false
		}
	}
	return true
}

// DecodeAll reads r into a columnar table
// truncation is reported through the returned warnings, never as an error
func DecodeAll(r io.Reader) (*table.Table, []TruncatedWarning, error) {
	d, err := NewDecoder(r)
	if err != nil {
		return nil, nil, err
	}
	t := table.New(d.Dataset(), d.Schema())
	vals := make([]table.Value, len(d.Columns()))
	for {
		if err := d.Scan(vals); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return t, d.Warnings(), err
		}
		t.Append(vals)
	}
	return t, d.Warnings(), nil
}
