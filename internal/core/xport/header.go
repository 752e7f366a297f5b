package xport

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strconv"
	"strings"

	"nhanes/internal/core/table"
)

const (
	recordLen  = 80
	namestrLen = 140

	typeNumeric = 1
	typeString  = 2

	maxStringWidth = 200
)

const (
	libraryTag = "HEADER RECORD*******LIBRARY HEADER RECORD!!!!!!!"
	memberTag  = "HEADER RECORD*******MEMBER  HEADER RECORD!!!!!!!"
	dscrptrTag = "HEADER RECORD*******DSCRPTR HEADER RECORD!!!!!!!"
	namestrTag = "HEADER RECORD*******NAMESTR HEADER RECORD!!!!!!!"
	obsTag     = "HEADER RECORD*******OBS     HEADER RECORD!!!!!!!"
)

// header is the parsed preamble of a transport file
type header struct {
	dataset  string
	label    string
	columns  []table.Column
	width    int
	declared int
}

// readRecord reads one 80-byte header record
// a clean EOF before the first byte is reported as io.EOF
func readRecord(br *bufio.Reader, buf []byte) error {
	_, err := io.ReadFull(br, buf[:recordLen])
	return err
}

func readHeader(br *bufio.Reader) (header, error) {
	var h header
	rec := make([]byte, recordLen)

	if err := readRecord(br, rec); err != nil {
		return h, malformedf("missing library header: %v", err)
	}
	if !bytes.HasPrefix(rec, []byte(libraryTag)) {
		return h, malformedf("not a transport file")
	}
	// real library header and modified date
	for range 2 {
		if err := readRecord(br, rec); err != nil {
			return h, decodeErrf("header ends inside library records")
		}
	}

	if err := readRecord(br, rec); err != nil {
		return h, decodeErrf("header ends before member record")
	}
	if !bytes.HasPrefix(rec, []byte(memberTag)) {
		return h, malformedf("member header record not found")
	}
	nlen := namestrLen
	if n, err := strconv.Atoi(strings.TrimSpace(string(rec[74:78]))); err == nil && (n == 136 || n == 140) {
		nlen = n
	}

	if err := readRecord(br, rec); err != nil || !bytes.HasPrefix(rec, []byte(dscrptrTag)) {
		return h, decodeErrf("descriptor header record not found")
	}
	if err := readRecord(br, rec); err != nil {
		return h, decodeErrf("header ends inside member descriptor")
	}
	h.dataset = strings.TrimSpace(string(rec[8:16]))
	if err := readRecord(br, rec); err != nil {
		return h, decodeErrf("header ends inside member descriptor")
	}
	h.label = strings.TrimSpace(string(rec[32:72]))

	if err := readRecord(br, rec); err != nil {
		return h, decodeErrf("header ends before namestr record")
	}
	if !bytes.HasPrefix(rec, []byte(namestrTag)) {
		return h, malformedf("namestr header record not found")
	}
	nvars, err := strconv.Atoi(strings.TrimSpace(string(rec[54:58])))
	if err != nil {
		return h, malformedf("column count does not parse: %q", rec[54:58])
	}
	if nvars <= 0 {
		return h, malformedf("column table is empty")
	}

	raw := make([]byte, nvars*nlen)
	if _, err := io.ReadFull(br, raw); err != nil {
		return h, decodeErrf("header ends in the middle of the column table")
	}
	if pad := (recordLen - len(raw)%recordLen) % recordLen; pad > 0 {
		if _, err := io.ReadFull(br, rec[:pad]); err != nil {
			return h, decodeErrf("header ends in the middle of a record")
		}
	}

	cols := make([]table.Column, 0, nvars)
	for i := range nvars {
		c, err := parseNamestr(raw[i*nlen : (i+1)*nlen])
		if err != nil {
			return h, err
		}
		cols = append(cols, c)
	}
	width, err := validateLayout(cols)
	if err != nil {
		return h, err
	}

	if err := readRecord(br, rec); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return h, decodeErrf("header ends in the middle of a record")
		}
		return h, err
	}
	if !bytes.HasPrefix(rec, []byte(obsTag)) {
		return h, decodeErrf("observation header record not found")
	}
	h.declared = parseDeclared(rec[48:63])

	h.columns = cols
	h.width = width
	return h, nil
}

func parseNamestr(b []byte) (table.Column, error) {
	ntype := int(binary.BigEndian.Uint16(b[0:2]))
	nlng := int(binary.BigEndian.Uint16(b[4:6]))
	name := strings.TrimSpace(string(b[8:16]))
	label := strings.TrimSpace(string(b[16:56]))
	format := strings.TrimSpace(string(b[56:64]))
	npos := int(int32(binary.BigEndian.Uint32(b[84:88])))

	c := table.Column{Name: name, Label: label, Width: nlng, Offset: npos, Format: format}
	switch ntype {
	case typeNumeric:
		c.Kind = table.Numeric
		c.Sentinels = MissingCodes()
		if nlng < 2 || nlng > 8 {
			return c, decodeErrf("column %s: numeric width %d outside 2..8", name, nlng)
		}
	case typeString:
		c.Kind = table.String
		if nlng < 1 || nlng > maxStringWidth {
			return c, decodeErrf("column %s: string width %d outside 1..%d", name, nlng, maxStringWidth)
		}
	default:
		return c, malformedf("column %q: unknown type tag %d", name, ntype)
	}
	if name == "" {
		return c, malformedf("column at offset %d has no name", npos)
	}
	return c, nil
}

// validateLayout checks offsets are contiguous and returns the row width
func validateLayout(cols []table.Column) (int, error) {
	end := 0
	for _, c := range cols {
		switch {
		case c.Offset < end:
			return 0, decodeErrf("column %s at offset %d overlaps previous column ending at %d", c.Name, c.Offset, end)
		case c.Offset > end:
			return 0, decodeErrf("column %s at offset %d leaves a gap after %d; widths do not sum to row width", c.Name, c.Offset, end)
		}
		end = c.End()
	}
	if end <= 0 {
		return 0, malformedf("row width is zero")
	}
	return end, nil
}

func parseDeclared(b []byte) int {
	s := strings.TrimSpace(string(b))
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return -1
	}
	return n
}
