package xport

import (
	"encoding/binary"
	"errors"
	"math"

	"nhanes/internal/core/table"
)

// ErrOverflow is returned when a float does not fit the IBM exponent range
var ErrOverflow = errors.New("xport: value exceeds ibm float range")

// IsMissingCode reports whether c is a valid missing sentinel
func IsMissingCode(c byte) bool {
	return c == '.' || c == '_' || (c >= 'A' && c <= 'Z')
}

// MissingCodes lists every numeric missing sentinel: '.', '_' and 'A'..'Z'
func MissingCodes() []string {
	out := []string{".", "_"}
	for c := byte('A'); c <= 'Z'; c++ {
		out = append(out, string(c))
	}
	return out
}

// missingCode returns the sentinel when cell is one of col's missing markers
// followed by zero bytes
func missingCode(cell []byte, col table.Column) (byte, bool) {
	if len(cell) == 0 {
		return 0, false
	}
	for _, x := range cell[1:] {
		if x != 0 {
			return 0, false
		}
	}
	if !col.IsSentinel(string(cell[:1])) {
		return 0, false
	}
	return cell[0], true
}

// ibmToFloat converts a 1..8 byte big-endian IBM hexadecimal float
func ibmToFloat(b []byte) float64 {
	var buf [8]byte
	copy(buf[:], b)
	u := binary.BigEndian.Uint64(buf[:])
	mant := u & 0x00ffffffffffffff
	if mant == 0 {
		return 0
	}
	exp := int((u >> 56) & 0x7f)
	f := math.Ldexp(float64(mant), 4*(exp-64)-56)
	if u>>63 == 1 {
		f = -f
	}
	return f
}

// floatToIBM converts f into the 8-byte IBM representation
// values below the IBM range flush to zero
func floatToIBM(f float64) ([8]byte, error) {
	var out [8]byte
	if f == 0 || math.IsNaN(f) {
		return out, nil
	}
	if math.IsInf(f, 0) {
		return out, ErrOverflow
	}
	sign := uint64(0)
	if f < 0 {
		sign = 1
		f = -f
	}
	frac, e2 := math.Frexp(f)
	e16 := floorDiv(e2+3, 4)
	exp := e16 + 64
	if exp > 127 {
		return out, ErrOverflow
	}
	if exp < 0 {
		return out, nil
	}
	mant := uint64(math.Ldexp(frac, 56+e2-4*e16))
	u := sign<<63 | uint64(exp)<<56 | (mant & 0x00ffffffffffffff)
	binary.BigEndian.PutUint64(out[:], u)
	return out, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
