package xport

import "fmt"

// DecodeError reports a header that is internally inconsistent
// the offending file is unusable but the run can continue
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string { return "xport: decode: " + e.Reason }

// MalformedError reports a structure no row of which can be trusted
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string { return "xport: malformed: " + e.Reason }

// TruncatedWarning reports a body shorter than its header promised
// Declared is -1 when the header carried no record count
type TruncatedWarning struct {
	Declared int
	Got      int
	Trailing int
}

func (w *TruncatedWarning) Error() string {
	if w.Declared < 0 {
		return fmt.Sprintf("xport: truncated: %d rows decoded, %d trailing bytes dropped", w.Got, w.Trailing)
	}
	return fmt.Sprintf("xport: truncated: declared %d rows, got %d (%d trailing bytes)", w.Declared, w.Got, w.Trailing)
}

func decodeErrf(format string, a ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, a...)}
}

func malformedf(format string, a ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, a...)}
}
