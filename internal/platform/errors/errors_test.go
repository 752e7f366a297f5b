package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodes(t *testing.T) {
	cases := []struct {
		code   ErrorCode
		name   string
		status int
	}{
		{ErrorCodeNotFound, "not_found", http.StatusNotFound},
		{ErrorCodeInvalidArgument, "invalid_argument", http.StatusUnprocessableEntity},
		{ErrorCodeValidation, "validation", http.StatusBadRequest},
		{ErrorCodeJSON, "json", http.StatusBadRequest},
		{ErrorCodeConflict, "conflict", http.StatusConflict},
		{ErrorCodeDuplicateKey, "duplicate_key", http.StatusConflict},
		{ErrorCodeUnauthorized, "unauthorized", http.StatusUnauthorized},
		{ErrorCodeUnavailable, "unavailable", http.StatusServiceUnavailable},
		{ErrorCodeDB, "db", http.StatusInternalServerError},
		{ErrorCodePanic, "panic", http.StatusInternalServerError},
		{ErrorCodeCanceled, "canceled", 499},
		{ErrorCodeDecode, "decode_error", http.StatusUnprocessableEntity},
		{ErrorCodeTruncated, "truncated_file", http.StatusUnprocessableEntity},
		{ErrorCodeSchemaMismatch, "schema_mismatch", http.StatusUnprocessableEntity},
		{ErrorCodeVariableUnavailable, "variable_unavailable", http.StatusNotFound},
		{ErrorCodeSubjectExcluded, "subject_excluded", http.StatusNotFound},
		{ErrorCodeMalformed, "malformed", http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.code.String() != c.name {
				t.Errorf("String = %q", c.code.String())
			}
			if got, ok := ParseCode(c.name); !ok || got != c.code {
				t.Errorf("ParseCode = %v,%v", got, ok)
			}
			if got := HTTPStatusCode(c.code); got != c.status {
				t.Errorf("HTTPStatusCode = %d, want %d", got, c.status)
			}
		})
	}
	if ErrorCode(999).String() != "code(999)" {
		t.Fatalf("unknown code name")
	}
	if _, ok := ParseCode("nope"); ok {
		t.Fatalf("ParseCode should reject unknown names")
	}
	if HTTPStatusCode(999) != http.StatusInternalServerError {
		t.Fatalf("unknown codes map to 500")
	}
}

func TestErrorWrapping(t *testing.T) {
	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Fatalf("nil *Error renders <nil>")
	}

	cause := stderrs.New("unexpected EOF")
	err := Wrapf(cause, ErrorCodeTruncated, "DEMO_C.XPT: %d rows", 12)
	if err.Error() != "DEMO_C.XPT: 12 rows: unexpected EOF" {
		t.Fatalf("message = %q", err.Error())
	}
	if !stderrs.Is(err, cause) || Root(fmt.Errorf("outer: %w", err)) != cause {
		t.Fatalf("cause chain broken")
	}
	if !IsCode(fmt.Errorf("file task: %w", err), ErrorCodeTruncated) {
		t.Fatalf("code lost through fmt wrapping")
	}
	if CodeOf(cause) != ErrorCodeUnknown || HTTPStatus(cause) != http.StatusInternalServerError {
		t.Fatalf("foreign errors are unknown")
	}

	withField := WithField(InvalidArgf("seqn must be positive"), "seqn")
	if w := WireFrom(withField); w.Field != "seqn" || w.Code != ErrorCodeInvalidArgument || w.Message != "seqn must be positive" {
		t.Fatalf("wire = %+v", w)
	}
	if WithField(cause, "x") != cause {
		t.Fatalf("foreign errors pass WithField unchanged")
	}
	if w := WireFrom(cause); w.Code != ErrorCodeUnknown || w.Message != "unexpected EOF" {
		t.Fatalf("foreign wire = %+v", w)
	}
	if (WireFrom(nil) != Wire{}) {
		t.Fatalf("nil wire")
	}
	if !IsCode(ErrNotFound, ErrorCodeNotFound) || !IsCode(Conflictf("run %s", "r1"), ErrorCodeConflict) {
		t.Fatalf("sugar constructors")
	}
}

func TestFatal(t *testing.T) {
	if !Fatal(New(ErrorCodeMalformed, "zero width")) {
		t.Fatalf("malformed must be fatal")
	}
	if !Fatal(fmt.Errorf("file x: %w", New(ErrorCodeMalformed, "bad namestr"))) {
		t.Fatalf("wrapped malformed must be fatal")
	}
	for _, err := range []error{nil, New(ErrorCodeDecode, "overlap"), New(ErrorCodeTruncated, "short"), stderrs.New("plain")} {
		if Fatal(err) {
			t.Fatalf("Fatal(%v) should be false", err)
		}
	}
}
