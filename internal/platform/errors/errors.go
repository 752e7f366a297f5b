// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error for logs, the issue ledger and HTTP replies
// values are not persisted; the ledger stores String()
type ErrorCode uint16

// generic codes
const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable
	ErrorCodeConflict
	ErrorCodeUnauthorized
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeJSON
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB
	ErrorCodeCanceled
)

// data codes raised while preparing a release
const (
	// ErrorCodeDecode is a transport file whose header is internally inconsistent
	ErrorCodeDecode ErrorCode = iota + 100
	// ErrorCodeTruncated is a file that ended before its declared row count
	ErrorCodeTruncated
	// ErrorCodeSchemaMismatch is a file that does not match its expected layout
	ErrorCodeSchemaMismatch
	// ErrorCodeVariableUnavailable is a variable with no source code in a cycle
	ErrorCodeVariableUnavailable
	// ErrorCodeSubjectExcluded is a subject with no valid epochs
	ErrorCodeSubjectExcluded
	// ErrorCodeMalformed is structure that prevents trusting any row; fatal to a run
	ErrorCodeMalformed
)

var codeNames = map[ErrorCode]string{
	ErrorCodeUnknown:             "unknown",
	ErrorCodePanic:               "panic",
	ErrorCodeUnavailable:         "unavailable",
	ErrorCodeConflict:            "conflict",
	ErrorCodeUnauthorized:        "unauthorized",
	ErrorCodeInvalidArgument:     "invalid_argument",
	ErrorCodeValidation:          "validation",
	ErrorCodeJSON:                "json",
	ErrorCodeNotFound:            "not_found",
	ErrorCodeDuplicateKey:        "duplicate_key",
	ErrorCodeDB:                  "db",
	ErrorCodeCanceled:            "canceled",
	ErrorCodeDecode:              "decode_error",
	ErrorCodeTruncated:           "truncated_file",
	ErrorCodeSchemaMismatch:      "schema_mismatch",
	ErrorCodeVariableUnavailable: "variable_unavailable",
	ErrorCodeSubjectExcluded:     "subject_excluded",
	ErrorCodeMalformed:           "malformed",
}

// String returns the snake_case name used in logs and issue ledgers
func (c ErrorCode) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// ParseCode is the inverse of ErrorCode.String
func ParseCode(s string) (ErrorCode, bool) {
	for c, n := range codeNames {
		if n == s {
			return c, true
		}
	}
	return ErrorCodeUnknown, false
}

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound, ErrorCodeVariableUnavailable, ErrorCodeSubjectExcluded:
		return http.StatusNotFound
	case ErrorCodeInvalidArgument,
		ErrorCodeDecode, ErrorCodeTruncated, ErrorCodeSchemaMismatch, ErrorCodeMalformed:
		return http.StatusUnprocessableEntity
	case ErrorCodeDuplicateKey, ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeValidation, ErrorCodeJSON:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorCodeCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error carries a code, a message, an optional field and the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

// Wire is the JSON form returned by the API
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// WireFrom converts any error into a Wire payload; nil gives the zero Wire
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return Wire{Code: e.code, Message: e.msg, Field: e.field}
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithField returns a copy of err naming the offending field; foreign errors pass unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unauthorizedf returns an unauthorized error
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }

// Conflictf returns a conflict error
func Conflictf(format string, a ...any) error { return Newf(ErrorCodeConflict, format, a...) }

// Fatal reports whether a data error must abort a whole prep run
// file and subject level codes are collected instead
func Fatal(err error) bool { return err != nil && CodeOf(err) == ErrorCodeMalformed }
