package net

import (
	"net/http"

	perr "nhanes/internal/platform/errors"
)

// Wire is the JSON envelope every endpoint replies with
type Wire struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Reply builds a success envelope with the given status
func Reply(status int, data any, reqID string) Wire {
	return Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  reqID,
		Data:       data,
	}
}

// Error builds the envelope for err and returns it with its mapped status
// a nil err is a 200 with no data
func Error(err error, reqID string) (int, Wire) {
	if err == nil {
		return http.StatusOK, Reply(http.StatusOK, nil, reqID)
	}
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return status, Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Kind:       w.Code.String(),
		Error:      w.Message,
		Field:      w.Field,
		RequestID:  reqID,
	}
}
