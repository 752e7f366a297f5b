// Package http hosts the chi server, its router facade and the JSON response helpers
package http

import (
	"encoding/json"
	stdhttp "net/http"

	pnet "nhanes/internal/platform/net"
)

// Envelope is the response body of every endpoint
type Envelope = pnet.Wire

// JSON writes v as application/json with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is what return-style handlers produce
// an error Body replaces Status with the mapped error status
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

// OK returns a 200 response
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// NoContent returns a 204 response
func NoContent() Response { return Response{Status: stdhttp.StatusNoContent} }

// Error returns a response carrying err
func Error(err error) Response { return Response{Body: err} }

// Result turns a handler's (value, error) pair into a Response
// a value that already is a Response passes through
func Result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}

// Handle adapts a Response-returning function to a Handler
func Handle(h func(r *stdhttp.Request) Response) Handler {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		h(r).write(w, r)
	}
}

func (resp Response) write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	reqID := pnet.RequestID(r.Context())
	if err, ok := resp.Body.(error); ok {
		status, body := pnet.Error(err, reqID)
		JSON(w, status, body)
		return
	}
	status := resp.Status
	switch status {
	case 0:
		status = stdhttp.StatusOK
	case stdhttp.StatusNoContent:
		w.WriteHeader(status)
		return
	}
	JSON(w, status, pnet.Reply(status, resp.Body, reqID))
}
