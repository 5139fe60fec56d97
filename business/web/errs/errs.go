// Package errs maps the failures of the miner api to responses.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/blockminer/foundation/validate"
)

// Kind classifies a failure that is safe to report to the client.
type Kind int

// Set of failure kinds the api responds with.
const (
	Internal Kind = iota
	BadRequest
	NotFound
)

// String returns the name of the kind as it appears in responses.
func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad_request"
	case NotFound:
		return "not_found"
	}
	return "internal"
}

// Status returns the http status code for the kind.
func (k Kind) Status() int {
	switch k {
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// =============================================================================

// Error is a failure a handler expects, like a txid that does not decode or
// a block that was never mined. Its message is shown to the client.
type Error struct {
	Kind Kind
	Err  error
}

// New wraps err with the specified kind.
func New(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Newf constructs an error of the specified kind from a format string.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Err.Error()
}

// Unwrap gives access to the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first Error in the chain. Errors the
// handlers did not classify are Internal.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return Internal
	}
	return e.Kind
}

// =============================================================================

// Response is the form used for api responses from failures.
type Response struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewResponse builds the body and status code to send for err. Internal
// failures never leak their message.
func NewResponse(err error) (Response, int) {
	if validate.IsFieldErrors(err) {
		resp := Response{
			Error:  "data validation error",
			Kind:   BadRequest.String(),
			Fields: validate.GetFieldErrors(err).Fields(),
		}
		return resp, BadRequest.Status()
	}

	kind := KindOf(err)
	if kind == Internal {
		resp := Response{
			Error: http.StatusText(http.StatusInternalServerError),
			Kind:  kind.String(),
		}
		return resp, kind.Status()
	}

	resp := Response{
		Error: err.Error(),
		Kind:  kind.String(),
	}
	return resp, kind.Status()
}
