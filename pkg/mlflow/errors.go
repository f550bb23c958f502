package mlflow

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	ErrTransport Err = iota + 1
	ErrServer
	ErrNotFound
	ErrConflict
	ErrInvalidArgument
	ErrDecode
)

// MLflow error codes the client branches on
const (
	codeResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	codeResourceDoesNotExist  = "RESOURCE_DOES_NOT_EXIST"
	codeInvalidParameterValue = "INVALID_PARAMETER_VALUE"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Err is the kind of failure reported by a Client operation. The set of
// kinds is closed; compare with errors.Is(err, mlflow.ErrNotFound).
//
// There is no authentication kind: 401 and 403 responses are reported as
// ErrInvalidArgument. Check Error.StatusCode to tell them apart from a
// malformed request.
type Err int

// Error is returned by every failing Client operation.
type Error struct {
	Kind       Err
	Op         string // endpoint path, e.g. "experiments/get"
	StatusCode int    // zero when no response was received
	Code       string // MLflow error_code, if the server sent one
	Message    string
	Err        error
}

// errorResponse is the body MLflow sends with non-2xx responses
type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

func (e Err) Error() string {
	switch e {
	case ErrTransport:
		return "transport error"
	case ErrServer:
		return "server error"
	case ErrNotFound:
		return "not found"
	case ErrConflict:
		return "conflict"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrDecode:
		return "decode error"
	}
	return fmt.Sprintf("error code %d", int(e))
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		b.WriteString(": ")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches an Err kind, so errors.Is(err, ErrConflict) works on wrapped errors
func (e *Error) Is(target error) bool {
	kind, ok := target.(Err)
	return ok && kind == e.Kind
}

// KindOf returns the kind of a client error, or zero if err did not come
// from a Client operation.
func KindOf(err error) Err {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var kind Err
	if errors.As(err, &kind) {
		return kind
	}
	return 0
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func newError(kind Err, op string, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

func wrapError(kind Err, op string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

// kindFor maps an MLflow error code and HTTP status to an error kind.
// MLflow reports RESOURCE_ALREADY_EXISTS with status 400, so the code wins.
func kindFor(status int, code string) Err {
	switch code {
	case codeResourceAlreadyExists:
		return ErrConflict
	case codeResourceDoesNotExist:
		return ErrNotFound
	}
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status >= 500:
		return ErrServer
	default:
		return ErrInvalidArgument
	}
}

// isParamOverwrite reports whether the server rejected a parameter because
// the key was already logged with another value
func isParamOverwrite(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != codeInvalidParameterValue {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "changing param values is not allowed")
}
