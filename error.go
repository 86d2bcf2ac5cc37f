package listgrab

import (
	"errors"
	"fmt"
)

// Application error codes.
//
// Each failure the pipeline can produce maps to exactly one code so callers
// can distinguish them with ErrorCode.
const (
	EINVALIDURL  = "invalid_url"
	ENETWORK     = "network_error"
	EHTTPSTATUS  = "http_status"
	ENOTFOUND    = "data_not_found"
	EMALFORMED   = "malformed_embedded_data"
	ECONTENTTYPE = "unexpected_content_type"
	EWRITE       = "write_error"
	EINVALID     = "invalid"
	EINTERNAL    = "internal"
)

// Error represents an application-specific error.
type Error struct {
	// Machine-readable error code.
	Code string

	// Human-readable error message.
	Message string

	// Status is the HTTP status code for EHTTPSTATUS errors.
	Status int

	// Excerpt is a bounded slice of the offending payload for EMALFORMED errors.
	Excerpt string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause so errors.Is sees through Error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapErrorf is like Errorf but records err as the underlying cause.
func WrapErrorf(err error, code string, format string, args ...any) *Error {
	e := Errorf(code, format, args...)
	e.Err = err
	return e
}

// StatusErrorf returns an EHTTPSTATUS error carrying the response status.
func StatusErrorf(status int, format string, args ...any) *Error {
	e := Errorf(EHTTPSTATUS, format, args...)
	e.Status = status
	return e
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error.".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// ErrorStatus returns the HTTP status carried by an EHTTPSTATUS error, or 0.
func ErrorStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// ErrorExcerpt returns the payload excerpt carried by an EMALFORMED error.
func ErrorExcerpt(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Excerpt
	}
	return ""
}
