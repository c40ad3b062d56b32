package lnurl

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLnurl is returned when an identifier is not valid
	// bech32, carries the wrong human-readable part, or decodes to
	// something that is not a usable service URL.
	ErrInvalidLnurl = errors.New("invalid lnurl")

	// ErrInvalidURL is returned when a service URL fails validation.
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidMetadata is returned when pay metadata fails its shape
	// requirements.
	ErrInvalidMetadata = errors.New("invalid pay metadata")

	// ErrInvalidAddress is returned when a lightning address cannot be
	// parsed.
	ErrInvalidAddress = errors.New("invalid lightning address")
)

// ResponseError is the failure type of everything past input validation:
// transport failures, non-2xx statuses, JSON decode failures, dispatch and
// shape mismatches, amount violations and server-reported errors. The
// originating cause, if any, is kept so callers see both the protocol-level
// and the low-level context.
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

func respErrf(err error, format string, args ...interface{}) *ResponseError {
	return &ResponseError{
		Reason: fmt.Sprintf(format, args...),
		Err:    err,
	}
}
