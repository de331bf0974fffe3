package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies where in the flow a failure originated.
type ErrorKind string

const (
	// ErrValidation marks missing or invalid caller input; it never reaches
	// the network.
	ErrValidation ErrorKind = "validation"
	// ErrAuth marks malformed key material.
	ErrAuth ErrorKind = "auth"
	// ErrTransport marks a network failure or a non-200 HTTP status.
	ErrTransport ErrorKind = "transport"
	// ErrAPI marks a well-formed aggregator response with a non-zero
	// application code.
	ErrAPI ErrorKind = "api"
	// ErrChain marks an RPC failure, a reverted call, or a receipt timeout.
	ErrChain ErrorKind = "chain"
	// ErrInsufficientFunds marks a balance below the dust threshold or a
	// zero amount after the ratio computation.
	ErrInsufficientFunds ErrorKind = "insufficient_funds"
)

// SwapError is the tagged failure every component returns instead of letting
// raw errors cross its boundary.
type SwapError struct {
	Kind ErrorKind
	Code string
	Msg  string
	Err  error
}

func (e *SwapError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("%s error (code %s): %s", e.Kind, e.Code, e.Msg)
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	}
}

func (e *SwapError) Unwrap() error {
	return e.Err
}

// NewError builds a SwapError with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *SwapError {
	return &SwapError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds a SwapError around an underlying cause.
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *SwapError {
	return &SwapError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// APIError builds a SwapError for a non-zero aggregator response code.
func APIError(code, msg string) *SwapError {
	return &SwapError{Kind: ErrAPI, Code: code, Msg: msg}
}

// KindOf returns the ErrorKind of err, or an empty kind when err is not a
// SwapError.
func KindOf(err error) ErrorKind {
	var se *SwapError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
