// Package errors provides the controller's error-code wrapping type, used
// to distinguish the error kinds spec.md's error handling design names
// (transport-IO, codec, protocol violation, duplicate name, container
// runtime, proxy loss, channel closure) without inventing a type per kind.
package errors

import "fmt"

// Code tags an AppError with one of the controller's named error kinds.
type Code string

const (
	CodeTransport         Code = "transport"
	CodeCodec             Code = "codec"
	CodeProtocolViolation Code = "protocol_violation"
	CodeDuplicateName     Code = "duplicate_name"
	CodeContainerRuntime  Code = "container_runtime"
	CodeProxyLost         Code = "proxy_lost"
	CodeChannelClosed     Code = "channel_closed"
)

// AppError is the controller's error type: a code plus a human message and
// an optional wrapped cause.
type AppError struct {
	Code    Code
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with no wrapped cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap creates a new AppError wrapping another error.
func Wrap(code Code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
