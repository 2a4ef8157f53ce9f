package usecase

import "fmt"

type ErrorCode string

const (
	// ErrorConfig reports a missing external-resource identifier.
	ErrorConfig ErrorCode = "CONFIG_ERROR"
	// ErrorBedrock covers every failure on the retrieval/generation path.
	// The wire contract collapses these into one category; Reason keeps the
	// specific cause for the logs.
	ErrorBedrock ErrorCode = "BEDROCK_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
