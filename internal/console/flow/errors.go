package flow

import (
	"errors"

	"github.com/forgeplex/psp-console/pkg/consolesdk"
)

// Errors returned for misuse of the coordinator API. Flow-level failures
// (rejected codes, dead sessions, network trouble) never surface as returned
// errors; they land in the snapshot's Err field instead.
var (
	ErrInvalidState = errors.New("flow: operation not valid in current state")
	ErrBusy         = errors.New("flow: a request is already in flight")
)

// FlowError is the UI-facing error state. It renders on the step where the
// failure happened and carries the class the UI needs to decide between an
// inline retry, a verbatim credential message, and a blocking restart.
type FlowError struct {
	Class   consolesdk.ErrorClass
	Code    string
	Message string
}

// flowErrorFrom converts any SDK error into the UI error state.
func flowErrorFrom(err error) *FlowError {
	if err == nil {
		return nil
	}

	var apiErr *consolesdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		fe := &FlowError{
			Class:   apiErr.Class(),
			Code:    apiErr.Code,
			Message: apiErr.Message,
		}
		if fe.Class == consolesdk.ClassSession {
			fe.Message = "your login session has expired, please sign in again"
		}
		return fe
	}

	return &FlowError{
		Class:   consolesdk.ClassTransport,
		Message: "request failed, check your connection and try again",
	}
}

// usedCodeError is the distinct error shown when the backend reports a
// recovery code as already consumed, or when the client itself remembers
// consuming it.
func usedCodeError() *FlowError {
	return &FlowError{
		Class:   consolesdk.ClassChallenge,
		Code:    consolesdk.CodeUsedMFACode,
		Message: "this recovery code has already been used",
	}
}
