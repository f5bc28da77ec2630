package voice

import (
	"errors"
	"fmt"
)

// FailureKind classifies session failures into the buckets the caller can act
// on. Each kind carries a distinct user-facing message; raw errors stay in
// logs only.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailurePermissionDenied
	FailureNoDevice
	FailureUnsupported
	FailureInsecureContext
	FailureAuth
	FailureRateLimited
	FailureServiceUnavailable
	FailureNetwork
)

// SessionError pairs a classified failure with the underlying cause.
type SessionError struct {
	Kind FailureKind
	Err  error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("voice: %s: %v", e.UserMessage(), e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// UserMessage is the text shown to the caller for this failure.
func (e *SessionError) UserMessage() string {
	switch e.Kind {
	case FailurePermissionDenied:
		return "Microphone access was denied. Please allow access and try again."
	case FailureNoDevice:
		return "No microphone found. Please connect a microphone and try again."
	case FailureUnsupported:
		return "This device doesn't support microphone access."
	case FailureInsecureContext:
		return "Voice calls require a secure connection (HTTPS)."
	case FailureAuth:
		return "Invalid OpenAI API key. Please check your API key."
	case FailureRateLimited:
		return "OpenAI API rate limit exceeded. Please try again later."
	case FailureServiceUnavailable:
		return "OpenAI service temporarily unavailable. Please try again."
	case FailureNetwork:
		return "Network connection failed"
	default:
		return "Failed to establish connection"
	}
}

func newSessionError(kind FailureKind, err error) *SessionError {
	return &SessionError{Kind: kind, Err: err}
}

// KindOf extracts the failure classification, or FailureUnknown for plain
// errors.
func KindOf(err error) FailureKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return FailureUnknown
}
