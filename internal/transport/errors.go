package transport

import "fmt"

// ErrorKind classifies a provider failure. The retry policy keys off
// this instead of inspecting message strings.
type ErrorKind string

const (
	// Retryable kinds.
	KindThrottled ErrorKind = "throttled"
	KindTimeout   ErrorKind = "timeout"
	KindInternal  ErrorKind = "internal"

	// Terminal kinds.
	KindRejected         ErrorKind = "rejected" // hard-bounce class rejection
	KindInvalidRecipient ErrorKind = "invalid_recipient"
	KindNotVerified      ErrorKind = "not_verified" // sending identity/domain failure
)

// Error is a classified provider failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether another attempt could plausibly succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindThrottled, KindTimeout, KindInternal:
		return true
	}
	return false
}

// NewError builds a classified transport error wrapping cause.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}
