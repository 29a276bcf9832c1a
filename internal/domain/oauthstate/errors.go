package oauthstate

import "errors"

// InvalidStateErrorCode is the stable error code carried by every state
// verification failure.
const InvalidStateErrorCode = "slack_oauth_invalid_state"

// InvalidStateError is returned by VerifyStateParam for every failure mode:
// bad signature, expired token, or a token that was never issued. The last
// two share one message on purpose so a caller probing the endpoint cannot
// distinguish them.
type InvalidStateError struct {
	Code    string
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

// NewInvalidStateError creates an InvalidStateError with the stable code.
func NewInvalidStateError(message string) *InvalidStateError {
	return &InvalidStateError{Code: InvalidStateErrorCode, Message: message}
}

// IsInvalidState reports whether err is a state verification failure.
func IsInvalidState(err error) bool {
	var ise *InvalidStateError
	return errors.As(err, &ise)
}
