package flow

import (
	"errors"
	"fmt"
)

// Local guard failures. None of these involve a network call and none of them
// consume a verification attempt.
var (
	ErrInvalidCode       = errors.New("enter the full 6-digit code")
	ErrVerifyInFlight    = errors.New("verification already in progress")
	ErrResendInFlight    = errors.New("resend already in progress")
	ErrCooldownActive    = errors.New("please wait before requesting another code")
	ErrAttemptsExhausted = errors.New("too many attempts, request a new code")
	ErrClosed            = errors.New("verification flow is closed")
	ErrDone              = errors.New("verification already completed")
)

// ErrMissingToken is a protocol violation: the gateway reported a verified
// code but issued no verification token. Fatal to this attempt, never
// retried automatically.
var ErrMissingToken = errors.New("verification succeeded but no token was issued")

// RejectedError reports a wrong code with attempts still remaining
type RejectedError struct {
	AttemptsLeft int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("invalid code, %d attempt(s) left", e.AttemptsLeft)
}

// DispatchError wraps a failure of the follow-up action after a successful
// verification. The verification itself succeeded; only the action failed.
// The token was consumed by the attempt, so recovery requires a new code.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("verified, but the requested action failed: %v", e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
