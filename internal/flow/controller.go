package flow

import (
	"context"

	"sync"

	"verify-backend/internal/models"
	"verify-backend/internal/timeutil"
)

// State is the controller's verification phase. The resend side runs
// independently and is gated only by the cooldown.
type State int

const (
	StateIdle State = iota
	StateVerifying
	StateDispatching
	StateDone
)

// Controller owns the ephemeral state of one verification screen: the entered
// code, the resend cooldown, and the in-flight flags. It orchestrates the
// gateway and the next-action dispatch, converting every failure into an
// error the UI can show as text.
//
// Only one VerifyCode call is ever in flight; a second Submit while one is
// pending is rejected locally without touching the network. Same for Resend.
// The cooldown ticker and an in-flight request are independent.
type Controller struct {
	gateway Gateway
	actions ActionClient

	email   string
	purpose models.Purpose
	next    NextAction

	mu        sync.Mutex
	state     State
	resending bool
	locked    bool // attempts exhausted; cleared by a successful resend
	closed    bool
	cooldown  *Cooldown
}

// NewController starts a fresh flow at Idle. initialCooldownSeconds is
// whatever the caller was told when the first code was requested; zero means
// resend is immediately available.
func NewController(clock timeutil.Clock, gateway Gateway, actions ActionClient, email string, purpose models.Purpose, next NextAction, initialCooldownSeconds int) *Controller {
	return &Controller{
		gateway:  gateway,
		actions:  actions,
		email:    email,
		purpose:  purpose,
		next:     next,
		cooldown: NewCooldown(clock, initialCooldownSeconds),
	}
}

// State returns the current verification phase
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CooldownRemaining returns the seconds left before Resend is allowed
func (c *Controller) CooldownRemaining() int {
	return c.cooldown.Remaining()
}

// Close tears the flow down. The cooldown ticker is stopped and any response
// that arrives afterwards is discarded instead of mutating stale state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cooldown.Stop()
}

// Submit normalizes and verifies an entered code, then dispatches the flow's
// next action with the issued token. On success the flow is Done and the
// returned Outcome tells the screen where to go.
func (c *Controller) Submit(ctx context.Context, rawCode string) (Outcome, error) {
	code := NormalizeCode(rawCode)

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return OutcomeAcknowledged, ErrClosed
	case c.state == StateDone:
		c.mu.Unlock()
		return OutcomeAcknowledged, ErrDone
	case c.state != StateIdle:
		c.mu.Unlock()
		return OutcomeAcknowledged, ErrVerifyInFlight
	case c.locked:
		c.mu.Unlock()
		return OutcomeAcknowledged, ErrAttemptsExhausted
	case len(code) != CodeLength:
		c.mu.Unlock()
		return OutcomeAcknowledged, ErrInvalidCode
	}
	c.state = StateVerifying
	c.mu.Unlock()

	result, err := c.gateway.VerifyCode(ctx, c.email, c.purpose, code)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return OutcomeAcknowledged, ErrClosed
	}
	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		return OutcomeAcknowledged, err
	}
	if !result.Verified {
		c.state = StateIdle
		if result.AttemptsLeft != nil && *result.AttemptsLeft <= 0 {
			c.locked = true
			c.mu.Unlock()
			return OutcomeAcknowledged, ErrAttemptsExhausted
		}
		attempts := 0
		if result.AttemptsLeft != nil {
			attempts = *result.AttemptsLeft
		}
		c.mu.Unlock()
		return OutcomeAcknowledged, &RejectedError{AttemptsLeft: attempts}
	}
	if result.VerificationToken == "" {
		c.state = StateIdle
		c.mu.Unlock()
		return OutcomeAcknowledged, ErrMissingToken
	}
	c.state = StateDispatching
	c.mu.Unlock()

	outcome, err := Dispatch(ctx, c.actions, c.next, result.VerificationToken)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return OutcomeAcknowledged, ErrClosed
	}
	if err != nil {
		// The token was presented once and is gone; the user re-verifies
		// with a fresh code rather than resubmitting it.
		c.state = StateIdle
		return OutcomeAcknowledged, &DispatchError{Err: err}
	}
	c.state = StateDone
	c.cooldown.Stop()
	return outcome, nil
}

// Resend requests a fresh code. Rejected locally while the cooldown is still
// running or another resend is in flight; on success the cooldown restarts at
// whatever the gateway returned and an exhausted-attempts lockout is cleared.
func (c *Controller) Resend(ctx context.Context, metadata map[string]string) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.state == StateDone:
		c.mu.Unlock()
		return ErrDone
	case c.resending:
		c.mu.Unlock()
		return ErrResendInFlight
	case c.cooldown.Remaining() > 0:
		c.mu.Unlock()
		return ErrCooldownActive
	}
	c.resending = true
	c.mu.Unlock()

	seconds, err := c.gateway.RequestCode(ctx, c.email, c.purpose, metadata)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resending = false
	if c.closed {
		return ErrClosed
	}
	if err != nil {
		// Cooldown unchanged; the gateway's message is surfaced verbatim.
		return err
	}
	c.cooldown.Reset(seconds)
	c.locked = false
	return nil
}
