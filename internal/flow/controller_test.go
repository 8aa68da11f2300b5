package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"verify-backend/internal/models"
)

type stubGateway struct {
	mu sync.Mutex

	requestCalls int
	requestErr   error
	cooldown     int

	verifyCalls int
	verifyCodes []string
	verifyErr   error
	result      VerifyResult

	// when set, VerifyCode blocks until released
	block   chan struct{}
	started chan struct{}
}

func (g *stubGateway) RequestCode(ctx context.Context, email string, purpose models.Purpose, metadata map[string]string) (int, error) {
	g.mu.Lock()
	g.requestCalls++
	g.mu.Unlock()
	if g.requestErr != nil {
		return 0, g.requestErr
	}
	return g.cooldown, nil
}

func (g *stubGateway) VerifyCode(ctx context.Context, email string, purpose models.Purpose, code string) (VerifyResult, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.verifyCodes = append(g.verifyCodes, code)
	g.mu.Unlock()
	if g.started != nil {
		close(g.started)
		g.started = nil
	}
	if g.block != nil {
		<-g.block
	}
	if g.verifyErr != nil {
		return VerifyResult{}, g.verifyErr
	}
	return g.result, nil
}

func (g *stubGateway) verifyCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}

type stubActions struct {
	mu    sync.Mutex
	calls []string
	args  map[string][]string
	err   error
}

func newStubActions() *stubActions {
	return &stubActions{args: make(map[string][]string)}
}

func (a *stubActions) record(name string, args ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, name)
	a.args[name] = args
	return a.err
}

func (a *stubActions) Register(ctx context.Context, email, password, name, token string) error {
	return a.record("register", email, password, name, token)
}

func (a *stubActions) BeginPasswordReset(ctx context.Context, email, token string) error {
	return a.record("reset_password", email, token)
}

func (a *stubActions) ChangePassword(ctx context.Context, newPassword, token string) error {
	return a.record("change_password", newPassword, token)
}

func (a *stubActions) ChangeEmail(ctx context.Context, newEmail, token string) error {
	return a.record("change_email", newEmail, token)
}

func (a *stubActions) CompleteEmailVerification(ctx context.Context, token string) error {
	return a.record("email_verify", token)
}

func intPtr(n int) *int { return &n }

func newTestController(g *stubGateway, a *stubActions, next NextAction, cooldown int) (*Controller, *fakeClock) {
	clock := newFakeClock()
	c := NewController(clock, g, a, "a@b.com", models.PurposeSignupVerify, next, cooldown)
	return c, clock
}

func TestSubmitRejectsShortCodeLocally(t *testing.T) {
	g := &stubGateway{}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	_, err := c.Submit(context.Background(), "123")
	if !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
	if g.verifyCount() != 0 {
		t.Fatalf("verify calls = %d, want 0 (no network on local rejection)", g.verifyCount())
	}
}

func TestSubmitNormalizesCode(t *testing.T) {
	g := &stubGateway{result: VerifyResult{Verified: true, VerificationToken: "tok"}}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	if _, err := c.Submit(context.Background(), "12-34-56"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := g.verifyCodes[0]; got != "123456" {
		t.Fatalf("verify called with %q, want %q", got, "123456")
	}
}

func TestSingleInFlightVerify(t *testing.T) {
	g := &stubGateway{
		result:  VerifyResult{Verified: true, VerificationToken: "tok"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	started := g.started
	c, _ := newTestController(g, newStubActions(), nil, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Submit(context.Background(), "123456")
	}()
	<-started

	_, err := c.Submit(context.Background(), "654321")
	if !errors.Is(err, ErrVerifyInFlight) {
		t.Fatalf("second submit err = %v, want ErrVerifyInFlight", err)
	}

	close(g.block)
	<-done

	if g.verifyCount() != 1 {
		t.Fatalf("verify calls = %d, want exactly 1", g.verifyCount())
	}
}

func TestRejectedCodeSurfacesAttemptsLeft(t *testing.T) {
	g := &stubGateway{result: VerifyResult{Verified: false, AttemptsLeft: intPtr(2)}}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	_, err := c.Submit(context.Background(), "123456")
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *RejectedError", err)
	}
	if rejected.AttemptsLeft != 2 {
		t.Fatalf("attempts left = %d, want 2", rejected.AttemptsLeft)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", c.State())
	}

	// A further submit with a new code is allowed.
	g.result = VerifyResult{Verified: true, VerificationToken: "tok"}
	if _, err := c.Submit(context.Background(), "999999"); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if g.verifyCount() != 2 {
		t.Fatalf("verify calls = %d, want 2", g.verifyCount())
	}
}

func TestExhaustedAttemptsLockout(t *testing.T) {
	g := &stubGateway{result: VerifyResult{Verified: false, AttemptsLeft: intPtr(0)}}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	_, err := c.Submit(context.Background(), "123456")
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("err = %v, want ErrAttemptsExhausted", err)
	}

	// Subsequent submits are rejected locally without a network call.
	_, err = c.Submit(context.Background(), "654321")
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("locked submit err = %v, want ErrAttemptsExhausted", err)
	}
	if g.verifyCount() != 1 {
		t.Fatalf("verify calls = %d, want 1 (lockout is local)", g.verifyCount())
	}

	// A successful resend clears the lockout.
	g.cooldown = 30
	if err := c.Resend(context.Background(), nil); err != nil {
		t.Fatalf("resend: %v", err)
	}
	g.result = VerifyResult{Verified: true, VerificationToken: "tok"}
	if _, err := c.Submit(context.Background(), "111111"); err != nil {
		t.Fatalf("submit after resend: %v", err)
	}
}

func TestMissingTokenIsProtocolError(t *testing.T) {
	g := &stubGateway{result: VerifyResult{Verified: true}}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	_, err := c.Submit(context.Background(), "123456")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", c.State())
	}
}

func TestGatewayErrorReturnsToIdle(t *testing.T) {
	g := &stubGateway{verifyErr: errors.New("upstream timeout")}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	_, err := c.Submit(context.Background(), "123456")
	if err == nil || err.Error() != "upstream timeout" {
		t.Fatalf("err = %v, want raw gateway error", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want Idle", c.State())
	}
}

func TestDispatchChangePassword(t *testing.T) {
	g := &stubGateway{result: VerifyResult{Verified: true, VerificationToken: "tok1"}}
	a := newStubActions()
	c, _ := newTestController(g, a, ChangePasswordAction{NewPassword: "X"}, 0)

	outcome, err := c.Submit(context.Background(), "123456")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome != OutcomeShowSuccess {
		t.Fatalf("outcome = %v, want OutcomeShowSuccess", outcome)
	}
	if len(a.calls) != 1 || a.calls[0] != "change_password" {
		t.Fatalf("calls = %v, want exactly [change_password]", a.calls)
	}
	if got := a.args["change_password"]; got[0] != "X" || got[1] != "tok1" {
		t.Fatalf("change_password args = %v, want [X tok1]", got)
	}
	if c.State() != StateDone {
		t.Fatalf("state = %v, want Done", c.State())
	}
}

func TestDispatchFailureReturnsToIdle(t *testing.T) {
	g := &stubGateway{result: VerifyResult{Verified: true, VerificationToken: "tok"}}
	a := newStubActions()
	a.err = errors.New("email already taken")
	c, _ := newTestController(g, a, SignupAction{Email: "a@b.com", Password: "pw", Name: "A"}, 0)

	_, err := c.Submit(context.Background(), "123456")
	var de *DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DispatchError", err)
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want Idle (re-verify with a new code)", c.State())
	}
}

func TestResendBlockedByCooldown(t *testing.T) {
	g := &stubGateway{cooldown: 60}
	c, _ := newTestController(g, newStubActions(), nil, 60)

	err := c.Resend(context.Background(), nil)
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}
	if g.requestCalls != 0 {
		t.Fatalf("request calls = %d, want 0 (rejected locally)", g.requestCalls)
	}
}

func TestResendEnabledAfterCooldownExpires(t *testing.T) {
	g := &stubGateway{cooldown: 60}
	c, clock := newTestController(g, newStubActions(), nil, 3)

	for i := 0; i < 3; i++ {
		clock.tick()
	}
	waitFor(t, func() bool { return c.CooldownRemaining() == 0 })

	if err := c.Resend(context.Background(), nil); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if g.requestCalls != 1 {
		t.Fatalf("request calls = %d, want 1", g.requestCalls)
	}
	if got := c.CooldownRemaining(); got != 60 {
		t.Fatalf("cooldown after resend = %d, want 60", got)
	}
}

func TestResendErrorLeavesCooldownUnchanged(t *testing.T) {
	g := &stubGateway{requestErr: errors.New("rate limited upstream")}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	err := c.Resend(context.Background(), nil)
	if err == nil || err.Error() != "rate limited upstream" {
		t.Fatalf("err = %v, want raw gateway error", err)
	}
	if got := c.CooldownRemaining(); got != 0 {
		t.Fatalf("cooldown = %d, want 0 (unchanged)", got)
	}
}

func TestCloseDiscardsInFlightResponse(t *testing.T) {
	g := &stubGateway{
		result:  VerifyResult{Verified: true, VerificationToken: "tok"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	started := g.started
	a := newStubActions()
	c, _ := newTestController(g, a, EmailVerifyAction{}, 0)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), "123456")
		errCh <- err
	}()
	<-started

	c.Close()
	close(g.block)

	if err := <-errCh; !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	if len(a.calls) != 0 {
		t.Fatalf("dispatch ran after teardown: %v", a.calls)
	}
}

func TestSubmitAfterDone(t *testing.T) {
	g := &stubGateway{result: VerifyResult{Verified: true, VerificationToken: "tok"}}
	c, _ := newTestController(g, newStubActions(), nil, 0)

	if _, err := c.Submit(context.Background(), "123456"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.Submit(context.Background(), "123456"); !errors.Is(err, ErrDone) {
		t.Fatalf("err = %v, want ErrDone", err)
	}
}
