package flow

import "context"

// NextAction is the privileged operation an OTP verification unlocks. It is a
// sealed sum type: exactly one variant per action, each carrying only the
// fields that action needs, captured when the user initiated the flow.
type NextAction interface {
	nextAction()
}

// SignupAction completes a new registration
type SignupAction struct {
	Email    string
	Password string
	Name     string
}

// ResetPasswordAction hands the verification token forward to the
// password-reset step without consuming it here
type ResetPasswordAction struct {
	Email string
}

// ChangePasswordAction replaces the password of the signed-in account
type ChangePasswordAction struct {
	NewPassword string
}

// ChangeEmailAction moves the account to a new address
type ChangeEmailAction struct {
	NewEmail string
}

// EmailVerifyAction marks the current address as verified
type EmailVerifyAction struct{}

func (SignupAction) nextAction()         {}
func (ResetPasswordAction) nextAction()  {}
func (ChangePasswordAction) nextAction() {}
func (ChangeEmailAction) nextAction()    {}
func (EmailVerifyAction) nextAction()    {}

// Outcome tells the hosting screen what to do after a successful dispatch
type Outcome int

const (
	// OutcomeAcknowledged means no action matched; show a generic "verified" note
	OutcomeAcknowledged Outcome = iota
	// OutcomeReplaceNavigation means navigate forward replacing history
	// (no back-navigation to the signup form)
	OutcomeReplaceNavigation
	// OutcomeCarryToken means navigate forward carrying the verification token
	OutcomeCarryToken
	// OutcomeShowSuccess means show success and return to the caller
	OutcomeShowSuccess
)

// ActionClient is the downstream mutation surface. Every call is at-most-once:
// the dispatcher never retries on failure.
type ActionClient interface {
	Register(ctx context.Context, email, password, name, token string) error
	BeginPasswordReset(ctx context.Context, email, token string) error
	ChangePassword(ctx context.Context, newPassword, token string) error
	ChangeEmail(ctx context.Context, newEmail, token string) error
	CompleteEmailVerification(ctx context.Context, token string) error
}

// Dispatch maps a NextAction to exactly one downstream call, parameterized
// with the fields captured at construction time plus the verification token.
// A nil action is the "nothing to do" case and succeeds with
// OutcomeAcknowledged. Errors are returned as-is; the caller decides how to
// surface them and the user re-verifies rather than resubmitting the token.
func Dispatch(ctx context.Context, client ActionClient, action NextAction, token string) (Outcome, error) {
	switch a := action.(type) {
	case SignupAction:
		if err := client.Register(ctx, a.Email, a.Password, a.Name, token); err != nil {
			return OutcomeAcknowledged, err
		}
		return OutcomeReplaceNavigation, nil
	case ResetPasswordAction:
		if err := client.BeginPasswordReset(ctx, a.Email, token); err != nil {
			return OutcomeAcknowledged, err
		}
		return OutcomeCarryToken, nil
	case ChangePasswordAction:
		if err := client.ChangePassword(ctx, a.NewPassword, token); err != nil {
			return OutcomeAcknowledged, err
		}
		return OutcomeShowSuccess, nil
	case ChangeEmailAction:
		if err := client.ChangeEmail(ctx, a.NewEmail, token); err != nil {
			return OutcomeAcknowledged, err
		}
		return OutcomeShowSuccess, nil
	case EmailVerifyAction:
		if err := client.CompleteEmailVerification(ctx, token); err != nil {
			return OutcomeAcknowledged, err
		}
		return OutcomeShowSuccess, nil
	default:
		return OutcomeAcknowledged, nil
	}
}
