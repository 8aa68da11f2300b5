package flow

import (
	"context"
	"testing"
)

func TestDispatchExclusivity(t *testing.T) {
	tests := []struct {
		name    string
		action  NextAction
		call    string
		outcome Outcome
	}{
		{"signup", SignupAction{Email: "a@b.com", Password: "pw", Name: "A"}, "register", OutcomeReplaceNavigation},
		{"reset password", ResetPasswordAction{Email: "a@b.com"}, "reset_password", OutcomeCarryToken},
		{"change password", ChangePasswordAction{NewPassword: "X"}, "change_password", OutcomeShowSuccess},
		{"change email", ChangeEmailAction{NewEmail: "new@b.com"}, "change_email", OutcomeShowSuccess},
		{"email verify", EmailVerifyAction{}, "email_verify", OutcomeShowSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newStubActions()
			outcome, err := Dispatch(context.Background(), a, tt.action, "tok")
			if err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if outcome != tt.outcome {
				t.Fatalf("outcome = %v, want %v", outcome, tt.outcome)
			}
			if len(a.calls) != 1 || a.calls[0] != tt.call {
				t.Fatalf("calls = %v, want exactly [%s]", a.calls, tt.call)
			}
		})
	}
}

func TestDispatchNilActionAcknowledges(t *testing.T) {
	a := newStubActions()
	outcome, err := Dispatch(context.Background(), a, nil, "tok")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if outcome != OutcomeAcknowledged {
		t.Fatalf("outcome = %v, want OutcomeAcknowledged", outcome)
	}
	if len(a.calls) != 0 {
		t.Fatalf("no downstream call expected, got %v", a.calls)
	}
}

func TestDispatchPassesToken(t *testing.T) {
	a := newStubActions()
	if _, err := Dispatch(context.Background(), a, SignupAction{Email: "a@b.com", Password: "pw", Name: "A"}, "tok9"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	args := a.args["register"]
	if args[3] != "tok9" {
		t.Fatalf("register token = %q, want %q", args[3], "tok9")
	}
}
