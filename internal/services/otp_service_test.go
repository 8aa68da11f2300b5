package services

import (
	"errors"
	"testing"

	"verify-backend/internal/models"
)

// Signup and change-email codes go to an address with no account behind it
// yet; demanding an existing account there would make those flows impossible
// to start. Every other purpose proves control of a registered address.
func TestCodeGoesToNewAddress(t *testing.T) {
	tests := []struct {
		purpose models.Purpose
		want    bool
	}{
		{models.PurposeSignupVerify, true},
		{models.PurposeChangeEmail, true},
		{models.PurposeResetPassword, false},
		{models.PurposeChangePassword, false},
		{models.PurposeEmailVerify, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.purpose), func(t *testing.T) {
			if got := CodeGoesToNewAddress(tt.purpose); got != tt.want {
				t.Errorf("CodeGoesToNewAddress(%s) = %v, want %v", tt.purpose, got, tt.want)
			}
		})
	}
}

func TestRateLimitErrorClassification(t *testing.T) {
	var rateErr *RateLimitError

	err := error(&RateLimitError{Message: "please wait 60 second(s) before requesting another code"})
	if !errors.As(err, &rateErr) {
		t.Fatal("RateLimitError not recognized by errors.As")
	}
	if rateErr.Message == "" {
		t.Error("classified error lost its message")
	}

	// Validation failures must never classify as rate limits
	if errors.As(errors.New("email is required"), &rateErr) {
		t.Error("plain error classified as RateLimitError")
	}
}
