package models

import "time"

// Purpose identifies which follow-up action an OTP challenge unlocks.
// A verification token minted for one purpose is never honored by another.
type Purpose string

const (
	PurposeSignupVerify   Purpose = "SIGNUP_VERIFY"
	PurposeResetPassword  Purpose = "RESET_PASSWORD"
	PurposeChangePassword Purpose = "CHANGE_PASSWORD"
	PurposeChangeEmail    Purpose = "CHANGE_EMAIL"
	PurposeEmailVerify    Purpose = "EMAIL_VERIFY"
)

// ValidPurpose reports whether p is one of the known challenge purposes
func ValidPurpose(p Purpose) bool {
	switch p {
	case PurposeSignupVerify, PurposeResetPassword, PurposeChangePassword,
		PurposeChangeEmail, PurposeEmailVerify:
		return true
	}
	return false
}

// OTPChallenge represents a pending one-time code for an (email, purpose) pair
type OTPChallenge struct {
	ID        int       `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Purpose   Purpose   `json:"purpose" db:"purpose"`
	OTPCode   string    `json:"-" db:"otp_code"` // Never expose the code in JSON responses
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Verified  bool      `json:"verified" db:"verified"`
	Attempts  int       `json:"attempts" db:"attempts"`
}

// RequestOTPRequest is the payload for requesting a new code
type RequestOTPRequest struct {
	Email    string            `json:"email"`
	Purpose  Purpose           `json:"purpose"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RequestOTPResponse reports the cooldown the client must honor before resending
type RequestOTPResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	CooldownSeconds int    `json:"cooldown_seconds"`
}

// VerifyOTPRequest is the payload for submitting a code
type VerifyOTPRequest struct {
	Email   string  `json:"email"`
	Purpose Purpose `json:"purpose"`
	Code    string  `json:"code"`
}

// VerifyOTPResponse carries the verification outcome. VerificationToken is
// present only when Verified is true.
type VerifyOTPResponse struct {
	Verified          bool   `json:"verified"`
	AttemptsLeft      *int   `json:"attempts_left,omitempty"`
	VerificationToken string `json:"verification_token,omitempty"`
	Message           string `json:"message,omitempty"`
}
