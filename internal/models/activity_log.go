package models

import "time"

// Activity log action types
const (
	ActionOTPRequested   = "otp_requested"
	ActionOTPVerified    = "otp_verified"
	ActionOTPFailed      = "otp_failed"
	ActionSignup         = "signup"
	ActionLogin          = "login"
	ActionPasswordChange = "password_change"
	ActionPasswordReset  = "password_reset"
	ActionEmailChange    = "email_change"
	ActionEmailVerified  = "email_verified"
	ActionMFAResolved    = "mfa_resolved"
	ActionMFAFailed      = "mfa_failed"
)

// ActivityLog records a user-facing action for the admin audit trail
type ActivityLog struct {
	ID        int       `json:"id" db:"id"`
	AccountID int       `json:"account_id" db:"account_id"`
	Email     string    `json:"email" db:"email"`
	Action    string    `json:"action" db:"action"`
	Details   string    `json:"details" db:"details"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
