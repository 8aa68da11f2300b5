package models

import "time"

// Account represents a registered end user of the service
type Account struct {
	ID            int        `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	Name          string     `json:"name" db:"name"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	EmailVerified bool       `json:"email_verified" db:"email_verified"`
	Role          string     `json:"role" db:"role"`
	TOTPSecret    string     `json:"-" db:"totp_secret"`
	TOTPEnabled   bool       `json:"totp_enabled" db:"totp_enabled"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Account roles
const (
	RoleUser  = "user"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// AuthResponse is returned after a successful signup or sign-in
type AuthResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// LoginRequest is the payload for the password step of staff sign-in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFARequiredResponse is returned when the password step succeeds but a
// second factor is still required. MFAToken is the explicit challenge
// session handle the client presents to the resolve step.
type MFARequiredResponse struct {
	MFARequired bool   `json:"mfa_required"`
	MFAToken    string `json:"mfa_token"`
	Message     string `json:"message"`
}

// ResolveMFARequest is the payload for the second-factor step
type ResolveMFARequest struct {
	MFAToken string `json:"mfa_token"`
	Code     string `json:"code"`
}

// MFASetupResponse carries the provisioning material for an authenticator app
type MFASetupResponse struct {
	Secret      string `json:"secret"`
	QRCode      string `json:"qr_code"`
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"`
}

// MFACodeRequest is the payload for enabling or disabling the second factor
type MFACodeRequest struct {
	Code string `json:"code"`
}
