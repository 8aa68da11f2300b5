package models

// Payloads for the mutations gated behind a verification token. Every
// request carries the single-use token issued by the verify step.

type RegisterRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	Password          string `json:"password"`
	VerificationToken string `json:"verification_token"`
}

type ResetPasswordRequest struct {
	NewPassword       string `json:"new_password"`
	VerificationToken string `json:"verification_token"`
}

type ChangePasswordRequest struct {
	NewPassword       string `json:"new_password"`
	VerificationToken string `json:"verification_token"`
}

type ChangeEmailRequest struct {
	NewEmail          string `json:"new_email"`
	VerificationToken string `json:"verification_token"`
}

// BeginResetRequest starts the reset form step after code verification
type BeginResetRequest struct {
	Email             string `json:"email"`
	VerificationToken string `json:"verification_token"`
}

// BeginResetResponse carries the re-minted token the reset form presents
type BeginResetResponse struct {
	Success           bool   `json:"success"`
	VerificationToken string `json:"verification_token"`
}

type CompleteVerificationRequest struct {
	VerificationToken string `json:"verification_token"`
}
