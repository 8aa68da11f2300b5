package flow

import (
	"context"

	"verify-backend/internal/models"
)

// VerifyResult is what the gateway reports after checking a submitted code.
// VerificationToken is only meaningful when Verified is true; a verified
// result without a token is a protocol violation.
type VerifyResult struct {
	Verified          bool
	AttemptsLeft      *int
	VerificationToken string
}

// Gateway is the remote OTP challenge surface the controller orchestrates.
// Implementations are expected to enforce cooldowns and attempt limits on
// their side as well; the controller's local guards are an optimistic mirror,
// not the source of truth.
type Gateway interface {
	RequestCode(ctx context.Context, email string, purpose models.Purpose, metadata map[string]string) (cooldownSeconds int, err error)
	VerifyCode(ctx context.Context, email string, purpose models.Purpose, code string) (VerifyResult, error)
}
