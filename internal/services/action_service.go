package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"verify-backend/internal/auth"
	"verify-backend/internal/cache"
	"verify-backend/internal/metrics"
	"verify-backend/internal/models"
	"verify-backend/internal/repositories"
)

// ActionService performs the account mutations that follow a successful
// code verification. Every operation takes the opaque verification token
// issued by OTPService.VerifyCode and consumes it atomically, so a token
// authorizes exactly one mutation and the same token can never be
// replayed against a second endpoint.
type ActionService struct {
	AccountRepo     *repositories.AccountRepository
	JWTManager      *auth.JWTManager
	ActivityLogRepo *repositories.ActivityLogRepository
}

func NewActionService(accountRepo *repositories.AccountRepository, jwtManager *auth.JWTManager) *ActionService {
	return &ActionService{
		AccountRepo: accountRepo,
		JWTManager:  jwtManager,
	}
}

// SetActivityLogRepo wires the optional audit trail
func (s *ActionService) SetActivityLogRepo(repo *repositories.ActivityLogRepository) {
	s.ActivityLogRepo = repo
}

func (s *ActionService) logActivity(accountID int, email, action, details, ipAddress, userAgent string) {
	if s.ActivityLogRepo == nil {
		return
	}
	go func() {
		entry := &models.ActivityLog{
			AccountID: accountID,
			Email:     email,
			Action:    action,
			Details:   details,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		}
		if err := s.ActivityLogRepo.Create(context.Background(), entry); err != nil {
			log.Printf("[ActionService] Failed to log activity %s for %s: %v", action, email, err)
		}
	}()
}

// consumeToken redeems the verification token and checks it was minted for
// the expected purpose and, when known, the expected email. The Redis GETDEL
// inside ConsumeVerificationToken makes redemption single-use even under
// concurrent presentation.
func (s *ActionService) consumeToken(ctx context.Context, token string, wantPurpose models.Purpose, wantEmail string) (string, error) {
	if token == "" {
		return "", errors.New("verification token is required")
	}

	email, purpose, err := cache.ConsumeVerificationToken(ctx, token)
	if err != nil {
		metrics.VerificationTokensConsumed.WithLabelValues("invalid").Inc()
		return "", err
	}
	if purpose != wantPurpose {
		// Token is already gone at this point. That is intentional: a
		// token presented to the wrong endpoint is burned, not recycled.
		log.Printf("[ActionService] Token purpose mismatch: got %s, want %s", purpose, wantPurpose)
		metrics.VerificationTokensConsumed.WithLabelValues("mismatch").Inc()
		return "", errors.New("verification token was not issued for this action")
	}
	if wantEmail != "" && !strings.EqualFold(email, wantEmail) {
		log.Printf("[ActionService] Token email mismatch for purpose %s", wantPurpose)
		metrics.VerificationTokensConsumed.WithLabelValues("mismatch").Inc()
		return "", errors.New("verification token was not issued for this email")
	}
	metrics.VerificationTokensConsumed.WithLabelValues("redeemed").Inc()
	return email, nil
}

// Register creates an account after signup verification. The token must
// have been issued for SIGNUP_VERIFY against the same email.
func (s *ActionService) Register(ctx context.Context, req *models.RegisterRequest, ipAddress, userAgent string) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return nil, errors.New("name, email, and password are required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	email, err := s.consumeToken(ctx, req.VerificationToken, models.PurposeSignupVerify, req.Email)
	if err != nil {
		return nil, err
	}

	existing, _ := s.AccountRepo.GetByEmail(ctx, email)
	if existing != nil {
		return nil, errors.New("an account with this email already exists")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		Email:         email,
		Name:          req.Name,
		PasswordHash:  hash,
		EmailVerified: true, // the code was delivered to this address
		Role:          models.RoleUser,
	}
	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	token, err := s.JWTManager.GenerateToken(account)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	s.logActivity(account.ID, email, models.ActionSignup, "account created after signup verification", ipAddress, userAgent)

	return &models.AuthResponse{
		Success: true,
		Token:   token,
		Account: account,
	}, nil
}

// BeginPasswordReset acknowledges a RESET_PASSWORD verification and hands
// the client a fresh single-use token for the reset form. The verification
// token from the code step is consumed here; the reset form presents the
// carried token to CompletePasswordReset.
func (s *ActionService) BeginPasswordReset(ctx context.Context, email, verificationToken string) (string, error) {
	if email == "" {
		return "", errors.New("email is required")
	}

	_, err := s.consumeToken(ctx, verificationToken, models.PurposeResetPassword, email)
	if err != nil {
		return "", err
	}

	// Re-mint under the same purpose so the reset form holds its own
	// single-use credential rather than a spent one.
	carried, err := cache.ReissueVerificationToken(ctx, email, models.PurposeResetPassword)
	if err != nil {
		return "", fmt.Errorf("failed to issue reset token: %w", err)
	}
	return carried, nil
}

// CompletePasswordReset sets a new password for the account named by a
// carried RESET_PASSWORD token.
func (s *ActionService) CompletePasswordReset(ctx context.Context, req *models.ResetPasswordRequest, ipAddress, userAgent string) error {
	if req.NewPassword == "" {
		return errors.New("new password is required")
	}
	if len(req.NewPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	email, err := s.consumeToken(ctx, req.VerificationToken, models.PurposeResetPassword, "")
	if err != nil {
		return err
	}

	account, err := s.AccountRepo.GetByEmail(ctx, email)
	if err != nil {
		return errors.New("account not found")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.AccountRepo.UpdatePassword(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logActivity(account.ID, email, models.ActionPasswordReset, "password reset completed", ipAddress, userAgent)
	return nil
}

// ChangePassword sets a new password for a signed-in account holding a
// CHANGE_PASSWORD verification token.
func (s *ActionService) ChangePassword(ctx context.Context, account *models.Account, req *models.ChangePasswordRequest, ipAddress, userAgent string) error {
	if req.NewPassword == "" {
		return errors.New("new password is required")
	}
	if len(req.NewPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if _, err := s.consumeToken(ctx, req.VerificationToken, models.PurposeChangePassword, account.Email); err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.AccountRepo.UpdatePassword(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logActivity(account.ID, account.Email, models.ActionPasswordChange, "password changed", ipAddress, userAgent)
	return nil
}

// ChangeEmail moves a signed-in account to a new address. The code was
// delivered to the NEW address, so the token is bound to it; the account
// keeps email_verified=false cleared by the repository until the new
// address is verified again... except here the code delivery itself is the
// proof, so we mark it verified in the same step.
func (s *ActionService) ChangeEmail(ctx context.Context, account *models.Account, req *models.ChangeEmailRequest, ipAddress, userAgent string) error {
	if req.NewEmail == "" {
		return errors.New("new email is required")
	}

	newEmail, err := s.consumeToken(ctx, req.VerificationToken, models.PurposeChangeEmail, req.NewEmail)
	if err != nil {
		return err
	}

	if taken, _ := s.AccountRepo.GetByEmail(ctx, newEmail); taken != nil {
		return errors.New("an account with this email already exists")
	}

	if err := s.AccountRepo.UpdateEmail(ctx, account.ID, newEmail); err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	if err := s.AccountRepo.MarkEmailVerified(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	s.logActivity(account.ID, newEmail, models.ActionEmailChange, "email changed from "+account.Email, ipAddress, userAgent)
	return nil
}

// CompleteEmailVerification flips email_verified for an existing account
// after an EMAIL_VERIFY code succeeded.
func (s *ActionService) CompleteEmailVerification(ctx context.Context, verificationToken, ipAddress, userAgent string) error {
	email, err := s.consumeToken(ctx, verificationToken, models.PurposeEmailVerify, "")
	if err != nil {
		return err
	}

	account, err := s.AccountRepo.GetByEmail(ctx, email)
	if err != nil {
		return errors.New("account not found")
	}
	if account.EmailVerified {
		return nil // idempotent
	}

	if err := s.AccountRepo.MarkEmailVerified(ctx, account.ID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	s.logActivity(account.ID, email, models.ActionEmailVerified, "email address verified", ipAddress, userAgent)
	return nil
}
