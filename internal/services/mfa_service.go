package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"time"

	"verify-backend/internal/models"
	"verify-backend/internal/repositories"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpIssuer           = "VerifyBackend"
	maxFailedMFAAttempts = 5
	mfaRateLimitWindow   = 15 * time.Minute
)

// Sentinel errors surfaced to handlers with user-facing messages
var (
	ErrTooManyMFAAttempts = &MFAError{Message: "too many failed attempts, please try again later"}
	ErrNoTOTPSecret       = &MFAError{Message: "two-factor setup not initiated"}
	ErrInvalidTOTPCode    = &MFAError{Message: "invalid authenticator code"}
	ErrTOTPNotEnabled     = &MFAError{Message: "two-factor authentication is not enabled"}
)

type MFAError struct {
	Message string
}

func (e *MFAError) Error() string {
	return e.Message
}

// MFAService manages authenticator-app second factors for staff accounts.
// End users verify through emailed codes; staff sign-in additionally
// requires TOTP once enabled.
type MFAService struct {
	accountRepo *repositories.AccountRepository
	attemptRepo *repositories.MFAAttemptRepository
}

func NewMFAService(accountRepo *repositories.AccountRepository, attemptRepo *repositories.MFAAttemptRepository) *MFAService {
	return &MFAService{
		accountRepo: accountRepo,
		attemptRepo: attemptRepo,
	}
}

// GenerateSetup creates a new TOTP secret and QR code for an account
func (s *MFAService) GenerateSetup(ctx context.Context, account *models.Account) (*models.MFASetupResponse, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: account.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	// Stored but not enabled until the first code verifies
	if err := s.accountRepo.SetTOTPSecret(ctx, account.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.MFASetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: account.Email,
	}, nil
}

// VerifyAndEnable confirms the first authenticator code and turns the
// second factor on.
func (s *MFAService) VerifyAndEnable(ctx context.Context, accountID int, code, ipAddress string) error {
	if limited, err := s.isRateLimited(ctx, accountID, ipAddress); err != nil {
		return err
	} else if limited {
		return ErrTooManyMFAAttempts
	}

	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if account.TOTPSecret == "" {
		return ErrNoTOTPSecret
	}

	if !totp.Validate(code, account.TOTPSecret) {
		s.attemptRepo.LogAttempt(ctx, accountID, ipAddress, false)
		return ErrInvalidTOTPCode
	}
	s.attemptRepo.LogAttempt(ctx, accountID, ipAddress, true)

	return s.accountRepo.EnableTOTP(ctx, accountID)
}

// Verify validates an authenticator code during sign-in
func (s *MFAService) Verify(ctx context.Context, accountID int, code, ipAddress string) error {
	if limited, err := s.isRateLimited(ctx, accountID, ipAddress); err != nil {
		return err
	} else if limited {
		return ErrTooManyMFAAttempts
	}

	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TOTPEnabled || account.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}

	if !totp.Validate(code, account.TOTPSecret) {
		s.attemptRepo.LogAttempt(ctx, accountID, ipAddress, false)
		return ErrInvalidTOTPCode
	}
	s.attemptRepo.LogAttempt(ctx, accountID, ipAddress, true)
	return nil
}

// Disable turns the second factor off after verifying the current code
func (s *MFAService) Disable(ctx context.Context, accountID int, code string) error {
	account, err := s.accountRepo.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TOTPEnabled {
		return ErrTOTPNotEnabled
	}
	if !totp.Validate(code, account.TOTPSecret) {
		return ErrInvalidTOTPCode
	}
	return s.accountRepo.DisableTOTP(ctx, accountID)
}

// isRateLimited checks failed-attempt counts per account and per IP
func (s *MFAService) isRateLimited(ctx context.Context, accountID int, ipAddress string) (bool, error) {
	attempts, err := s.attemptRepo.GetRecentFailedAttempts(ctx, accountID, mfaRateLimitWindow)
	if err != nil {
		return false, err
	}
	if attempts >= maxFailedMFAAttempts {
		return true, nil
	}

	ipAttempts, err := s.attemptRepo.GetRecentFailedAttemptsByIP(ctx, ipAddress, mfaRateLimitWindow)
	if err != nil {
		return false, err
	}
	// Shared IPs get a bit more headroom
	if ipAttempts >= maxFailedMFAAttempts*2 {
		return true, nil
	}
	return false, nil
}
