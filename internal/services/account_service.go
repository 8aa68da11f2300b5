package services

import (
	"context"
	"errors"
	"log"

	"verify-backend/internal/auth"
	"verify-backend/internal/models"
	"verify-backend/internal/repositories"
)

// AccountService handles sign-in and account reads. Account creation goes
// through ActionService.Register because it is gated on a verified code.
type AccountService struct {
	Repo            *repositories.AccountRepository
	JWTManager      *auth.JWTManager
	ActivityLogRepo *repositories.ActivityLogRepository
}

func NewAccountService(repo *repositories.AccountRepository, jwtManager *auth.JWTManager) *AccountService {
	return &AccountService{
		Repo:       repo,
		JWTManager: jwtManager,
	}
}

// SetActivityLogRepo wires the optional audit trail
func (s *AccountService) SetActivityLogRepo(repo *repositories.ActivityLogRepository) {
	s.ActivityLogRepo = repo
}

func (s *AccountService) logActivity(accountID int, email, action, details, ipAddress, userAgent string) {
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
			log.Printf("[AccountService] Failed to log activity %s for %s: %v", action, email, err)
		}
	}()
}

// ErrMFARequired signals that the password step passed but a second
// factor is still outstanding. The handler exchanges it for a pending-MFA
// token rather than a session.
var ErrMFARequired = errors.New("second factor required")

// Login authenticates the password step. Accounts with TOTP enabled get
// ErrMFARequired and the partially authenticated account back; the caller
// issues a short-lived MFA token and completes the session in ResolveMFA.
func (s *AccountService) Login(ctx context.Context, req *models.LoginRequest, ipAddress, userAgent string) (*models.AuthResponse, *models.Account, error) {
	if req.Email == "" || req.Password == "" {
		return nil, nil, errors.New("email and password are required")
	}

	account, err := s.Repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, errors.New("invalid email or password")
	}
	if !account.IsActive {
		return nil, nil, errors.New("account is deactivated")
	}
	if !auth.VerifyPassword(account.PasswordHash, req.Password) {
		s.logActivity(account.ID, account.Email, models.ActionLogin, "password rejected", ipAddress, userAgent)
		return nil, nil, errors.New("invalid email or password")
	}

	if account.TOTPEnabled {
		return nil, account, ErrMFARequired
	}

	token, err := s.JWTManager.GenerateToken(account)
	if err != nil {
		return nil, nil, err
	}

	s.logActivity(account.ID, account.Email, models.ActionLogin, "signed in", ipAddress, userAgent)

	return &models.AuthResponse{
		Success: true,
		Token:   token,
		Account: account,
	}, nil, nil
}

// IssueSession generates a full session token. Called after the second
// factor resolves.
func (s *AccountService) IssueSession(ctx context.Context, account *models.Account, ipAddress, userAgent string) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(account)
	if err != nil {
		return nil, err
	}
	s.logActivity(account.ID, account.Email, models.ActionLogin, "signed in with second factor", ipAddress, userAgent)
	return &models.AuthResponse{
		Success: true,
		Token:   token,
		Account: account,
	}, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id int) (*models.Account, error) {
	return s.Repo.Get(ctx, id)
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.Repo.GetByEmail(ctx, email)
}

// ListAccounts returns all accounts for the admin view
func (s *AccountService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.Repo.List(ctx)
}
