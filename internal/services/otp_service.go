package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strconv"
	"time"

	"verify-backend/internal/cache"
	"verify-backend/internal/flow"
	"verify-backend/internal/mailer"
	"verify-backend/internal/metrics"
	"verify-backend/internal/models"
	"verify-backend/internal/repositories"
	"verify-backend/internal/timeutil"

	"github.com/google/uuid"
)

// Default rate limiting values (can be overridden via system settings)
// Set any value to 0 to disable that limit
const (
	OTPExpiryMinutes = 5
	MaxOTPAttempts   = 3
	TokenTTL         = 10 * time.Minute

	DefaultCooldownSeconds = 60

	// Default rate limits (configurable via system settings, 0 = disabled)
	DefaultMaxOTPPerWindow  = 0
	DefaultOTPWindowMinutes = 60 // Window size in minutes
	DefaultMaxOTPPerDay     = 0
	DefaultMaxOTPPerIPHour  = 0
	DefaultIPWindowMinutes  = 60
	DefaultMaxOTPPerIPDay   = 0
	DefaultMaxDailyMail     = 0 // Daily send budget, 0 = unlimited
)

// Rate limit setting keys
const (
	SettingCooldownSeconds = "otp_cooldown_seconds"
	SettingMaxPerWindow    = "otp_max_per_window"
	SettingWindowMinutes   = "otp_window_minutes"
	SettingMaxPerDay       = "otp_max_per_day"
	SettingMaxPerIPWindow  = "otp_max_per_ip_window"
	SettingIPWindowMinutes = "otp_ip_window_minutes"
	SettingMaxPerIPDay     = "otp_max_per_ip_day"
	SettingMaxDailyMail    = "otp_max_daily_total"
)

// RateLimitError marks a request rejected by a cooldown or volume limit,
// so the HTTP layer can answer 429 instead of treating it as bad input
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return e.Message }

type OTPService struct {
	ChallengeRepo   *repositories.ChallengeRepository
	AccountRepo     *repositories.AccountRepository
	Mailer          mailer.Provider
	SettingRepo     *repositories.SystemSettingRepository
	ActivityLogRepo *repositories.ActivityLogRepository
}

func NewOTPService(
	challengeRepo *repositories.ChallengeRepository,
	accountRepo *repositories.AccountRepository,
	mailProvider mailer.Provider,
) *OTPService {
	return &OTPService{
		ChallengeRepo: challengeRepo,
		AccountRepo:   accountRepo,
		Mailer:        mailProvider,
	}
}

// SetSettingRepo sets the system setting repository for configurable rate limits
func (s *OTPService) SetSettingRepo(repo *repositories.SystemSettingRepository) {
	s.SettingRepo = repo
}

// SetActivityLogRepo sets the activity log repository for audit logging
func (s *OTPService) SetActivityLogRepo(repo *repositories.ActivityLogRepository) {
	s.ActivityLogRepo = repo
}

// getRateLimitSetting fetches a rate limit setting with fallback to a default
func (s *OTPService) getRateLimitSetting(ctx context.Context, key string, defaultValue int) int {
	if s.SettingRepo == nil {
		return defaultValue
	}

	setting, err := s.SettingRepo.Get(ctx, key)
	if err != nil || setting == nil {
		return defaultValue
	}

	value, err := strconv.Atoi(setting.SettingValue)
	if err != nil {
		return defaultValue
	}

	return value
}

// LogActivity records an audit trail entry without blocking the caller
func (s *OTPService) LogActivity(ctx context.Context, accountID int, email, action, details, ipAddress, userAgent string) {
	if s.ActivityLogRepo == nil {
		return
	}

	entry := &models.ActivityLog{
		AccountID: accountID,
		Email:     email,
		Action:    action,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	go func() {
		s.ActivityLogRepo.Create(context.Background(), entry)
	}()
}

// CodeGoesToNewAddress reports whether a purpose delivers its code to an
// address that must not belong to an account yet. Signup verifies the address
// being registered; change-email verifies control of the replacement address,
// which only becomes an account's address after the change completes.
func CodeGoesToNewAddress(purpose models.Purpose) bool {
	return purpose == models.PurposeSignupVerify || purpose == models.PurposeChangeEmail
}

// GenerateCode creates a secure 6-digit OTP code
func (s *OTPService) GenerateCode() string {
	max := big.NewInt(999999)
	n, _ := rand.Int(rand.Reader, max)
	return fmt.Sprintf("%06d", n.Int64())
}

// CanRequestCode checks the (email, purpose) rate limits.
// Set any limit to 0 to disable that specific check.
func (s *OTPService) CanRequestCode(ctx context.Context, email string, purpose models.Purpose) error {
	cooldownSeconds := s.getRateLimitSetting(ctx, SettingCooldownSeconds, DefaultCooldownSeconds)
	maxPerWindow := s.getRateLimitSetting(ctx, SettingMaxPerWindow, DefaultMaxOTPPerWindow)
	windowMinutes := s.getRateLimitSetting(ctx, SettingWindowMinutes, DefaultOTPWindowMinutes)
	maxPerDay := s.getRateLimitSetting(ctx, SettingMaxPerDay, DefaultMaxOTPPerDay)

	// Fast path: Redis mirrors the active cooldown with a matching TTL
	if remaining := cache.CooldownRemaining(ctx, email, purpose); remaining > 0 {
		return &RateLimitError{Message: fmt.Sprintf("please wait %d second(s) before requesting another code", remaining)}
	}

	if cooldownSeconds > 0 {
		recentCount, err := s.ChallengeRepo.CountRecentRequests(ctx, email, purpose, time.Duration(cooldownSeconds)*time.Second)
		if err != nil {
			return fmt.Errorf("failed to check recent requests: %w", err)
		}

		if recentCount > 0 {
			return &RateLimitError{Message: fmt.Sprintf("please wait %d second(s) before requesting another code", cooldownSeconds)}
		}
	}

	if maxPerWindow > 0 && windowMinutes > 0 {
		windowCount, err := s.ChallengeRepo.CountRecentRequests(ctx, email, purpose, time.Duration(windowMinutes)*time.Minute)
		if err != nil {
			return fmt.Errorf("failed to check window limit: %w", err)
		}

		if windowCount >= maxPerWindow {
			return &RateLimitError{Message: fmt.Sprintf("maximum code requests exceeded. Please try again after %d minutes", windowMinutes)}
		}
	}

	if maxPerDay > 0 {
		dailyCount, err := s.ChallengeRepo.CountRecentRequests(ctx, email, purpose, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("failed to check daily limit: %w", err)
		}

		if dailyCount >= maxPerDay {
			return &RateLimitError{Message: "maximum daily code requests exceeded. Please try again tomorrow"}
		}
	}

	return nil
}

// CheckIPRateLimit limits requests per source address to slow automated abuse.
// Set any limit to 0 to disable that specific check.
func (s *OTPService) CheckIPRateLimit(ctx context.Context, ipAddress string) error {
	if ipAddress == "" {
		return nil // Skip if IP not available
	}

	maxPerIPWindow := s.getRateLimitSetting(ctx, SettingMaxPerIPWindow, DefaultMaxOTPPerIPHour)
	ipWindowMinutes := s.getRateLimitSetting(ctx, SettingIPWindowMinutes, DefaultIPWindowMinutes)
	maxPerIPDay := s.getRateLimitSetting(ctx, SettingMaxPerIPDay, DefaultMaxOTPPerIPDay)

	if maxPerIPWindow > 0 && ipWindowMinutes > 0 {
		windowCount, err := s.ChallengeRepo.CountRequestsByIP(ctx, ipAddress, time.Duration(ipWindowMinutes)*time.Minute)
		if err != nil {
			return fmt.Errorf("failed to check IP window limit: %w", err)
		}

		if windowCount >= maxPerIPWindow {
			return &RateLimitError{Message: fmt.Sprintf("too many requests from your network. Please try again after %d minutes", ipWindowMinutes)}
		}
	}

	if maxPerIPDay > 0 {
		dailyCount, err := s.ChallengeRepo.CountRequestsByIP(ctx, ipAddress, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("failed to check IP daily limit: %w", err)
		}

		if dailyCount >= maxPerIPDay {
			return &RateLimitError{Message: "too many requests from your network. Please try again tomorrow"}
		}
	}

	return nil
}

// CheckDailyBudget checks whether the daily mail budget has been exceeded.
// Set to 0 to disable the budget limit.
func (s *OTPService) CheckDailyBudget(ctx context.Context) error {
	maxDaily := s.getRateLimitSetting(ctx, SettingMaxDailyMail, DefaultMaxDailyMail)
	if maxDaily <= 0 {
		return nil
	}

	todayCount, err := s.ChallengeRepo.CountRecentRequests(ctx, "", "", 24*time.Hour)
	if err != nil {
		// Don't fail if we can't check the budget
		return nil
	}

	if todayCount >= maxDaily {
		log.Printf("ALERT: Daily mail budget limit reached (%d/%d)", todayCount, maxDaily)
		return &RateLimitError{Message: "service temporarily unavailable. Please try again later"}
	}

	if todayCount >= int(float64(maxDaily)*0.8) {
		log.Printf("WARNING: Approaching daily mail limit (%d/%d - 80%%)", todayCount, maxDaily)
	}

	return nil
}

// GetRateLimitSettings returns current rate limit settings for the admin view
func (s *OTPService) GetRateLimitSettings(ctx context.Context) map[string]int {
	return map[string]int{
		"cooldown_seconds":  s.getRateLimitSetting(ctx, SettingCooldownSeconds, DefaultCooldownSeconds),
		"max_per_window":    s.getRateLimitSetting(ctx, SettingMaxPerWindow, DefaultMaxOTPPerWindow),
		"window_minutes":    s.getRateLimitSetting(ctx, SettingWindowMinutes, DefaultOTPWindowMinutes),
		"max_per_day":       s.getRateLimitSetting(ctx, SettingMaxPerDay, DefaultMaxOTPPerDay),
		"max_per_ip_window": s.getRateLimitSetting(ctx, SettingMaxPerIPWindow, DefaultMaxOTPPerIPHour),
		"ip_window_minutes": s.getRateLimitSetting(ctx, SettingIPWindowMinutes, DefaultIPWindowMinutes),
		"max_per_ip_day":    s.getRateLimitSetting(ctx, SettingMaxPerIPDay, DefaultMaxOTPPerIPDay),
		"max_daily_total":   s.getRateLimitSetting(ctx, SettingMaxDailyMail, DefaultMaxDailyMail),
	}
}

// RequestCode generates a challenge for an (email, purpose) pair, mails the
// code, and returns the cooldown the client must honor before a resend.
func (s *OTPService) RequestCode(ctx context.Context, email string, purpose models.Purpose, ipAddress, userAgent string) (int, error) {
	if email == "" {
		return 0, fmt.Errorf("email is required")
	}
	if !models.ValidPurpose(purpose) {
		return 0, fmt.Errorf("unknown verification purpose")
	}

	// Signup and change-email deliver the code to an address that must not be
	// registered yet; every other purpose proves control of an existing
	// account's address.
	account, err := s.AccountRepo.GetByEmail(ctx, email)
	if CodeGoesToNewAddress(purpose) {
		if err == nil && account != nil {
			return 0, fmt.Errorf("an account with this email already exists")
		}
	} else {
		if err != nil || account == nil {
			return 0, fmt.Errorf("no account found with this email address")
		}
	}

	if err := s.CanRequestCode(ctx, email, purpose); err != nil {
		metrics.OTPRequestsThrottled.WithLabelValues("cooldown").Inc()
		return 0, err
	}

	if err := s.CheckIPRateLimit(ctx, ipAddress); err != nil {
		metrics.OTPRequestsThrottled.WithLabelValues("ip").Inc()
		return 0, err
	}

	if err := s.CheckDailyBudget(ctx); err != nil {
		metrics.OTPRequestsThrottled.WithLabelValues("daily_budget").Inc()
		return 0, err
	}

	code := s.GenerateCode()

	expiresAt := timeutil.Now().Add(OTPExpiryMinutes * time.Minute)
	challenge := &models.OTPChallenge{
		Email:     email,
		Purpose:   purpose,
		OTPCode:   code,
		ExpiresAt: expiresAt,
	}

	if ipAddress != "" {
		challenge.IPAddress = &ipAddress
	}

	if err := s.ChallengeRepo.Create(ctx, challenge); err != nil {
		return 0, fmt.Errorf("failed to create challenge record: %w", err)
	}

	if err := s.Mailer.SendOTP(email, code, purpose); err != nil {
		return 0, fmt.Errorf("failed to send code: %w", err)
	}

	cooldownSeconds := s.getRateLimitSetting(ctx, SettingCooldownSeconds, DefaultCooldownSeconds)
	cache.SetCooldown(ctx, email, purpose, cooldownSeconds)
	metrics.OTPCodesIssued.WithLabelValues(string(purpose)).Inc()

	accountID := 0
	if account != nil {
		accountID = account.ID
	}
	s.LogActivity(ctx, accountID, email, models.ActionOTPRequested,
		fmt.Sprintf("code requested for %s", purpose), ipAddress, userAgent)

	return cooldownSeconds, nil
}

// VerifyCode checks a submitted code against the latest challenge for the
// (email, purpose) pair. On success it mints a single-use verification token
// bound to that pair; the token is the only proof a follow-up action accepts.
func (s *OTPService) VerifyCode(ctx context.Context, email string, purpose models.Purpose, rawCode, ipAddress, userAgent string) (*models.VerifyOTPResponse, error) {
	code := flow.NormalizeCode(rawCode)
	if len(code) != flow.CodeLength {
		return nil, fmt.Errorf("code must be %d digits", flow.CodeLength)
	}

	challenge, err := s.ChallengeRepo.GetLatest(ctx, email, purpose)
	if err != nil {
		return nil, fmt.Errorf("no pending code for this email. Please request a new one")
	}

	if timeutil.Now().After(challenge.ExpiresAt) {
		metrics.OTPVerifications.WithLabelValues(string(purpose), metrics.ResultExpired).Inc()
		s.LogActivity(ctx, 0, email, models.ActionOTPFailed, "code expired", ipAddress, userAgent)
		return nil, fmt.Errorf("code has expired. Please request a new one")
	}

	if challenge.Verified {
		s.LogActivity(ctx, 0, email, models.ActionOTPFailed, "code already used", ipAddress, userAgent)
		return nil, fmt.Errorf("code has already been used. Please request a new one")
	}

	if challenge.Attempts >= MaxOTPAttempts {
		metrics.OTPVerifications.WithLabelValues(string(purpose), metrics.ResultExhausted).Inc()
		s.LogActivity(ctx, 0, email, models.ActionOTPFailed, "max attempts exceeded", ipAddress, userAgent)
		zero := 0
		return &models.VerifyOTPResponse{
			Verified:     false,
			AttemptsLeft: &zero,
			Message:      "maximum verification attempts exceeded. Please request a new code",
		}, nil
	}

	if err := s.ChallengeRepo.IncrementAttempts(ctx, challenge.ID); err != nil {
		log.Printf("Warning: failed to increment challenge attempts: %v", err)
	}

	if challenge.OTPCode != code {
		attemptsLeft := MaxOTPAttempts - challenge.Attempts - 1
		if attemptsLeft < 0 {
			attemptsLeft = 0
		}
		metrics.OTPVerifications.WithLabelValues(string(purpose), metrics.ResultRejected).Inc()
		s.LogActivity(ctx, 0, email, models.ActionOTPFailed,
			fmt.Sprintf("invalid code, %d attempt(s) left", attemptsLeft), ipAddress, userAgent)
		return &models.VerifyOTPResponse{
			Verified:     false,
			AttemptsLeft: &attemptsLeft,
			Message:      fmt.Sprintf("invalid code, %d attempt(s) left", attemptsLeft),
		}, nil
	}

	if err := s.ChallengeRepo.MarkVerified(ctx, challenge.ID); err != nil {
		log.Printf("Warning: failed to mark challenge as verified: %v", err)
	}

	token := uuid.NewString()
	if err := cache.StoreVerificationToken(ctx, token, email, purpose, TokenTTL); err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	accountID := 0
	if account, err := s.AccountRepo.GetByEmail(ctx, email); err == nil && account != nil {
		accountID = account.ID
	}
	metrics.OTPVerifications.WithLabelValues(string(purpose), metrics.ResultVerified).Inc()
	s.LogActivity(ctx, accountID, email, models.ActionOTPVerified,
		fmt.Sprintf("code verified for %s", purpose), ipAddress, userAgent)

	return &models.VerifyOTPResponse{
		Verified:          true,
		VerificationToken: token,
	}, nil
}
