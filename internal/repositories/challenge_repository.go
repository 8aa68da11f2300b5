package repositories

import (
	"context"
	"time"

	"verify-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ChallengeRepository struct {
	DB *pgxpool.Pool
}

func NewChallengeRepository(db *pgxpool.Pool) *ChallengeRepository {
	return &ChallengeRepository{DB: db}
}

// Create inserts a new OTP challenge record
func (r *ChallengeRepository) Create(ctx context.Context, ch *models.OTPChallenge) error {
	query := `
		INSERT INTO otp_challenges(email, purpose, otp_code, ip_address, expires_at)
		VALUES($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	return r.DB.QueryRow(ctx, query,
		ch.Email,
		ch.Purpose,
		ch.OTPCode,
		ch.IPAddress,
		ch.ExpiresAt,
	).Scan(&ch.ID, &ch.CreatedAt)
}

// GetLatest retrieves the most recent challenge for an (email, purpose) pair
func (r *ChallengeRepository) GetLatest(ctx context.Context, email string, purpose models.Purpose) (*models.OTPChallenge, error) {
	query := `
		SELECT id, email, purpose, otp_code, ip_address, created_at, expires_at, verified, attempts
		FROM otp_challenges
		WHERE email = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var ch models.OTPChallenge
	err := r.DB.QueryRow(ctx, query, email, purpose).Scan(
		&ch.ID,
		&ch.Email,
		&ch.Purpose,
		&ch.OTPCode,
		&ch.IPAddress,
		&ch.CreatedAt,
		&ch.ExpiresAt,
		&ch.Verified,
		&ch.Attempts,
	)

	if err != nil {
		return nil, err
	}

	return &ch, nil
}

// IncrementAttempts increments the verification attempt counter
func (r *ChallengeRepository) IncrementAttempts(ctx context.Context, id int) error {
	query := `UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = $1`
	_, err := r.DB.Exec(ctx, query, id)
	return err
}

// MarkVerified marks a challenge as successfully verified
func (r *ChallengeRepository) MarkVerified(ctx context.Context, id int) error {
	query := `UPDATE otp_challenges SET verified = TRUE WHERE id = $1`
	_, err := r.DB.Exec(ctx, query, id)
	return err
}

// CountRecentRequests counts challenges created for an (email, purpose) pair
// within a time duration. Pass an empty email to count everything regardless
// of purpose (daily send budget).
func (r *ChallengeRepository) CountRecentRequests(ctx context.Context, email string, purpose models.Purpose, duration time.Duration) (int, error) {
	if email == "" {
		query := `SELECT COUNT(*) FROM otp_challenges WHERE created_at > NOW() - $1::interval`
		var count int
		err := r.DB.QueryRow(ctx, query, duration.String()).Scan(&count)
		return count, err
	}

	// Challenges for one purpose never count against another; the limits are
	// scoped to the (email, purpose) pair
	query := `
		SELECT COUNT(*)
		FROM otp_challenges
		WHERE email = $1 AND purpose = $2 AND created_at > NOW() - $3::interval
	`

	var count int
	err := r.DB.QueryRow(ctx, query, email, purpose, duration.String()).Scan(&count)
	return count, err
}

// CountRequestsByIP counts challenges requested from an IP address within a
// time duration
func (r *ChallengeRepository) CountRequestsByIP(ctx context.Context, ipAddress string, duration time.Duration) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM otp_challenges
		WHERE ip_address = $1 AND created_at > NOW() - $2::interval
	`

	var count int
	err := r.DB.QueryRow(ctx, query, ipAddress, duration.String()).Scan(&count)
	return count, err
}

// CleanupExpired removes old challenge records (run as a background job)
func (r *ChallengeRepository) CleanupExpired(ctx context.Context) error {
	query := `DELETE FROM otp_challenges WHERE expires_at < NOW() - INTERVAL '1 day'`
	_, err := r.DB.Exec(ctx, query)
	return err
}

// VerificationLog is a challenge row joined with the account name, for the
// admin audit view
type VerificationLog struct {
	ID          int            `json:"id"`
	Email       string         `json:"email"`
	Purpose     models.Purpose `json:"purpose"`
	AccountName string         `json:"account_name"`
	IPAddress   *string        `json:"ip_address"`
	CreatedAt   time.Time      `json:"created_at"`
	Verified    bool           `json:"verified"`
}

// GetVerificationLogs retrieves recent challenges for the admin view
func (r *ChallengeRepository) GetVerificationLogs(ctx context.Context, limit int) ([]VerificationLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	query := `
		SELECT o.id, o.email, o.purpose, COALESCE(a.name, '') as account_name, o.ip_address, o.created_at, o.verified
		FROM otp_challenges o
		LEFT JOIN accounts a ON o.email = a.email
		ORDER BY o.created_at DESC
		LIMIT $1
	`

	rows, err := r.DB.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []VerificationLog
	for rows.Next() {
		var log VerificationLog
		if err := rows.Scan(&log.ID, &log.Email, &log.Purpose, &log.AccountName, &log.IPAddress, &log.CreatedAt, &log.Verified); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return logs, nil
}
