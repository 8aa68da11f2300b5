package repositories

import (
	"context"
	"time"

	"verify-backend/internal/timeutil"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MFAAttemptRepository struct {
	DB *pgxpool.Pool
}

func NewMFAAttemptRepository(db *pgxpool.Pool) *MFAAttemptRepository {
	return &MFAAttemptRepository{DB: db}
}

// LogAttempt records a second-factor verification attempt for rate limiting
func (r *MFAAttemptRepository) LogAttempt(ctx context.Context, accountID int, ipAddress string, success bool) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO mfa_attempts (account_id, ip_address, success) VALUES ($1, $2, $3)`,
		accountID, ipAddress, success)
	return err
}

// GetRecentFailedAttempts returns failed attempt count for an account in a window
func (r *MFAAttemptRepository) GetRecentFailedAttempts(ctx context.Context, accountID int, window time.Duration) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM mfa_attempts
		 WHERE account_id = $1 AND success = false AND created_at > $2`,
		accountID, timeutil.Now().Add(-window)).Scan(&count)
	return count, err
}

// GetRecentFailedAttemptsByIP returns failed attempts from an IP in a window
func (r *MFAAttemptRepository) GetRecentFailedAttemptsByIP(ctx context.Context, ip string, window time.Duration) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM mfa_attempts
		 WHERE ip_address = $1 AND success = false AND created_at > $2`,
		ip, timeutil.Now().Add(-window)).Scan(&count)
	return count, err
}

// CleanupOldAttempts removes attempts older than 24 hours
func (r *MFAAttemptRepository) CleanupOldAttempts(ctx context.Context) error {
	_, err := r.DB.Exec(ctx,
		`DELETE FROM mfa_attempts WHERE created_at < NOW() - INTERVAL '24 hours'`)
	return err
}
