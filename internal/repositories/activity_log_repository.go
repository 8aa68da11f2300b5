package repositories

import (
	"context"

	"verify-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityLogRepository struct {
	DB *pgxpool.Pool
}

func NewActivityLogRepository(db *pgxpool.Pool) *ActivityLogRepository {
	return &ActivityLogRepository{DB: db}
}

// Create inserts an activity log entry
func (r *ActivityLogRepository) Create(ctx context.Context, log *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs(account_id, email, action, details, ip_address, user_agent)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	return r.DB.QueryRow(ctx, query,
		log.AccountID,
		log.Email,
		log.Action,
		log.Details,
		log.IPAddress,
		log.UserAgent,
	).Scan(&log.ID, &log.CreatedAt)
}

// ListRecent returns the newest entries for the admin audit view
func (r *ActivityLogRepository) ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, account_id, email, action, details, ip_address, user_agent, created_at
		 FROM activity_logs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		if err := rows.Scan(&log.ID, &log.AccountID, &log.Email, &log.Action,
			&log.Details, &log.IPAddress, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// ListByEmail returns entries for one identity, newest first
func (r *ActivityLogRepository) ListByEmail(ctx context.Context, email string, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := r.DB.Query(ctx,
		`SELECT id, account_id, email, action, details, ip_address, user_agent, created_at
		 FROM activity_logs WHERE email = $1 ORDER BY created_at DESC LIMIT $2`, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ActivityLog
	for rows.Next() {
		var log models.ActivityLog
		if err := rows.Scan(&log.ID, &log.AccountID, &log.Email, &log.Action,
			&log.Details, &log.IPAddress, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}
