package repositories

import (
	"context"

	"verify-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository struct {
	DB *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{DB: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	if a.Role == "" {
		a.Role = models.RoleUser
	}
	if !a.IsActive {
		a.IsActive = true
	}
	return r.DB.QueryRow(ctx,
		`INSERT INTO accounts(email, name, password_hash, email_verified, role, is_active)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at, updated_at`,
		a.Email, a.Name, a.PasswordHash, a.EmailVerified, a.Role, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *AccountRepository) Get(ctx context.Context, id int) (*models.Account, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, email, name, password_hash, email_verified, role, is_active, created_at, updated_at,
		 COALESCE(totp_secret, ''), COALESCE(totp_enabled, false)
         FROM accounts WHERE id=$1`, id)

	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.EmailVerified,
		&a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt, &a.TOTPSecret, &a.TOTPEnabled)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, email, name, password_hash, email_verified, role, is_active, created_at, updated_at,
		 COALESCE(totp_secret, ''), COALESCE(totp_enabled, false)
         FROM accounts WHERE email=$1`, email)

	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.EmailVerified,
		&a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt, &a.TOTPSecret, &a.TOTPEnabled)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdatePassword replaces the password hash
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET password_hash=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		passwordHash, id)
	return err
}

// UpdateEmail moves the account to a new address. The new address starts
// unverified until an EMAIL_VERIFY challenge completes for it.
func (r *AccountRepository) UpdateEmail(ctx context.Context, id int, newEmail string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET email=$1, email_verified=FALSE, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		newEmail, id)
	return err
}

// MarkEmailVerified flags the current address as verified
func (r *AccountRepository) MarkEmailVerified(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET email_verified=TRUE, updated_at=CURRENT_TIMESTAMP WHERE id=$1`,
		id)
	return err
}

// SetTOTPSecret stores a staff TOTP secret (not yet enabled)
func (r *AccountRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET totp_secret=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		secret, id)
	return err
}

// EnableTOTP turns on the second factor after the first code verified
func (r *AccountRepository) EnableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET totp_enabled=TRUE, updated_at=CURRENT_TIMESTAMP WHERE id=$1`,
		id)
	return err
}

// DisableTOTP turns the second factor off and clears the secret
func (r *AccountRepository) DisableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE accounts SET totp_enabled=FALSE, totp_secret=NULL, updated_at=CURRENT_TIMESTAMP WHERE id=$1`,
		id)
	return err
}

// List returns all accounts, newest first
func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, email, name, email_verified, role, is_active, created_at, updated_at
         FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		var a models.Account
		err := rows.Scan(&a.ID, &a.Email, &a.Name, &a.EmailVerified, &a.Role,
			&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, &a)
	}
	return accounts, nil
}
