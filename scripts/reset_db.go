//go:build ignore

// Development utility. Wipes every table and reseeds the admin account
// plus the default rate-limit settings.
//
// Usage: go run scripts/reset_db.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"verify-backend/internal/config"
)

func main() {
	fmt.Println("==========================================")
	fmt.Println("  DATABASE RESET UTILITY")
	fmt.Println("==========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL DATA from the database!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Type 'RESET' to confirm: ")
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input != "RESET" {
		fmt.Println("Aborted.")
		os.Exit(0)
	}

	cfg := config.Load()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.Database.User, cfg.Database.Password,
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("Resetting database...")

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"activity_logs",
		"mfa_attempts",
		"otp_challenges",
		"system_settings",
		"accounts",
	}

	if _, err := tx.Exec(ctx, "SET session_replication_role = 'replica'"); err != nil {
		log.Fatalf("Failed to disable triggers: %v", err)
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			log.Fatalf("Failed to truncate %s: %v", table, err)
		}
		fmt.Printf("  Truncated %s\n", table)
	}

	sequences := []string{
		"accounts_id_seq",
		"otp_challenges_id_seq",
		"activity_logs_id_seq",
		"mfa_attempts_id_seq",
		"system_settings_id_seq",
	}
	for _, seq := range sequences {
		if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER SEQUENCE %s RESTART WITH 1", seq)); err != nil {
			log.Fatalf("Failed to reset sequence %s: %v", seq, err)
		}
	}

	if _, err := tx.Exec(ctx, "SET session_replication_role = 'origin'"); err != nil {
		log.Fatalf("Failed to re-enable triggers: %v", err)
	}

	// bcrypt hash of "admin123"
	adminHash := "$2a$10$N9qo8uLOickgx2ZMRZoMye7U4hWJQbFlLwt7xW.hQOKvH8QhPVN8S"
	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (email, name, password_hash, email_verified, role, is_active)
		VALUES ($1, $2, $3, TRUE, 'admin', TRUE)`,
		"admin@localhost", "Administrator", adminHash)
	if err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}
	fmt.Println("  Seeded admin account (admin@localhost / admin123)")

	settings := []struct {
		key, value, description string
	}{
		{"otp_cooldown_seconds", "60", "Minimum seconds between code requests for the same email and purpose"},
		{"otp_max_per_window", "5", "Maximum codes per email and purpose within the rolling window"},
		{"otp_window_minutes", "60", "Length of the rolling per-email window in minutes"},
		{"otp_max_per_day", "20", "Maximum codes per email and purpose per day"},
		{"otp_max_per_ip_window", "20", "Maximum codes per IP within the rolling window"},
		{"otp_ip_window_minutes", "60", "Length of the rolling per-IP window in minutes"},
		{"otp_max_per_ip_day", "100", "Maximum codes per IP per day"},
		{"otp_max_daily_total", "5000", "Global daily budget across all emails and purposes"},
	}
	for _, s := range settings {
		_, err = tx.Exec(ctx, `
			INSERT INTO system_settings (setting_key, setting_value, description)
			VALUES ($1, $2, $3)`,
			s.key, s.value, s.description)
		if err != nil {
			log.Fatalf("Failed to seed setting %s: %v", s.key, err)
		}
	}
	fmt.Println("  Seeded default settings")

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	fmt.Println()
	fmt.Println("Database reset complete.")
}
