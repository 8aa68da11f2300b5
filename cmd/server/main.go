package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"verify-backend/internal/auth"
	"verify-backend/internal/cache"
	"verify-backend/internal/config"
	"verify-backend/internal/database"
	"verify-backend/internal/db"
	"verify-backend/internal/handlers"
	"verify-backend/internal/health"
	h "verify-backend/internal/http"
	"verify-backend/internal/mailer"
	"verify-backend/internal/middleware"
	"verify-backend/internal/monitoring"
	"verify-backend/internal/repositories"
	"verify-backend/internal/services"
	"verify-backend/migrations"
)

// startCleanupWorker prunes expired challenges and stale MFA attempts.
// Both tables grow with every code request, so this runs for the life of
// the process.
func startCleanupWorker(challengeRepo *repositories.ChallengeRepository, mfaAttemptRepo *repositories.MFAAttemptRepository) {
	ticker := time.NewTicker(time.Hour)
	go func() {
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := challengeRepo.CleanupExpired(ctx); err != nil {
				log.Printf("[Cleanup] Failed to prune expired challenges: %v", err)
			}
			if err := mfaAttemptRepo.CleanupOldAttempts(ctx); err != nil {
				log.Printf("[Cleanup] Failed to prune old MFA attempts: %v", err)
			}
			cancel()
		}
	}()
}

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to PostgreSQL
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - cooldown mirror degrades gracefully,
	// but verification tokens need it, so warn loudly)
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (verification tokens will fail until it returns)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Run database migrations from the embedded filesystem
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool, migrations.Files)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize health checker
	healthChecker := health.NewHealthChecker(pool)

	// Start monitoring dashboard server in background
	go monitoring.NewMonitoringServer(pool, healthChecker, cfg.Server.MonitoringPort).Start()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(pool)
	challengeRepo := repositories.NewChallengeRepository(pool)
	activityLogRepo := repositories.NewActivityLogRepository(pool)
	mfaAttemptRepo := repositories.NewMFAAttemptRepository(pool)
	systemSettingRepo := repositories.NewSystemSettingRepository(pool)

	// Select the mail provider. Falls back to a logging mock so local
	// development works without credentials.
	var mailProvider mailer.Provider
	if cfg.Mail.Mock || cfg.Mail.APIKey == "" {
		log.Println("WARNING: MAIL_API_KEY not set, using MockMailer (codes will only print to logs)")
		mailProvider = mailer.NewMockMailer()
	} else {
		log.Println("Using mail API for code delivery")
		mailProvider = mailer.NewAPIMailer(cfg.Mail.APIKey, cfg.Mail.Endpoint, cfg.Mail.From)
	}

	// Initialize services
	otpService := services.NewOTPService(challengeRepo, accountRepo, mailProvider)
	otpService.SetSettingRepo(systemSettingRepo)
	otpService.SetActivityLogRepo(activityLogRepo)

	actionService := services.NewActionService(accountRepo, jwtManager)
	actionService.SetActivityLogRepo(activityLogRepo)

	accountService := services.NewAccountService(accountRepo, jwtManager)
	accountService.SetActivityLogRepo(activityLogRepo)

	mfaService := services.NewMFAService(accountRepo, mfaAttemptRepo)
	systemSettingService := services.NewSystemSettingService(systemSettingRepo)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, accountRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	// Initialize handlers
	otpHandler := handlers.NewOTPHandler(otpService)
	actionHandler := handlers.NewActionHandler(actionService)
	authHandler := handlers.NewAuthHandler(accountService, mfaService, jwtManager)
	mfaHandler := handlers.NewMFAHandler(mfaService)
	accountHandler := handlers.NewAccountHandler(accountService)
	systemSettingHandler := handlers.NewSystemSettingHandler(systemSettingService)
	activityLogHandler := handlers.NewActivityLogHandler(activityLogRepo, challengeRepo)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Create router
	router := h.NewRouter(
		otpHandler,
		actionHandler,
		authHandler,
		mfaHandler,
		accountHandler,
		systemSettingHandler,
		activityLogHandler,
		healthHandler,
		authMiddleware,
	)

	// Wrap with panic recovery and metrics middleware
	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	// Background table maintenance
	startCleanupWorker(challengeRepo, mfaAttemptRepo)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
