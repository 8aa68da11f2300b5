package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"verify-backend/internal/handlers"
	"verify-backend/internal/middleware"
	"verify-backend/internal/models"
)

func NewRouter(
	otpHandler *handlers.OTPHandler,
	actionHandler *handlers.ActionHandler,
	authHandler *handlers.AuthHandler,
	mfaHandler *handlers.MFAHandler,
	accountHandler *handlers.AccountHandler,
	systemSettingHandler *handlers.SystemSettingHandler,
	activityLogHandler *handlers.ActivityLogHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - verification challenges
	r.HandleFunc("/api/otp/request", otpHandler.RequestOTP).Methods("POST")
	r.HandleFunc("/api/otp/verify", otpHandler.VerifyOTP).Methods("POST")

	// Public API routes - token-gated actions that precede a session
	r.HandleFunc("/api/auth/register", actionHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/reset-password/begin", actionHandler.BeginPasswordReset).Methods("POST")
	r.HandleFunc("/api/auth/reset-password", actionHandler.CompletePasswordReset).Methods("POST")
	r.HandleFunc("/api/auth/verify-email", actionHandler.CompleteEmailVerification).Methods("POST")

	// Public API routes - sign-in
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/mfa/resolve", authHandler.ResolveMFA).Methods("POST")

	// Protected API routes - account
	accountAPI := r.PathPrefix("/api/account").Subrouter()
	accountAPI.Use(authMiddleware.Authenticate)
	accountAPI.HandleFunc("", accountHandler.Me).Methods("GET")
	accountAPI.HandleFunc("/change-password", actionHandler.ChangePassword).Methods("POST")
	accountAPI.HandleFunc("/change-email", actionHandler.ChangeEmail).Methods("POST")

	// Protected API routes - second-factor enrollment (staff and admin)
	mfaAPI := r.PathPrefix("/api/account/mfa").Subrouter()
	mfaAPI.Use(authMiddleware.RequireRole(models.RoleStaff, models.RoleAdmin))
	mfaAPI.HandleFunc("/setup", mfaHandler.Setup).Methods("POST")
	mfaAPI.HandleFunc("/enable", mfaHandler.Enable).Methods("POST")
	mfaAPI.HandleFunc("/disable", mfaHandler.Disable).Methods("POST")

	// Protected API routes - settings (admin only for writes)
	settingsAPI := r.PathPrefix("/api/settings").Subrouter()
	settingsAPI.Use(authMiddleware.Authenticate)
	settingsAPI.HandleFunc("", systemSettingHandler.ListSettings).Methods("GET")
	settingsAPI.HandleFunc("/{key}", systemSettingHandler.GetSetting).Methods("GET")
	settingsAPI.HandleFunc("/{key}", authMiddleware.RequireAdmin(http.HandlerFunc(systemSettingHandler.UpdateSetting)).ServeHTTP).Methods("PUT")

	// Protected API routes - admin views
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Use(authMiddleware.RequireAdmin)
	adminAPI.HandleFunc("/accounts", accountHandler.List).Methods("GET")
	adminAPI.HandleFunc("/activity-logs", activityLogHandler.List).Methods("GET")
	adminAPI.HandleFunc("/verification-logs", activityLogHandler.VerificationLogs).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
