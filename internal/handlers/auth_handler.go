package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"verify-backend/internal/auth"
	"verify-backend/internal/models"
	"verify-backend/internal/services"
)

type AuthHandler struct {
	AccountService *services.AccountService
	MFAService     *services.MFAService
	JWTManager     *auth.JWTManager
}

func NewAuthHandler(accountService *services.AccountService, mfaService *services.MFAService, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		AccountService: accountService,
		MFAService:     mfaService,
		JWTManager:     jwtManager,
	}
}

// Login handles the password step. When the account has a second factor
// enabled the response carries a short-lived MFA token instead of a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	authResp, pending, err := h.AccountService.Login(r.Context(), &req, getIPAddress(r), r.UserAgent())
	if errors.Is(err, services.ErrMFARequired) {
		mfaToken, tokenErr := h.JWTManager.GenerateMFAToken(pending)
		if tokenErr != nil {
			http.Error(w, "Failed to start second-factor step", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.MFARequiredResponse{
			MFARequired: true,
			MFAToken:    mfaToken,
			Message:     "Enter the code from your authenticator app",
		})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResp)
}

// ResolveMFA handles the second-factor step. The pending-MFA token from the
// password step identifies the account; a valid authenticator code completes
// the session.
func (h *AuthHandler) ResolveMFA(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MFAToken == "" || req.Code == "" {
		http.Error(w, "MFA token and code are required", http.StatusBadRequest)
		return
	}

	claims, err := h.JWTManager.ValidateMFAToken(req.MFAToken)
	if err != nil {
		http.Error(w, "Invalid or expired MFA token", http.StatusUnauthorized)
		return
	}

	ipAddress := getIPAddress(r)
	if err := h.MFAService.Verify(r.Context(), claims.AccountID, req.Code, ipAddress); err != nil {
		var mfaErr *services.MFAError
		if errors.As(err, &mfaErr) {
			http.Error(w, mfaErr.Message, http.StatusUnauthorized)
			return
		}
		http.Error(w, "Verification failed", http.StatusInternalServerError)
		return
	}

	account, err := h.AccountService.GetAccount(r.Context(), claims.AccountID)
	if err != nil {
		http.Error(w, "Account not found", http.StatusUnauthorized)
		return
	}

	authResp, err := h.AccountService.IssueSession(r.Context(), account, ipAddress, r.UserAgent())
	if err != nil {
		http.Error(w, "Failed to issue session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResp)
}
