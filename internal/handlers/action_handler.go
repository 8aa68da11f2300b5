package handlers

import (
	"encoding/json"
	"net/http"

	"verify-backend/internal/middleware"
	"verify-backend/internal/models"
	"verify-backend/internal/services"
)

// ActionHandler exposes the mutations that consume a verification token.
// Register, BeginPasswordReset, and CompletePasswordReset are public; the
// rest run behind the auth middleware.
type ActionHandler struct {
	Service *services.ActionService
}

func NewActionHandler(s *services.ActionService) *ActionHandler {
	return &ActionHandler{Service: s}
}

// Register creates an account from a verified signup challenge
func (h *ActionHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	authResp, err := h.Service.Register(r.Context(), &req, getIPAddress(r), r.UserAgent())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(authResp)
}

// BeginPasswordReset exchanges a verified reset challenge for a token the
// reset form can carry
func (h *ActionHandler) BeginPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.BeginResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	carried, err := h.Service.BeginPasswordReset(r.Context(), req.Email, req.VerificationToken)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.BeginResetResponse{
		Success:           true,
		VerificationToken: carried,
	})
}

// CompletePasswordReset sets a new password using a carried reset token
func (h *ActionHandler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.CompletePasswordReset(r.Context(), &req, getIPAddress(r), r.UserAgent()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Password has been reset",
	})
}

// ChangePassword sets a new password for the signed-in account
func (h *ActionHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), account, &req, getIPAddress(r), r.UserAgent()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Password changed",
	})
}

// ChangeEmail moves the signed-in account to a verified new address
func (h *ActionHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.ChangeEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.ChangeEmail(r.Context(), account, &req, getIPAddress(r), r.UserAgent()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Email changed",
	})
}

// CompleteEmailVerification marks the account email verified after an
// EMAIL_VERIFY challenge
func (h *ActionHandler) CompleteEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req models.CompleteVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.Service.CompleteEmailVerification(r.Context(), req.VerificationToken, getIPAddress(r), r.UserAgent()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Email verified",
	})
}
