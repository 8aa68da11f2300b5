package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"verify-backend/internal/middleware"
	"verify-backend/internal/models"
	"verify-backend/internal/services"
)

// MFAHandler manages authenticator-app enrollment for staff accounts
type MFAHandler struct {
	Service *services.MFAService
}

func NewMFAHandler(s *services.MFAService) *MFAHandler {
	return &MFAHandler{Service: s}
}

func writeMFAError(w http.ResponseWriter, err error) {
	var mfaErr *services.MFAError
	if errors.As(err, &mfaErr) {
		http.Error(w, mfaErr.Message, http.StatusBadRequest)
		return
	}
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// Setup initiates second-factor enrollment and returns the QR code
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if account.TOTPEnabled {
		http.Error(w, "Two-factor authentication is already enabled", http.StatusBadRequest)
		return
	}

	resp, err := h.Service.GenerateSetup(r.Context(), account)
	if err != nil {
		http.Error(w, "Failed to generate setup", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Enable verifies the first authenticator code and turns the factor on
func (h *MFAHandler) Enable(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "Verification code is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.VerifyAndEnable(r.Context(), account.ID, req.Code, getIPAddress(r)); err != nil {
		writeMFAError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Two-factor authentication enabled",
	})
}

// Disable turns the second factor off after a final code check
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" {
		http.Error(w, "Verification code is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.Disable(r.Context(), account.ID, req.Code); err != nil {
		writeMFAError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Two-factor authentication disabled",
	})
}
