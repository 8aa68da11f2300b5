package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"verify-backend/internal/models"
	"verify-backend/internal/services"
)

type OTPHandler struct {
	Service *services.OTPService
}

func NewOTPHandler(s *services.OTPService) *OTPHandler {
	return &OTPHandler{Service: s}
}

// RequestOTP sends a verification code to an email address
func (h *OTPHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req models.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ipAddress := getIPAddress(r)
	cooldown, err := h.Service.RequestCode(r.Context(), req.Email, req.Purpose, ipAddress, r.UserAgent())
	if err != nil {
		var rateErr *services.RateLimitError
		if errors.As(err, &rateErr) {
			http.Error(w, rateErr.Message, http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.RequestOTPResponse{
		Success:         true,
		CooldownSeconds: cooldown,
		Message:         "Verification code sent",
	})
}

// VerifyOTP checks a submitted code and issues a verification token
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ipAddress := getIPAddress(r)
	resp, err := h.Service.VerifyCode(r.Context(), req.Email, req.Purpose, req.Code, ipAddress, r.UserAgent())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !resp.Verified {
		// Wrong code is not a transport error; the body carries attempts left
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(resp)
}

// getIPAddress extracts the real IP address from the request
func getIPAddress(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}
