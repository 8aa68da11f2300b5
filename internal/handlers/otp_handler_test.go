package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verify-backend/internal/services"
)

// Bad input is the caller's mistake, not throttling; it must come back as
// 400, never 429.
func TestRequestOTPValidationStatus(t *testing.T) {
	h := NewOTPHandler(&services.OTPService{})

	tests := []struct {
		name string
		body string
	}{
		{"missing email", `{"purpose":"SIGNUP_VERIFY"}`},
		{"unknown purpose", `{"email":"someone@example.com","purpose":"NOT_A_PURPOSE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/otp/request", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.RequestOTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRequestOTPMalformedBody(t *testing.T) {
	h := NewOTPHandler(&services.OTPService{})

	req := httptest.NewRequest(http.MethodPost, "/api/otp/request", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.RequestOTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
