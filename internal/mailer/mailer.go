package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"verify-backend/internal/models"
)

// Provider is an interface for delivering one-time codes and notices to an
// email address
type Provider interface {
	SendOTP(email, code string, purpose models.Purpose) error
	SendMail(email, subject, body string) error
}

// purposeSubjects maps a challenge purpose to the subject line of its code email
var purposeSubjects = map[models.Purpose]string{
	models.PurposeSignupVerify:   "Confirm your signup",
	models.PurposeResetPassword:  "Reset your password",
	models.PurposeChangePassword: "Confirm your password change",
	models.PurposeChangeEmail:    "Confirm your new email address",
	models.PurposeEmailVerify:    "Verify your email address",
}

// APIMailer implements Provider over a transactional email HTTP API
type APIMailer struct {
	APIKey   string
	Endpoint string
	Sender   string
}

// NewAPIMailer creates a mailer backed by the configured HTTP API
func NewAPIMailer(apiKey, endpoint, sender string) *APIMailer {
	if endpoint == "" {
		endpoint = "https://api.mailchannels.net/tx/v1/send"
	}
	if sender == "" {
		sender = "no-reply@verify.local"
	}
	return &APIMailer{APIKey: apiKey, Endpoint: endpoint, Sender: sender}
}

// SendOTP sends a one-time code email for the given purpose
func (m *APIMailer) SendOTP(email, code string, purpose models.Purpose) error {
	subject, ok := purposeSubjects[purpose]
	if !ok {
		subject = "Your verification code"
	}
	body := fmt.Sprintf("Your verification code is %s. Valid for 5 minutes. Do not share this code with anyone.", code)
	return m.SendMail(email, subject, body)
}

// SendMail sends a single email message
func (m *APIMailer) SendMail(email, subject, body string) error {
	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": email}}},
		},
		"from":    map[string]string{"email": m.Sender},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/plain", "value": body},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequest("POST", m.Endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.APIKey)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// MockMailer implements Provider for development; codes are only printed to
// the server log
type MockMailer struct{}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) SendOTP(email, code string, purpose models.Purpose) error {
	log.Printf("[MockMail] OTP for %s (%s): %s", email, purpose, code)
	return nil
}

func (m *MockMailer) SendMail(email, subject, body string) error {
	log.Printf("[MockMail] To: %s | %s | %s", email, subject, body)
	return nil
}
