package auth

import (
	"testing"

	"verify-backend/internal/config"
	"verify-backend/internal/models"
)

func testManager(secret string) *JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	cfg.JWT.ExpirationHours = 24
	cfg.JWT.Issuer = "verify-backend"
	return NewJWTManager(cfg)
}

func testAccount() *models.Account {
	return &models.Account{
		ID:            42,
		Email:         "staff@example.com",
		Role:          models.RoleStaff,
		EmailVerified: true,
		IsActive:      true,
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := testManager("test-secret")
	account := testAccount()

	token, err := m.GenerateToken(account)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Errorf("AccountID = %d, want %d", claims.AccountID, account.ID)
	}
	if claims.Email != account.Email {
		t.Errorf("Email = %q, want %q", claims.Email, account.Email)
	}
	if claims.Role != models.RoleStaff {
		t.Errorf("Role = %q, want %q", claims.Role, models.RoleStaff)
	}
	if !claims.EmailVerified || !claims.IsActive {
		t.Errorf("EmailVerified/IsActive = %v/%v, want true/true", claims.EmailVerified, claims.IsActive)
	}
}

func TestSessionTokenWrongSecret(t *testing.T) {
	token, err := testManager("secret-a").GenerateToken(testAccount())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := testManager("secret-b").ValidateToken(token); err == nil {
		t.Error("expected validation to fail with a different secret")
	}
}

func TestSessionTokenGarbage(t *testing.T) {
	m := testManager("test-secret")
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.ValidateToken(tok); err == nil {
			t.Errorf("ValidateToken(%q) succeeded, want error", tok)
		}
	}
}

func TestMFATokenRoundTrip(t *testing.T) {
	m := testManager("test-secret")
	account := testAccount()

	token, err := m.GenerateMFAToken(account)
	if err != nil {
		t.Fatalf("GenerateMFAToken: %v", err)
	}

	claims, err := m.ValidateMFAToken(token)
	if err != nil {
		t.Fatalf("ValidateMFAToken: %v", err)
	}
	if claims.AccountID != account.ID {
		t.Errorf("AccountID = %d, want %d", claims.AccountID, account.ID)
	}
	if claims.Type != "mfa_pending" {
		t.Errorf("Type = %q, want %q", claims.Type, "mfa_pending")
	}
}

func TestMFATokenRejectsSessionToken(t *testing.T) {
	m := testManager("test-secret")

	// A full session token must not pass as a pending-MFA token
	token, err := m.GenerateToken(testAccount())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateMFAToken(token); err == nil {
		t.Error("session token accepted as MFA token")
	}
}

func TestSessionTokenRejectsMFAToken(t *testing.T) {
	m := testManager("test-secret")

	// A pending-MFA token is issued after the password step alone; accepting
	// it as a session token would skip the second factor entirely
	token, err := m.GenerateMFAToken(testAccount())
	if err != nil {
		t.Fatalf("GenerateMFAToken: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("pending-MFA token accepted as session token")
	}
}
