package auth

import (
	"errors"
	"time"

	"verify-backend/internal/config"
	"verify-backend/internal/models"
	"verify-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	AccountID     int    `json:"account_id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
	IsActive      bool   `json:"is_active"`
	Type          string `json:"type"` // "session"
	jwt.RegisteredClaims
}

type JWTManager struct {
	cfg *config.Config
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{cfg: cfg}
}

// GenerateToken creates a new session token for an account
func (j *JWTManager) GenerateToken(account *models.Account) (string, error) {
	now := timeutil.Now()
	expirationTime := now.Add(time.Duration(j.cfg.JWT.ExpirationHours) * time.Hour)

	claims := &Claims{
		AccountID:     account.ID,
		Email:         account.Email,
		Role:          account.Role,
		EmailVerified: account.EmailVerified,
		IsActive:      account.IsActive,
		Type:          "session",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.cfg.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

// ValidateToken verifies a session token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	// A pending-MFA token must never authenticate a request on its own;
	// only fully-resolved session tokens carry the session type.
	if claims.Type != "session" {
		return nil, errors.New("invalid token type")
	}

	return claims, nil
}

// MFAClaims for short-lived pending-MFA tokens issued between the password
// step and the second-factor step. The token is the whole challenge state;
// the server keeps nothing in memory between the two requests.
type MFAClaims struct {
	AccountID int    `json:"account_id"`
	Email     string `json:"email"`
	Type      string `json:"type"` // "mfa_pending"
	jwt.RegisteredClaims
}

// GenerateMFAToken creates a short-lived token for the second-factor step (5 minutes)
func (j *JWTManager) GenerateMFAToken(account *models.Account) (string, error) {
	now := timeutil.Now()
	expirationTime := now.Add(5 * time.Minute)

	claims := &MFAClaims{
		AccountID: account.ID,
		Email:     account.Email,
		Type:      "mfa_pending",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.cfg.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

// ValidateMFAToken verifies a pending-MFA token and returns the claims
func (j *JWTManager) ValidateMFAToken(tokenString string) (*MFAClaims, error) {
	claims := &MFAClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Type != "mfa_pending" {
		return nil, errors.New("invalid token type")
	}

	return claims, nil
}
