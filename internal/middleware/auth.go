package middleware

import (
	"context"
	"net/http"
	"strings"

	"verify-backend/internal/auth"
	"verify-backend/internal/models"
	"verify-backend/internal/repositories"
)

type contextKey string

const AccountKey contextKey = "account"

type AuthMiddleware struct {
	jwtManager  *auth.JWTManager
	accountRepo *repositories.AccountRepository
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, accountRepo *repositories.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:  jwtManager,
		accountRepo: accountRepo,
	}
}

// authenticate validates the bearer token and loads the account from the
// database so role changes and deactivation take effect immediately.
func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return nil, false
	}

	account, err := m.accountRepo.Get(r.Context(), claims.AccountID)
	if err != nil {
		http.Error(w, "Account not found", http.StatusUnauthorized)
		return nil, false
	}
	if !account.IsActive {
		http.Error(w, "Account suspended. Please contact support.", http.StatusForbidden)
		return nil, false
	}

	return account, true
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		ctx := context.WithValue(r.Context(), AccountKey, account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole ensures the authenticated account has one of the allowed roles
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			hasRole := false
			for _, role := range allowedRoles {
				if account.Role == role {
					hasRole = true
					break
				}
			}
			if !hasRole {
				http.Error(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff allows staff and admin roles
func (m *AuthMiddleware) RequireStaff(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleStaff, models.RoleAdmin)(next)
}

// RequireAdmin ensures the account has admin role
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(models.RoleAdmin)(next)
}

// AccountFromContext extracts the authenticated account from request context
func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	account, ok := ctx.Value(AccountKey).(*models.Account)
	return account, ok
}
