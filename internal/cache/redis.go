package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"verify-backend/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Key formats
const (
	CooldownKeyFmt = "otp:cooldown:%s:%s" // email, purpose
	TokenKeyFmt    = "otp:token:%s"       // token value
)

// ReissuedTokenTTL bounds how long a carried-forward token stays redeemable.
const ReissuedTokenTTL = 10 * time.Minute

// ErrUnavailable is returned for operations that cannot degrade gracefully
// when Redis is down. Verification tokens are single-use and need the shared
// store; the cooldown mirror just falls back to the database counters.
var ErrUnavailable = errors.New("redis unavailable")

var client *redis.Client

// Init initializes the Redis connection
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// ============================================
// Cooldown Mirror
// ============================================

func cooldownKey(email string, purpose models.Purpose) string {
	return fmt.Sprintf(CooldownKeyFmt, email, purpose)
}

// SetCooldown records a resend cooldown for an (email, purpose) pair. The key
// TTL is the remaining cooldown, so expiry and gate-open coincide.
func SetCooldown(ctx context.Context, email string, purpose models.Purpose, seconds int) {
	if client == nil || seconds <= 0 {
		return
	}
	client.Set(ctx, cooldownKey(email, purpose), 1, time.Duration(seconds)*time.Second)
}

// CooldownRemaining returns the seconds left on a cooldown, or 0 if none is
// active (or Redis is down; the database counters are authoritative then).
func CooldownRemaining(ctx context.Context, email string, purpose models.Purpose) int {
	if client == nil {
		return 0
	}
	ttl, err := client.TTL(ctx, cooldownKey(email, purpose)).Result()
	if err != nil || ttl <= 0 {
		return 0
	}
	return int(ttl.Round(time.Second).Seconds())
}

// ============================================
// Verification Tokens
// ============================================

// StoreVerificationToken binds a freshly issued token to the (email, purpose)
// it proves, with a TTL. Single-use: ConsumeVerificationToken deletes it
// atomically on first presentation.
func StoreVerificationToken(ctx context.Context, token, email string, purpose models.Purpose, ttl time.Duration) error {
	if client == nil {
		return ErrUnavailable
	}
	value := string(purpose) + "|" + email
	return client.Set(ctx, fmt.Sprintf(TokenKeyFmt, token), value, ttl).Err()
}

// ConsumeVerificationToken atomically fetches and burns a token, returning the
// email and purpose it was bound to. A second call with the same token fails.
func ConsumeVerificationToken(ctx context.Context, token string) (email string, purpose models.Purpose, err error) {
	if client == nil {
		return "", "", ErrUnavailable
	}
	value, err := client.GetDel(ctx, fmt.Sprintf(TokenKeyFmt, token)).Result()
	if err == redis.Nil {
		return "", "", errors.New("verification token is invalid, expired, or already used")
	}
	if err != nil {
		return "", "", err
	}
	for i := 0; i < len(value); i++ {
		if value[i] == '|' {
			return value[i+1:], models.Purpose(value[:i]), nil
		}
	}
	return "", "", errors.New("malformed verification token record")
}

// ReissueVerificationToken mints a fresh token for an (email, purpose) pair
// whose previous token was just consumed. Used when a verified step hands a
// credential forward to a follow-up form.
func ReissueVerificationToken(ctx context.Context, email string, purpose models.Purpose) (string, error) {
	if client == nil {
		return "", ErrUnavailable
	}
	token := uuid.NewString()
	if err := StoreVerificationToken(ctx, token, email, purpose, ReissuedTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// ============================================
// Generic Cache Functions
// ============================================

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
