// Package admin holds the operator-facing operations: credential checks with a lockout
// and the plan override.
package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/BoostACart/internal/pkg/metrics"
)

const (
	DefaultMaxAttempts = 5
	DefaultLockout     = 15 * time.Minute
)

var (
	// ErrInvalidCredentials is matched by every InvalidCredentialsError.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotConfigured is returned when no admin password hash is set.
	ErrNotConfigured = errors.New("admin login is not configured")
)

// InvalidCredentialsError reports a failed login and the attempts left before lockout.
type InvalidCredentialsError struct {
	Remaining int
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("%s (%d attempts remaining)", ErrInvalidCredentials, e.Remaining)
}

func (e *InvalidCredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}

// LockedError is returned while a client key is locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// Config holds the operator credentials and lockout policy.
type Config struct {
	Username     string
	PasswordHash string
	MaxAttempts  int
	Lockout      time.Duration
}

// Authenticator checks operator credentials.
type Authenticator struct {
	cfg      Config
	attempts AttemptStore
}

// NewAuthenticator creates an authenticator, filling zero policy values with defaults.
func NewAuthenticator(cfg Config, attempts AttemptStore) *Authenticator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = DefaultLockout
	}
	if attempts == nil {
		attempts = NewMemoryAttemptStore(nil)
	}
	return &Authenticator{cfg: cfg, attempts: attempts}
}

// Login verifies username and password for the client identified by clientKey.
func (a *Authenticator) Login(ctx context.Context, clientKey, username, password string) error {
	if a.cfg.PasswordHash == "" {
		return ErrNotConfigured
	}

	failures, ttl, err := a.attempts.Failures(ctx, clientKey)
	if err != nil {
		return fmt.Errorf("read login attempts: %w", err)
	}
	if failures >= int64(a.cfg.MaxAttempts) {
		metrics.AdminLoginAttempts.WithLabelValues("locked").Inc()
		return &LockedError{RetryAfter: ttl}
	}

	if a.verify(username, password) {
		if err := a.attempts.Reset(ctx, clientKey); err != nil {
			log.Warnf("[Admin] Failed to reset login attempts for %s: %v", clientKey, err)
		}
		metrics.AdminLoginAttempts.WithLabelValues("success").Inc()
		log.Infof("[Admin] Operator %s logged in from %s", username, clientKey)
		return nil
	}

	n, err := a.attempts.Fail(ctx, clientKey, a.cfg.Lockout)
	if err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	if n >= int64(a.cfg.MaxAttempts) {
		if err := a.attempts.Lock(ctx, clientKey, a.cfg.Lockout); err != nil {
			return fmt.Errorf("lock client: %w", err)
		}
		metrics.AdminLoginAttempts.WithLabelValues("locked").Inc()
		log.Warnf("[Admin] Locked out %s after %d failed attempts", clientKey, n)
		return &LockedError{RetryAfter: a.cfg.Lockout}
	}

	metrics.AdminLoginAttempts.WithLabelValues("failure").Inc()
	return &InvalidCredentialsError{Remaining: a.cfg.MaxAttempts - int(n)}
}

func (a *Authenticator) verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.Username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(a.cfg.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}

// HashPassword returns the bcrypt hash to put into ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}
