package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/timeslot-scheduler/internal/persistence"
)

// AuthService authenticates the configured administrator and manages
// session tokens.
type AuthService struct {
	sessions       persistence.SessionRepository
	adminEmail     string
	adminPassHash  string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService wires dependencies for administrator authentication.
func NewAuthService(sessions persistence.SessionRepository, adminEmail, adminPasswordHash string, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		sessions:       sessions,
		adminEmail:     strings.ToLower(strings.TrimSpace(adminEmail)),
		adminPassHash:  adminPasswordHash,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

// Authenticate verifies the administrator credential and issues a session.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (Session, error) {
	if s == nil || s.sessions == nil {
		return Session{}, fmt.Errorf("AuthService is not configured")
	}

	logger := serviceLogger(ctx, s.logger, "auth", "authenticate")

	supplied := strings.ToLower(strings.TrimSpace(email))
	emailMatches := subtle.ConstantTimeCompare([]byte(supplied), []byte(s.adminEmail)) == 1

	// Always run password verification so a wrong email costs the same as a
	// wrong password.
	passErr := VerifyPassword(s.adminPassHash, password)
	if !emailMatches || passErr != nil {
		logger.WarnContext(ctx, "authentication rejected")
		return Session{}, ErrInvalidCredentials
	}

	now := s.now()
	session := persistence.Session{
		Token:     s.tokenGenerator(),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return Session{}, &StorageError{Err: err}
	}

	logger.InfoContext(ctx, "administrator session issued", "expires_at", session.ExpiresAt)
	return Session{Token: session.Token, ExpiresAt: session.ExpiresAt}, nil
}

// ValidateSession resolves a token to the administrator principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.sessions == nil {
		return Principal{}, fmt.Errorf("AuthService is not configured")
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, &StorageError{Err: err}
	}

	if !session.ExpiresAt.After(s.now()) {
		return Principal{}, ErrSessionExpired
	}

	return Principal{IsAdmin: true}, nil
}

// RevokeSession deletes a session token. Revoking an unknown token is not an
// error.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("AuthService is not configured")
	}

	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return &StorageError{Err: err}
	}
	return nil
}

// PurgeExpiredSessions removes sessions whose expiry has passed.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) error {
	if s == nil || s.sessions == nil {
		return fmt.Errorf("AuthService is not configured")
	}
	return s.sessions.DeleteExpiredSessions(ctx, s.now())
}
