package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/timeslot-scheduler/internal/testfixtures"
)

func newAuthService(t *testing.T, sessions *testfixtures.MemorySessionRepository, clock *testfixtures.Clock) *AuthService {
	t.Helper()
	hash, err := HashPassword("correct horse", testArgon2idParams)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	gen := testfixtures.NewIDGenerator("token")
	return NewAuthService(sessions, "admin@example.com", hash, gen.NextFunc(), clock.NowFunc(), time.Hour, nil)
}

func TestAuthenticateIssuesSession(t *testing.T) {
	sessions := testfixtures.NewMemorySessionRepository()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	svc := newAuthService(t, sessions, clock)

	session, err := svc.Authenticate(context.Background(), "Admin@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.Token == "" {
		t.Fatal("session without a token")
	}
	if !session.ExpiresAt.Equal(testfixtures.ReferenceTime().Add(time.Hour)) {
		t.Fatalf("expires_at = %v", session.ExpiresAt)
	}

	principal, err := svc.ValidateSession(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if !principal.IsAdmin {
		t.Fatal("issued session must grant the administrator principal")
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	sessions := testfixtures.NewMemorySessionRepository()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	svc := newAuthService(t, sessions, clock)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong email", "other@example.com", "correct horse"},
		{"wrong password", "admin@example.com", "battery staple"},
		{"both wrong", "other@example.com", "battery staple"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Authenticate(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestValidateSessionExpiry(t *testing.T) {
	sessions := testfixtures.NewMemorySessionRepository()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	svc := newAuthService(t, sessions, clock)

	session, err := svc.Authenticate(context.Background(), "admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := svc.ValidateSession(context.Background(), session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestValidateSessionUnknownToken(t *testing.T) {
	sessions := testfixtures.NewMemorySessionRepository()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	svc := newAuthService(t, sessions, clock)

	if _, err := svc.ValidateSession(context.Background(), "no-such-token"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	sessions := testfixtures.NewMemorySessionRepository()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	svc := newAuthService(t, sessions, clock)

	session, err := svc.Authenticate(context.Background(), "admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := svc.RevokeSession(context.Background(), session.Token); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), session.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("revoked token should be unauthorized, got %v", err)
	}
	// Revoking again is a no-op.
	if err := svc.RevokeSession(context.Background(), session.Token); err != nil {
		t.Fatalf("revoking an unknown token should succeed, got %v", err)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	sessions := testfixtures.NewMemorySessionRepository()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	svc := newAuthService(t, sessions, clock)

	stale, err := svc.Authenticate(context.Background(), "admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	clock.Advance(2 * time.Hour)
	fresh, err := svc.Authenticate(context.Background(), "admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if err := svc.PurgeExpiredSessions(context.Background()); err != nil {
		t.Fatalf("PurgeExpiredSessions: %v", err)
	}

	if _, err := svc.ValidateSession(context.Background(), stale.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stale token should be gone, got %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), fresh.Token); err != nil {
		t.Fatalf("fresh token should survive the purge, got %v", err)
	}
}
