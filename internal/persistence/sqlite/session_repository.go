package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/timeslot-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository on SQLite.
type SessionRepository struct {
	pool *ConnectionPool
	loc  *time.Location
}

// NewSessionRepository creates a session repository that interprets stored
// timestamps in the given location.
func NewSessionRepository(pool *ConnectionPool, loc *time.Location) *SessionRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionRepository{pool: pool, loc: loc}
}

func (r *SessionRepository) queries() slotQueries {
	return slotQueries{exec: r.pool.DB(), loc: r.loc}
}

// CreateSession stores a new session token.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.Token == "" {
		return persistence.ErrConstraintViolation
	}

	q := r.queries()
	_, err := r.pool.DB().ExecContext(ctx,
		"INSERT INTO sessions (token, expires_at, created_at) VALUES (?, ?, ?)",
		session.Token,
		q.encode(session.ExpiresAt),
		q.encode(session.CreatedAt),
	)
	return mapError(err)
}

// GetSession retrieves a session by its token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	q := r.queries()
	var session persistence.Session
	var expiresStr, createdStr string

	err := r.pool.DB().QueryRowContext(ctx,
		"SELECT token, expires_at, created_at FROM sessions WHERE token = ?", token,
	).Scan(&session.Token, &expiresStr, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, mapError(err)
	}

	if session.ExpiresAt, err = q.decode(expiresStr); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = q.decode(createdStr); err != nil {
		return persistence.Session{}, err
	}

	return session, nil
}

// DeleteSession removes a session token.
func (r *SessionRepository) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteExpiredSessions removes every session expiring at or before reference.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	q := r.queries()
	_, err := r.pool.DB().ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", q.encode(reference))
	return mapError(err)
}
