package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Session is one issued signaling credential. The subject and display name
// come from the identity provider; the session id is embedded in the JWT
// handed to the client.
type Session struct {
	ID        string
	Subject   string
	Name      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore handles credential-session persistence.
type SessionStore interface {
	// CreateSession persists a newly issued session.
	CreateSession(ctx context.Context, s *Session) error

	// GetSession retrieves a session by id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions removes sessions that expired before now and
	// reports how many were deleted.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	SessionStore

	// Close closes the underlying database connection.
	Close() error
}
