// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User represents an account on the hosted database.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session represents an active user session.
type Session struct {
	Token     string
	UserID    uuid.UUID
	UserAgent string
	IP        string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UserRepository defines the port for user persistence operations.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, email, passwordHash string) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, userID uuid.UUID, token, userAgent, ip string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context) error
}

// Identity resolves the currently signed-in user. Remote writes capture it
// when they are queued; ok is false when nobody is signed in.
type Identity interface {
	CurrentUserID(ctx context.Context) (id uuid.UUID, ok bool)
}

// StaticIdentity is an Identity fixed at construction, used by the CLI.
type StaticIdentity uuid.UUID

// CurrentUserID implements Identity. The zero UUID means signed out.
func (s StaticIdentity) CurrentUserID(context.Context) (uuid.UUID, bool) {
	id := uuid.UUID(s)
	return id, id != uuid.Nil
}
