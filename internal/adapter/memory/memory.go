// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"healthlog/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	kv       map[string][]byte
	users    []*domain.User
	sessions map[string]*domain.Session
	remote   map[uuid.UUID]*remoteUser
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		kv:       make(map[string][]byte),
		sessions: make(map[string]*domain.Session),
		remote:   make(map[uuid.UUID]*remoteUser),
	}
}

// Ensure interfaces are met.
var _ domain.KeyValueStore = (*DB)(nil)
var _ domain.UserRepository = (*UserRepo)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.RemoteRepository = (*Remote)(nil)

// --- KeyValueStore ---

// Get returns a copy of the value stored under key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	v, ok := db.kv[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value under key.
func (db *DB) Put(ctx context.Context, key string, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.kv[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key. Missing keys are not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.kv, key)
	return nil
}

// --- UserRepository ---

// UserRepo implements user persistence.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new user repository.
func (db *DB) NewUserRepo() *UserRepo {
	return &UserRepo{db: db}
}

// GetByEmail retrieves a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return nil, errors.New("user already exists")
		}
	}

	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.db.users = append(r.db.users, u)
	return u, nil
}

// Delete removes a user together with its sessions and remote rows.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i, u := range r.db.users {
		if u.ID == id {
			r.db.users = append(r.db.users[:i], r.db.users[i+1:]...)
			break
		}
	}
	for k, s := range r.db.sessions {
		if s.UserID == id {
			delete(r.db.sessions, k)
		}
	}
	delete(r.db.remote, id)
	return nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID uuid.UUID, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		if time.Now().After(s.ExpiresAt) {
			delete(r.db.sessions, token)
			return nil, nil
		}
		return s, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteForUser deletes every session of a user.
func (r *SessionRepo) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, s := range r.db.sessions {
		if s.UserID == userID {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
