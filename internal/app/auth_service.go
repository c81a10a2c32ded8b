// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"healthlog/internal/domain"
)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken indicates that an account with the email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAccountInUse indicates that another account holds the local store.
	ErrAccountInUse = errors.New("another account is signed in")
)

// SessionTTL is how long a sign-in stays valid.
const SessionTTL = 24 * time.Hour

// SignInFunc runs after a user signs in; SignOutFunc after the last sign-out.
type (
	SignInFunc  func(ctx context.Context, user *domain.User)
	SignOutFunc func(ctx context.Context)
)

// AuthService handles authentication and session management. It also
// tracks the signed-in user and serves as the Identity for remote sync.
// There is one local store per process, so one account holds it at a time:
// a second account is refused until the holder signs out or its sign-in
// lapses.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository

	mu        sync.RWMutex
	current   uuid.UUID
	heldUntil time.Time
	onSignIn  SignInFunc
	onSignOut SignOutFunc
}

var _ domain.Identity = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
	}
}

// OnSignIn installs the hook run after every successful sign-in.
func (s *AuthService) OnSignIn(fn SignInFunc) {
	s.mu.Lock()
	s.onSignIn = fn
	s.mu.Unlock()
}

// OnSignOut installs the hook run after the signed-in user signs out.
func (s *AuthService) OnSignOut(fn SignOutFunc) {
	s.mu.Lock()
	s.onSignOut = fn
	s.mu.Unlock()
}

// CurrentUserID implements domain.Identity.
func (s *AuthService) CurrentUserID(context.Context) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != uuid.Nil
}

// signedIn makes user the sync identity until the given time. It fails with
// ErrAccountInUse while another account's hold is still live.
func (s *AuthService) signedIn(ctx context.Context, user *domain.User, until time.Time) error {
	s.mu.Lock()
	changed := s.current != user.ID
	if changed && s.current != uuid.Nil && time.Now().Before(s.heldUntil) {
		s.mu.Unlock()
		return ErrAccountInUse
	}
	s.current = user.ID
	if changed || until.After(s.heldUntil) {
		s.heldUntil = until
	}
	fn := s.onSignIn
	s.mu.Unlock()
	if changed && fn != nil {
		fn(ctx, user)
	}
	return nil
}

// SignUp creates an account with a bcrypt password hash.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, email, string(hash))
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (string, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || user == nil || user.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.startSession(ctx, user, userAgent, ip)
}

// Logout invalidates a session. When it belonged to the signed-in user, the
// sign-out hook runs so local data is cleared.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, _ := s.sessions.GetByToken(ctx, token)
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	if session != nil {
		s.signOut(ctx, session.UserID)
	}
	return nil
}

func (s *AuthService) signOut(ctx context.Context, userID uuid.UUID) {
	s.mu.Lock()
	if s.current != userID {
		s.mu.Unlock()
		return
	}
	s.current = uuid.Nil
	s.heldUntil = time.Time{}
	fn := s.onSignOut
	s.mu.Unlock()
	if fn != nil {
		fn(ctx)
	}
}

// ValidateSession checks if a session token is valid and matches the user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	if session.UserAgent != userAgent {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}

	// A valid session after a restart re-establishes the sync identity.
	if err := s.signedIn(ctx, user, session.ExpiresAt); err != nil {
		return nil, err
	}
	return user, nil
}

// ValidateForwardAuth validates a request from Authelia forward auth.
// It checks for the Remote-User header set by Authelia.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	if remoteUser == "" {
		return nil, errors.New("no remote user header")
	}

	user, err := s.provision(ctx, remoteUser)
	if err != nil {
		return nil, err
	}
	if err := s.signedIn(ctx, user, time.Now().Add(SessionTTL)); err != nil {
		return nil, err
	}
	return user, nil
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, email, userAgent, ip string) (string, error) {
	user, err := s.provision(ctx, email)
	if err != nil {
		return "", err
	}
	return s.startSession(ctx, user, userAgent, ip)
}

// startSession creates a session for user and makes it the sync identity.
// The session is dropped again when another account holds the store.
func (s *AuthService) startSession(ctx context.Context, user *domain.User, userAgent, ip string) (string, error) {
	token, expiresAt, err := s.createSession(ctx, user, userAgent, ip)
	if err != nil {
		return "", err
	}
	if err := s.signedIn(ctx, user, expiresAt); err != nil {
		_ = s.sessions.Delete(ctx, token)
		return "", err
	}
	return token, nil
}

// provision returns the user for email, creating a passwordless account for
// identities vouched for by an SSO provider.
func (s *AuthService) provision(ctx context.Context, email string) (*domain.User, error) {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil && user != nil {
		return user, nil
	}
	user, err = s.users.Create(ctx, email, "")
	if err != nil {
		// Try getting again if creation failed due to race (e.g. unique constraint)
		user, err = s.users.GetByEmail(ctx, email)
		if err != nil || user == nil {
			return nil, ErrUserNotFound
		}
	}
	return user, nil
}

// DeleteAccount purges userID's remote data through purge, deletes the
// account and all of its sessions, and signs the user out.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, purge func(context.Context, uuid.UUID) bool) error {
	if purge != nil {
		purge(ctx, userID)
	}
	if err := s.sessions.DeleteForUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	s.signOut(ctx, userID)
	return nil
}

func (s *AuthService) createSession(ctx context.Context, user *domain.User, userAgent, ip string) (string, time.Time, error) {
	token, err := generateToken()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(SessionTTL)
	if err := s.sessions.Create(ctx, user.ID, token, userAgent, ip, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
