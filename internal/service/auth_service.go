package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campusdesk/api/internal/audit"
	"campusdesk/api/internal/config"
	"campusdesk/api/internal/ids"
	"campusdesk/api/internal/models"
	"campusdesk/api/internal/repository"
	"campusdesk/api/internal/security"
)

var (
	// ErrInvalidCredentials is returned for unknown usernames and wrong
	// passwords alike; callers must not be able to tell the cases apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated means no live session resolved for the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrInvalidInput = errors.New("invalid input")
)

// UserStore is the credential store contract. Create returns
// repository.ErrDuplicateUsername on a username collision; lookups return
// repository.ErrUserNotFound when no row matches.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
	UpdateProfile(ctx context.Context, id string, displayName string, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// SessionStore is the session persistence contract. Lookups return
// repository.ErrSessionNotFound when no row matches.
type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuthService struct {
	users    UserStore
	sessions SessionStore
	recorder *audit.Recorder
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	recorder *audit.Recorder,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type CreateUserInput struct {
	Username    string
	DisplayName string
	Password    string
	Role        models.UserRole
}

// CreateUser registers a new portal account. Usernames are case-sensitive
// and never normalized.
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (models.User, error) {
	if strings.TrimSpace(input.Username) == "" || input.Password == "" {
		return models.User{}, fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}
	if !input.Role.Valid() {
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, input.Role)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Username:     input.Username,
		DisplayName:  input.DisplayName,
		PasswordHash: passwordHash,
		Role:         input.Role,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// VerifyCredentials checks a username/password pair. The unknown-username
// path burns a fake KDF derivation so its latency matches the
// wrong-password path.
func (s *AuthService) VerifyCredentials(ctx context.Context, username string, password string) (models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			security.FakeVerify(password)
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// Login establishes a session for a verified credential pair. Successful
// logins are forwarded to the audit trail.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (models.Session, models.User, error) {
	user, err := s.VerifyCredentials(ctx, input.Username, input.Password)
	if err != nil {
		return models.Session{}, models.User{}, err
	}

	sessionID, err := security.GenerateToken()
	if err != nil {
		return models.Session{}, models.User{}, err
	}
	csrfToken, err := security.GenerateToken()
	if err != nil {
		return models.Session{}, models.User{}, err
	}

	session := models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		CSRFToken: csrfToken,
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
		ExpiresAt: s.now().Add(s.cfg.Security.SessionTTL),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return models.Session{}, models.User{}, err
	}

	s.recorder.Record(ctx, models.AuditEntry{
		ActorUserID:   user.ID,
		ActorUsername: user.Username,
		Action:        "login",
		ResourceType:  "session",
		ClientIP:      input.IPAddress,
		UserAgent:     input.UserAgent,
		Outcome:       models.AuditOutcomeSuccess,
	})

	return session, user, nil
}

// Resolve maps a session identifier back to its user. The user row is
// re-fetched on every call so role changes and deletions take effect on
// the very next request; a deleted user invalidates the session lazily.
func (s *AuthService) Resolve(ctx context.Context, sessionID string) (models.User, models.Session, error) {
	if sessionID == "" {
		return models.User{}, models.Session{}, ErrUnauthenticated
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.User{}, models.Session{}, ErrUnauthenticated
		}
		return models.User{}, models.Session{}, err
	}

	if session.Expired(s.now()) {
		_ = s.sessions.Delete(ctx, session.ID)
		return models.User{}, models.Session{}, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = s.sessions.Delete(ctx, session.ID)
			return models.User{}, models.Session{}, ErrUnauthenticated
		}
		return models.User{}, models.Session{}, err
	}

	return user, session, nil
}

// Logout destroys the session. Resolving the identifier afterwards fails
// exactly like an unknown session.
func (s *AuthService) Logout(ctx context.Context, user models.User, session models.Session) error {
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			return err
		}
	}

	s.recorder.Record(ctx, models.AuditEntry{
		ActorUserID:   user.ID,
		ActorUsername: user.Username,
		Action:        "logout",
		ResourceType:  "session",
		ClientIP:      session.IPAddress,
		UserAgent:     session.UserAgent,
		Outcome:       models.AuditOutcomeSuccess,
	})
	return nil
}

// InvalidateAllSessions empties the session store. Route wiring gates this
// behind manage_system and records it through the audit middleware.
func (s *AuthService) InvalidateAllSessions(ctx context.Context, actor models.User) (int64, error) {
	count, err := s.sessions.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}

	s.log.Warn().Int64("count", count).Str("actor", actor.Username).Msg("all sessions invalidated")
	return count, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

func (s *AuthService) UpdateUserRole(ctx context.Context, id string, role models.UserRole) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	// No session invalidation needed: Resolve re-fetches the user, so the
	// new role applies on the next request.
	return s.users.UpdateRole(ctx, id, role)
}

type UpdateProfileInput struct {
	DisplayName string
	Password    string
}

// UpdateUserProfile changes a user's display name and/or password. Empty
// fields keep their current value. Existing sessions stay valid across a
// password change; only future logins are affected.
func (s *AuthService) UpdateUserProfile(ctx context.Context, id string, input UpdateProfileInput) error {
	if input.DisplayName == "" && input.Password == "" {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	var passwordHash string
	if input.Password != "" {
		hash, err := security.HashPassword(input.Password)
		if err != nil {
			return err
		}
		passwordHash = hash
	}

	return s.users.UpdateProfile(ctx, id, input.DisplayName, passwordHash)
}

func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	// Sessions referencing the deleted user die lazily in Resolve.
	return s.users.Delete(ctx, id)
}

func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.PurgeExpired(ctx, s.now())
}
