package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusdesk/api/internal/audit"
	"campusdesk/api/internal/config"
	"campusdesk/api/internal/middleware"
	"campusdesk/api/internal/models"
	"campusdesk/api/internal/ratelimit"
	"campusdesk/api/internal/repository"
	"campusdesk/api/internal/service"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (s *memUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (s *memUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (s *memUserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *memUserStore) UpdateRole(_ context.Context, id string, role models.UserRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.Role = role
	s.users[id] = user
	return nil
}

func (s *memUserStore) UpdateProfile(_ context.Context, id string, displayName string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if displayName != "" {
		user.DisplayName = displayName
	}
	if passwordHash != "" {
		user.PasswordHash = passwordHash
	}
	s.users[id] = user
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
}

func (s *memSessionStore) Create(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *memSessionStore) GetByID(_ context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return session, nil
}

func (s *memSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *memSessionStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := int64(len(s.sessions))
	s.sessions = make(map[string]models.Session)
	return count, nil
}

func (s *memSessionStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// memTrail backs both the recorder (Append) and the admin listing (List).
type memTrail struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (s *memTrail) Append(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memTrail) List(_ context.Context, limit int, offset int) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset >= len(s.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	out := make([]models.AuditEntry, end-offset)
	copy(out, s.entries[offset:end])
	return out, nil
}

func (s *memTrail) byAction(action string) []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditEntry
	for _, entry := range s.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

type portal struct {
	engine *gin.Engine
	svc    *service.AuthService
	trail  *memTrail
	cfg    *config.AppConfig
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			SessionTTL:        24 * time.Hour,
			SessionCookieName: "campusdesk_session",
		},
		RateLimit: config.RateLimitConfig{
			Auth: config.RatePolicyConfig{Max: 5, Window: 15 * time.Minute},
			API:  config.RatePolicyConfig{Max: 100, Window: 15 * time.Minute},
		},
	}

	users := &memUserStore{users: make(map[string]models.User)}
	sessions := &memSessionStore{sessions: make(map[string]models.Session)}
	trail := &memTrail{}
	recorder := audit.NewRecorder(trail, zerolog.Nop())
	svc := service.NewAuthService(users, sessions, recorder, cfg, zerolog.Nop())
	limiter := ratelimit.New(ratelimit.NewMemoryStore())

	handlerSet := NewHandlerSet(zerolog.Nop(), cfg, svc, recorder, trail, limiter, nil, nil)

	engine := gin.New()
	handlerSet.Register(engine.Group("/api"))

	return &portal{engine: engine, svc: svc, trail: trail, cfg: cfg}
}

func (p *portal) createUser(t *testing.T, username, password string, role models.UserRole) models.User {
	t.Helper()
	user, err := p.svc.CreateUser(context.Background(), service.CreateUserInput{
		Username:    username,
		DisplayName: username,
		Password:    password,
		Role:        role,
	})
	require.NoError(t, err)
	return user
}

func (p *portal) do(t *testing.T, method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, fn := range mutate {
		fn(req)
	}

	resp := httptest.NewRecorder()
	p.engine.ServeHTTP(resp, req)
	return resp
}

type clientSession struct {
	cookie *http.Cookie
	csrf   string
}

func (s clientSession) apply(req *http.Request) {
	req.AddCookie(s.cookie)
	req.Header.Set(middleware.CSRFHeader, s.csrf)
}

func (s clientSession) cookieOnly(req *http.Request) {
	req.AddCookie(s.cookie)
}

func (p *portal) login(t *testing.T, username, password string) clientSession {
	t.Helper()

	resp := p.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var payload struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.CSRFToken)

	var cookie *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == p.cfg.Security.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	return clientSession{cookie: cookie, csrf: payload.CSRFToken}
}

func TestLoginGatedEndpointLogoutScenario(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "alice", "admin-pass-12345", models.UserRoleAdmin)

	sess := p.login(t, "alice", "admin-pass-12345")

	resp := p.do(t, http.MethodPost, "/api/v1/students/import", gin.H{"rows": 3}, sess.apply)
	assert.Equal(t, http.StatusAccepted, resp.Code)

	resp = p.do(t, http.MethodPost, "/api/v1/auth/logout", nil, sess.apply)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = p.do(t, http.MethodPost, "/api/v1/students/import", gin.H{"rows": 3}, sess.apply)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "alice", "good-password-123", models.UserRoleTPO)

	resp := p.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "alice",
		"password": "bad-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = p.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "who",
		"password": "bad-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = p.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMeRequiresSession(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "alice", "me-password-1234", models.UserRoleTPO)

	resp := p.do(t, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	sess := p.login(t, "alice", "me-password-1234")
	resp = p.do(t, http.MethodGet, "/api/v1/auth/me", nil, sess.cookieOnly)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), sess.csrf)
}

func TestCSRFGuard(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "officer", "csrf-password-12", models.UserRoleTPO)
	sess := p.login(t, "officer", "csrf-password-12")

	// Missing token.
	resp := p.do(t, http.MethodPost, "/api/v1/students/import", gin.H{}, sess.cookieOnly)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_CSRF_TOKEN")

	// Empty token.
	resp = p.do(t, http.MethodPost, "/api/v1/students/import", gin.H{}, func(req *http.Request) {
		sess.cookieOnly(req)
		req.Header.Set(middleware.CSRFHeader, "")
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Mismatched token.
	resp = p.do(t, http.MethodPost, "/api/v1/students/import", gin.H{}, func(req *http.Request) {
		sess.cookieOnly(req)
		req.Header.Set(middleware.CSRFHeader, "not-the-token")
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Correct token.
	resp = p.do(t, http.MethodPost, "/api/v1/students/import", gin.H{}, sess.apply)
	assert.Equal(t, http.StatusAccepted, resp.Code)

	// Read-only endpoints stay exempt.
	resp = p.do(t, http.MethodGet, "/api/v1/reports/placements", nil, sess.cookieOnly)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestForbiddenAttemptIsAudited(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "alice", "tpo-password-123", models.UserRoleTPO)
	sess := p.login(t, "alice", "tpo-password-123")

	resp := p.do(t, http.MethodPost, "/api/v1/admin/sessions/invalidate", nil, sess.apply)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	entries := p.trail.byAction("invalidate_sessions")
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].ActorUsername)
	assert.Equal(t, models.AuditOutcomeFailure, entries[0].Outcome)
}

func TestAuthRateLimitOnLogin(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "alice", "limited-pass-123", models.UserRoleTPO)

	for i := 0; i < 5; i++ {
		resp := p.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
			"username": "alice",
			"password": "wrong-password",
		})
		require.Equal(t, http.StatusUnauthorized, resp.Code, "attempt %d", i+1)
	}

	// The sixth attempt is denied even with the correct password.
	resp := p.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"username": "alice",
		"password": "limited-pass-123",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))
	assert.Contains(t, resp.Body.String(), "retryAfterSeconds")
}

func TestAdminUserManagement(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "root", "admin-password-1", models.UserRoleAdmin)
	sess := p.login(t, "root", "admin-password-1")

	resp := p.do(t, http.MethodPost, "/api/v1/admin/users", gin.H{
		"username":    "newbie",
		"displayName": "New Officer",
		"password":    "newbie-pass-1234",
		"role":        "tpo",
	}, sess.apply)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	// Duplicate username is a distinct, non-generic failure.
	resp = p.do(t, http.MethodPost, "/api/v1/admin/users", gin.H{
		"username": "newbie",
		"password": "other-pass-12345",
		"role":     "tpo",
	}, sess.apply)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = p.do(t, http.MethodGet, "/api/v1/admin/users", nil, sess.cookieOnly)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "newbie")
	assert.NotContains(t, resp.Body.String(), "newbie-pass-1234")

	// The create was audited with the password redacted.
	entries := p.trail.byAction("create_user")
	require.NotEmpty(t, entries)
	assert.NotContains(t, entries[0].Details, "newbie-pass-1234")
	assert.Contains(t, entries[0].Details, audit.RedactionMarker)
}

func TestAdminEndpointsForbiddenForTPO(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "officer", "tpo-password-999", models.UserRoleTPO)
	sess := p.login(t, "officer", "tpo-password-999")

	resp := p.do(t, http.MethodGet, "/api/v1/admin/users", nil, sess.cookieOnly)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = p.do(t, http.MethodGet, "/api/v1/admin/audit", nil, sess.cookieOnly)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestInvalidateSessionsEndpoint(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "root", "admin-password-2", models.UserRoleAdmin)
	p.createUser(t, "officer", "tpo-password-222", models.UserRoleTPO)

	adminSess := p.login(t, "root", "admin-password-2")
	tpoSess := p.login(t, "officer", "tpo-password-222")

	resp := p.do(t, http.MethodPost, "/api/v1/admin/sessions/invalidate", nil, adminSess.apply)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"invalidated":2`)

	// Everyone is signed out, the caller included.
	resp = p.do(t, http.MethodGet, "/api/v1/auth/me", nil, tpoSess.cookieOnly)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	resp = p.do(t, http.MethodGet, "/api/v1/auth/me", nil, adminSess.cookieOnly)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRoleChangeAppliesWithoutRelogin(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "root", "admin-password-3", models.UserRoleAdmin)
	officer := p.createUser(t, "officer", "tpo-password-333", models.UserRoleTPO)

	adminSess := p.login(t, "root", "admin-password-3")
	officerSess := p.login(t, "officer", "tpo-password-333")

	resp := p.do(t, http.MethodGet, "/api/v1/admin/users", nil, officerSess.cookieOnly)
	require.Equal(t, http.StatusForbidden, resp.Code)

	resp = p.do(t, http.MethodPut, "/api/v1/admin/users/"+officer.ID+"/role",
		gin.H{"role": "admin"}, adminSess.apply)
	require.Equal(t, http.StatusNoContent, resp.Code)

	// Same session, new role: re-fetch on resolve makes it effective now.
	resp = p.do(t, http.MethodGet, "/api/v1/admin/users", nil, officerSess.cookieOnly)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestDeletedUserSessionDiesLazily(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "root", "admin-password-4", models.UserRoleAdmin)
	officer := p.createUser(t, "officer", "tpo-password-444", models.UserRoleTPO)

	adminSess := p.login(t, "root", "admin-password-4")
	officerSess := p.login(t, "officer", "tpo-password-444")

	resp := p.do(t, http.MethodDelete, "/api/v1/admin/users/"+officer.ID, nil, adminSess.apply)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = p.do(t, http.MethodGet, "/api/v1/auth/me", nil, officerSess.cookieOnly)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminAuditListing(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "root", "admin-password-5", models.UserRoleAdmin)
	sess := p.login(t, "root", "admin-password-5")

	resp := p.do(t, http.MethodPost, "/api/v1/students/import", gin.H{"rows": 1}, sess.apply)
	require.Equal(t, http.StatusAccepted, resp.Code)

	resp = p.do(t, http.MethodGet, "/api/v1/admin/audit?perPage=10", nil, sess.cookieOnly)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "import_students")
	assert.Contains(t, resp.Body.String(), "login")
}

func TestHealthEndpointIsPublic(t *testing.T) {
	p := newPortal(t)

	resp := p.do(t, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "disabled")
}

func TestAdminUpdateUserProfile(t *testing.T) {
	p := newPortal(t)
	p.createUser(t, "root", "admin-password-6", models.UserRoleAdmin)
	officer := p.createUser(t, "officer", "first-pass-12345", models.UserRoleTPO)
	sess := p.login(t, "root", "admin-password-6")

	resp := p.do(t, http.MethodPut, "/api/v1/admin/users/"+officer.ID, gin.H{
		"displayName": "Placement Officer",
		"password":    "second-pass-6789",
	}, sess.apply)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	// The new password works for the next login.
	p.login(t, "officer", "second-pass-6789")

	// An empty update and an unknown user are distinct failures.
	resp = p.do(t, http.MethodPut, "/api/v1/admin/users/"+officer.ID, gin.H{}, sess.apply)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = p.do(t, http.MethodPut, "/api/v1/admin/users/nope", gin.H{"displayName": "x"}, sess.apply)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// The change is audited and the new password never reaches the trail.
	entries := p.trail.byAction("update_user_profile")
	require.NotEmpty(t, entries)
	assert.Equal(t, officer.ID, entries[0].ResourceID)
	assert.NotContains(t, entries[0].Details, "second-pass-6789")
	assert.Contains(t, entries[0].Details, audit.RedactionMarker)
}
