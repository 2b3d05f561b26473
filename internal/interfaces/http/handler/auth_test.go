package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/shared"
	"github.com/opshub/backend/internal/infrastructure/auth"
	"github.com/opshub/backend/internal/interfaces/http/dto"
	"github.com/opshub/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-battery"

type authFixture struct {
	users       *MockUserRepository
	sessions    *auth.SessionService
	revocations *auth.MemoryRevocations
	router      *gin.Engine
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	sessions, err := auth.NewSessionService("test-secret-key-32-characters-long", time.Hour)
	require.NoError(t, err)

	f := &authFixture{
		users:       new(MockUserRepository),
		sessions:    sessions,
		revocations: auth.NewMemoryRevocations(),
	}
	h := NewAuthHandler(f.users, sessions, f.revocations, true)

	f.router = gin.New()
	f.router.POST("/auth/login", h.Login)
	authed := f.router.Group("/auth")
	authed.Use(middleware.SessionAuth(middleware.SessionConfig{Sessions: sessions, Revocations: f.revocations}))
	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)
	return f
}

func mustAdmin(t *testing.T) *identity.User {
	t.Helper()
	u, err := identity.NewAdmin("admin@hub.test", testPassword)
	require.NoError(t, err)
	return u
}

func sessionCookie(w interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Login(t *testing.T) {
	f := newAuthFixture(t)
	admin := mustAdmin(t)
	f.users.On("GetUserByEmail", mock.Anything, "admin@hub.test").Return(admin, nil)

	w := serve(f.router, jsonRequest(t, http.MethodPost, "/auth/login", dto.LoginRequest{
		Email:    "admin@hub.test",
		Password: testPassword,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp dto.LoginResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, admin.ID, resp.User.ID)
	assert.Equal(t, "admin", resp.User.Role)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, resp.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)

	claims, err := f.sessions.Validate(resp.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestAuthHandler_LoginRejected(t *testing.T) {
	admin := mustAdmin(t)
	inactive := mustAdmin(t)
	inactive.Email = "gone@hub.test"
	inactive.Deactivate()

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(*MockUserRepository)
		status   int
	}{
		{
			name:     "wrong password",
			email:    "admin@hub.test",
			password: "not-the-password",
			setup: func(m *MockUserRepository) {
				m.On("GetUserByEmail", mock.Anything, "admin@hub.test").Return(admin, nil)
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "unknown email",
			email:    "nobody@hub.test",
			password: testPassword,
			setup: func(m *MockUserRepository) {
				m.On("GetUserByEmail", mock.Anything, "nobody@hub.test").Return(nil, shared.ErrNotFound)
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "deactivated account",
			email:    "gone@hub.test",
			password: testPassword,
			setup: func(m *MockUserRepository) {
				m.On("GetUserByEmail", mock.Anything, "gone@hub.test").Return(inactive, nil)
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "invalid body",
			email:    "not-an-email",
			password: testPassword,
			setup:    func(m *MockUserRepository) {},
			status:   http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tt.setup(f.users)

			w := serve(f.router, jsonRequest(t, http.MethodPost, "/auth/login", dto.LoginRequest{
				Email:    tt.email,
				Password: tt.password,
			}))
			assert.Equal(t, tt.status, w.Code)
			assert.Nil(t, sessionCookie(w))
		})
	}
}

func TestAuthHandler_LogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	admin := mustAdmin(t)
	session, err := f.sessions.Issue(admin)
	require.NoError(t, err)

	req := jsonRequest(t, http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session.Token})
	w := serve(f.router, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	cleared := sessionCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	claims, err := f.sessions.Validate(session.Token)
	require.NoError(t, err)
	revoked, err := f.revocations.IsRevoked(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	req = jsonRequest(t, http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: session.Token})
	assert.Equal(t, http.StatusUnauthorized, serve(f.router, req).Code)
}

func TestAuthHandler_Me(t *testing.T) {
	f := newAuthFixture(t)
	admin := mustAdmin(t)
	f.users.On("GetUser", mock.Anything, admin.ID).Return(admin, nil)
	session, err := f.sessions.Issue(admin)
	require.NoError(t, err)

	req := jsonRequest(t, http.MethodGet, "/auth/me", nil)
	req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+session.Token)
	w := serve(f.router, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ClientResponse
	decode(t, w, &resp)
	assert.Equal(t, "admin@hub.test", resp.Email)
}
