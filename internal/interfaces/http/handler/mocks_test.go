package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opshub/backend/internal/domain/identity"
	"github.com/opshub/backend/internal/domain/integration"
	"github.com/opshub/backend/internal/infrastructure/scheduler"
	"github.com/opshub/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context) ([]*identity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, id uuid.UUID, update identity.UserUpdate) (*identity.User, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

// MockIntegrationRepository is a mock implementation of integration.Repository
type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) ListIntegrations(ctx context.Context, userID uuid.UUID) ([]*integration.Integration, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) GetIntegration(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) CreateIntegration(ctx context.Context, integ *integration.Integration) error {
	args := m.Called(ctx, integ)
	return args.Error(0)
}

func (m *MockIntegrationRepository) UpdateIntegration(ctx context.Context, id uuid.UUID, update integration.Update) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

// MockEncrypter is a mock CredentialEncrypter
type MockEncrypter struct {
	mock.Mock
}

func (m *MockEncrypter) EncryptCredentials(creds integration.Credentials) (string, error) {
	args := m.Called(creds)
	return args.String(0), args.Error(1)
}

// MockDispatcher is a mock SyncDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Sync(ctx context.Context, integ *integration.Integration) (*integration.SyncResult, error) {
	args := m.Called(ctx, integ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.SyncResult), args.Error(1)
}

// MockJobRunner is a mock JobRunner
type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) Jobs() []scheduler.JobInfo {
	args := m.Called()
	return args.Get(0).([]scheduler.JobInfo)
}

func (m *MockJobRunner) RunNow(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPinger is a mock Pinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope and decodes its data into out when out is non-nil
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *dto.ErrorInfo  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return dto.Response{Success: raw.Success, Error: raw.Error}
}

func mustClient(t *testing.T, email, name string) *identity.User {
	t.Helper()
	u, err := identity.NewClient(email, name)
	require.NoError(t, err)
	return u
}
