package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scrawl/internal/config"
	"scrawl/internal/models"
	"scrawl/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newAuthTestApp(userRepo *MockUserRepository) *fiber.App {
	s := &Server{
		config:      &config.Config{JWTSecret: "test-secret-key-that-is-long-enough!"},
		userRepo:    userRepo,
		userService: service.NewUserService(userRepo),
	}

	app := fiber.New()
	app.Post("/auth/register", s.Register)
	app.Post("/auth/login", s.Login)
	app.Get("/auth/me", fakeAuth(1), s.Me)
	return app
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(*MockUserRepository)
		expectedStatus int
	}{
		{
			name: "Success",
			body: map[string]string{
				"username": "newuser",
				"email":    "new@example.com",
				"password": "Password123",
			},
			mockSetup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, nil)
				m.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing fields",
			body:           map[string]string{"username": "newuser"},
			mockSetup:      func(*MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Weak password",
			body: map[string]string{
				"username": "newuser",
				"email":    "new@example.com",
				"password": "password",
			},
			mockSetup:      func(*MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Duplicate email",
			body: map[string]string{
				"username": "newuser",
				"email":    "taken@example.com",
				"password": "Password123",
			},
			mockSetup: func(m *MockUserRepository) {
				m.On("GetByEmail", mock.Anything, "taken@example.com").
					Return(&models.User{ID: 2, Email: "taken@example.com"}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := new(MockUserRepository)
			tt.mockSetup(userRepo)
			app := newAuthTestApp(userRepo)

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/auth/register", tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				body := decodeBody(t, resp)
				assert.NotEmpty(t, body["token"])
			}
			userRepo.AssertExpectations(t)
		})
	}
}

func TestLogin(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &models.User{ID: 1, Username: "alice", Email: "alice@example.com", Password: string(hashed)}

	t.Run("success", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)
		app := newAuthTestApp(userRepo)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "Password123",
		}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(stored, nil)
		app := newAuthTestApp(userRepo)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "WrongPassword1",
		}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown email", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)
		app := newAuthTestApp(userRepo)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "ghost@example.com",
			"password": "Password123",
		}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestMe(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).
		Return(&models.User{ID: 1, Username: "alice"}, nil)
	app := newAuthTestApp(userRepo)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "alice", user["username"])
}
