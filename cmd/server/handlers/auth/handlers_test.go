package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"inkpad/cmd/server/ctxkeys"
	"inkpad/cmd/server/testutil"
	"inkpad/internal/services/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	registerEndpoint = "/api/v1/auth/register"
	loginEndpoint    = "/api/v1/auth/login"
	profileEndpoint  = "/api/v1/auth/profile"
	rateLimitIP      = "192.168.1.1"
	testUsername     = "inkfan42"
	testEmail        = "test@example.com"
	testPassword     = "Password123"
)

// MockAuthService mocks the auth service
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Profile(ctx context.Context, userID bson.ObjectID) (*auth.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

// AuthTestSetup contains common test setup data
type AuthTestSetup struct {
	MockService *MockAuthService
	App         *fiber.App
	TestUser    *auth.User
	TestToken   string
}

// SetupAuthTest creates a common auth test setup
func SetupAuthTest(t *testing.T) *AuthTestSetup {
	t.Helper()

	mockService := &MockAuthService{}
	app := testutil.CreateTestApp(t)
	validator := testutil.CreateTestValidator(t)

	h := NewHandlers(mockService, validator)

	v1 := app.Group("/api/v1")
	authGrp := v1.Group("/auth")

	// Rate limiter on login only, mirroring the real router
	rateLimiter := testutil.CreateRateLimiter(2, 1*time.Minute)

	jwtSecret := "test-secret-with-32-plus-characters"
	jwtMW := testutil.SetupJWTMiddleware(jwtSecret)

	authGrp.Post("/register", h.Register)
	authGrp.Post("/login", rateLimiter, h.Login)
	authGrp.Get("/profile", jwtMW, h.Profile)

	now := time.Now().UTC()
	testUser := &auth.User{
		ID:        bson.NewObjectID(),
		Username:  testUsername,
		Email:     testEmail,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return &AuthTestSetup{
		MockService: mockService,
		App:         app,
		TestUser:    testUser,
		TestToken:   "mock-jwt-token",
	}
}

func TestAuthHandlersTableDriven(t *testing.T) {
	testCases := []struct {
		name           string
		endpoint       string
		body           map[string]string
		setupMock      func(*MockAuthService, *auth.User, string)
		expectedStatus int
	}{
		{
			name:     "Register_Success",
			endpoint: registerEndpoint,
			body: map[string]string{
				"username": testUsername,
				"email":    testEmail,
				"password": testPassword,
			},
			setupMock: func(m *MockAuthService, user *auth.User, token string) {
				expected := &auth.AuthResponse{User: user, Token: token}
				m.On("Register", mock.Anything, auth.RegisterRequest{
					Username: testUsername,
					Email:    testEmail,
					Password: testPassword,
				}).Return(expected, nil).Once()
			},
			expectedStatus: 201,
		},
		{
			name:     "Register_Duplicate",
			endpoint: registerEndpoint,
			body: map[string]string{
				"username": testUsername,
				"email":    testEmail,
				"password": testPassword,
			},
			setupMock: func(m *MockAuthService, user *auth.User, token string) {
				m.On("Register", mock.Anything, auth.RegisterRequest{
					Username: testUsername,
					Email:    testEmail,
					Password: testPassword,
				}).Return(nil, errors.New("registration failed")).Once()
			},
			expectedStatus: 400,
		},
		{
			name:     "Register_WeakPassword",
			endpoint: registerEndpoint,
			body: map[string]string{
				"username": testUsername,
				"email":    testEmail,
				"password": "short",
			},
			setupMock:      func(m *MockAuthService, user *auth.User, token string) {},
			expectedStatus: 400,
		},
		{
			name:     "Login_Success",
			endpoint: loginEndpoint,
			body: map[string]string{
				"email":    testEmail,
				"password": testPassword,
			},
			setupMock: func(m *MockAuthService, user *auth.User, token string) {
				expected := &auth.AuthResponse{User: user, Token: token}
				m.On("Login", mock.Anything, auth.LoginRequest{
					Email:    testEmail,
					Password: testPassword,
				}).Return(expected, nil).Once()
			},
			expectedStatus: 200,
		},
		{
			name:     "Login_BadCredentials",
			endpoint: loginEndpoint,
			body: map[string]string{
				"email":    testEmail,
				"password": testPassword,
			},
			setupMock: func(m *MockAuthService, user *auth.User, token string) {
				m.On("Login", mock.Anything, auth.LoginRequest{
					Email:    testEmail,
					Password: testPassword,
				}).Return(nil, auth.ErrInvalidCredentials).Once()
			},
			expectedStatus: 401,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setup := SetupAuthTest(t)
			tc.setupMock(setup.MockService, setup.TestUser, setup.TestToken)

			req := testutil.CreateJSONRequest("POST", tc.endpoint, tc.body)
			resp, err := setup.App.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)

			if tc.expectedStatus < 400 {
				var got auth.AuthResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
				assert.Equal(t, setup.TestUser.Email, got.User.Email)
				assert.Equal(t, setup.TestToken, got.Token)
			}

			setup.MockService.AssertExpectations(t)
		})
	}
}

func TestProfileRequiresToken(t *testing.T) {
	setup := SetupAuthTest(t)

	req := testutil.CreateJSONRequest("GET", profileEndpoint, nil)
	resp, err := setup.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	setup.MockService.AssertExpectations(t)
}

func TestProfileHappyPath(t *testing.T) {
	setup := SetupAuthTest(t)

	jwtSecret := "test-secret-with-32-plus-characters"
	token, err := testutil.CreateTestJWT(setup.TestUser.ID.Hex(), testEmail, []byte(jwtSecret), time.Hour)
	require.NoError(t, err)

	setup.MockService.On("Profile", mock.Anything, setup.TestUser.ID).
		Return(setup.TestUser, nil).Once()

	req := testutil.CreateAuthenticatedRequest("GET", profileEndpoint, nil, token)
	resp, err := setup.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got struct {
		User *auth.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, testUsername, got.User.Username)
	assert.Equal(t, testEmail, got.User.Email)

	setup.MockService.AssertExpectations(t)
}

func TestJWTMiddlewareStoresClaims(t *testing.T) {
	app := testutil.CreateTestApp(t)

	jwtSecret := "test-secret-with-32-plus-characters"
	jwtMW := testutil.SetupJWTMiddleware(jwtSecret)

	app.Get("/api/v1/whoami", jwtMW, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"uid":   c.Locals(ctxkeys.UserIDKey),
			"email": c.Locals(ctxkeys.UserEmailKey),
		})
	})

	userID := "60d5ecb74b24c4f9b8c2b1a1"
	token, err := testutil.CreateTestJWT(userID, testEmail, []byte(jwtSecret), time.Hour)
	require.NoError(t, err)

	req := testutil.CreateAuthenticatedRequest("GET", "/api/v1/whoami", nil, token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, userID, got["uid"])
	assert.Equal(t, testEmail, got["email"])
}

func makeTestRequestForRateLimit(setup *AuthTestSetup, body map[string]string) (resp *http.Response, err error) {
	req := testutil.CreateJSONRequest("POST", loginEndpoint, body)
	req.Header.Set("X-Forwarded-For", rateLimitIP) // fixed IP for rate limiter
	resp, err = setup.App.Test(req, -1)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func TestLoginRateLimit(t *testing.T) {
	setup := SetupAuthTest(t)

	expected := &auth.AuthResponse{User: setup.TestUser, Token: setup.TestToken}
	setup.MockService.On("Login", mock.Anything, auth.LoginRequest{
		Email:    testEmail,
		Password: testPassword,
	}).Return(expected, nil).Times(2)

	body := map[string]string{
		"email":    testEmail,
		"password": testPassword,
	}

	// First request should succeed
	resp1, err := makeTestRequestForRateLimit(setup, body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp1.StatusCode)

	// Second request should succeed
	resp2, err := makeTestRequestForRateLimit(setup, body)
	require.NoError(t, err)
	assert.Equal(t, 200, resp2.StatusCode)

	// Third request should be rate limited
	resp3, err := makeTestRequestForRateLimit(setup, body)
	require.NoError(t, err)
	assert.Equal(t, 429, resp3.StatusCode)

	setup.MockService.AssertExpectations(t)
}
