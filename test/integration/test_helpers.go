//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-users-api/internal/config"
	"go-users-api/internal/handler"
	"go-users-api/internal/metrics"
	"go-users-api/internal/middleware"
	"go-users-api/internal/model"
	"go-users-api/internal/repository"
	"go-users-api/internal/router"
	"go-users-api/internal/security"
	"go-users-api/internal/service"
)

const testPassword = "Password123!"

type testServer struct {
	*httptest.Server
	users *service.UserService
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
	Meta    *model.Meta     `json:"meta"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		ServerPort:           "8080",
		RequestTimeout:       5 * time.Second,
		StoreDriver:          config.StoreDriverMemory,
		JWTSecret:            "test-secret",
		JWTIssuer:            "go-users-api",
		JWTAccessTTL:         15 * time.Minute,
		JWTRefreshTTL:        24 * time.Hour,
		PasswordHasher:       config.HasherArgon2id,
		RefreshCookieName:    "token",
		RefreshCookiePath:    "/api/v1/auth",
		OwnershipBypassRoles: []model.Role{model.RoleAdmin},
		CORSOrigins:          []string{"*"},
		RateLimitRPM:         1000,
		AuthRateLimitRPM:     1000,
	}
	require.NoError(t, cfg.Validate())

	userStore := repository.NewMemoryUserStore()
	issuer, err := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	require.NoError(t, err)

	appMetrics := metrics.New()
	hasher := security.NewArgon2idHasher(security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	authService := service.NewAuthService(userStore, repository.NewMemoryTokenStore(), hasher, issuer)
	authService.SetMetrics(appMetrics)
	userService := service.NewUserService(userStore, authService)
	auditService := service.NewAuditService(repository.NewMemoryAuditStore())

	handlers := router.Handlers{
		Auth: handler.NewAuthHandler(authService, userService, auditService, handler.RefreshCookie{
			Name: cfg.RefreshCookieName,
			Path: cfg.RefreshCookiePath,
		}),
		User:   handler.NewUserHandler(userService, auditService),
		Audit:  handler.NewAuditHandler(auditService),
		Health: handler.NewHealthHandler(nil),
	}

	authMiddleware := middleware.NewAuthMiddleware(issuer, cfg.OwnershipBypassRoles...)
	server := httptest.NewServer(router.New(cfg, authMiddleware, handlers, appMetrics))
	t.Cleanup(server.Close)

	return &testServer{Server: server, users: userService}
}

// newClient returns a client with its own cookie jar, standing in for one browser.
func newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func (s *testServer) do(t *testing.T, client *http.Client, method string, path string, body any, accessToken string) (*http.Response, envelope) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = raw
	}

	req, err := http.NewRequest(method, s.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed envelope
	if resp.StatusCode != http.StatusNoContent && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	}

	return resp, parsed
}

func (s *testServer) signup(t *testing.T, nickname string) model.PublicUser {
	t.Helper()

	resp, body := s.do(t, http.DefaultClient, http.MethodPost, "/api/v1/auth/signup", model.SignupRequest{
		Nickname:  nickname,
		Password:  testPassword,
		FirstName: "Test",
		LastName:  "User",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var data model.SignupResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	return data.User
}

func (s *testServer) login(t *testing.T, client *http.Client, nickname string) string {
	t.Helper()

	resp, body := s.do(t, client, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{Nickname: nickname, Password: testPassword}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data model.LoginResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken
}

func refreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
