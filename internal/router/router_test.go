package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-user-management/config"
	"github.com/oksasatya/go-user-management/internal/infrastructure/memory"
	"github.com/oksasatya/go-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-user-management/pkg/helpers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

type userJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.AppName = "user-management"
	cfg.StoreDriver = config.StoreMemory
	cfg.HTTPLogEnabled = false
	cfg.CORSAllowedOrigins = ""
	cfg.DebugMetricsEnabled = true
	return cfg
}

func newServer(t *testing.T, cfg *config.Config, rdb *redis.Client) *testServer {
	t.Helper()
	jwt, err := helpers.NewJWTManager("router-test-secret", 15*time.Minute)
	require.NoError(t, err)

	engine := New(Deps{
		Config:  cfg,
		Logger:  helpers.NewDiscardLogger(),
		Repo:    memory.NewUserRepository(),
		Hasher:  helpers.NewPasswordHasher(bcrypt.MinCost),
		Tokens:  jwt,
		Cookies: helpers.NewCookie(cfg.AuthCookieName, "", false),
		Redis:   rdb,
	})
	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(method, path string, body any, token string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: helpers.DefaultTokenCookie, Value: token})
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func tokenCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == helpers.DefaultTokenCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", helpers.DefaultTokenCookie)
	return nil
}

func (s *testServer) signUp(name, email, role string) (userJSON, string) {
	s.t.Helper()
	body := map[string]any{"name": name, "email": email, "password": "secret123"}
	if role != "" {
		body["role"] = role
	}
	w, env := s.do(http.MethodPost, "/api/auth/sign-up", body, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var u userJSON
	require.NoError(s.t, json.Unmarshal(env.Data, &u))
	return u, tokenCookie(s.t, w).Value
}

func TestHealthAndBanner(t *testing.T) {
	s := newServer(t, testConfig(), nil)

	w, _ := s.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var h map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "ok", h["status"])
	assert.Contains(t, h, "uptime")

	w, _ = s.do(http.MethodGet, "/api", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-management running")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSignUp(t *testing.T) {
	s := newServer(t, testConfig(), nil)

	w, env := s.do(http.MethodPost, "/api/auth/sign-up", map[string]any{
		"name": "Alice Smith", "email": "Alice@Example.com", "password": "secret123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "User registered", env.Message)

	var u userJSON
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "user", u.Role)
	assert.Empty(t, u.Password)
	assert.NotContains(t, w.Body.String(), "password")

	c := tokenCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Greater(t, c.MaxAge, 0)

	w, env = s.do(http.MethodPost, "/api/auth/sign-up", map[string]any{
		"name": "Alice Again", "email": "alice@example.com", "password": "another1",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already exists", env.Message)
}

func TestSignUp_Validation(t *testing.T) {
	s := newServer(t, testConfig(), nil)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"empty body", nil, "email"},
		{"short name", map[string]any{"name": "Al", "email": "a@b.co", "password": "secret123"}, "name"},
		{"bad email", map[string]any{"name": "Alice Smith", "email": "nope", "password": "secret123"}, "email"},
		{"short password", map[string]any{"name": "Alice Smith", "email": "a@b.co", "password": "123"}, "password"},
		{"bad role", map[string]any{"name": "Alice Smith", "email": "a@b.co", "password": "secret123", "role": "root"}, "role"},
		{"malformed json", `{"name":`, "payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(http.MethodPost, "/api/auth/sign-up", tt.body, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Validation failed", env.Message)

			var details map[string]string
			require.NoError(t, json.Unmarshal(env.Error, &details))
			assert.Contains(t, details, tt.field)
		})
	}
}

func TestSignIn(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	s.signUp("Alice Smith", "alice@example.com", "")

	w, env := s.do(http.MethodPost, "/api/auth/sign-in", map[string]any{"email": "ghost@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", env.Message)

	w, env = s.do(http.MethodPost, "/api/auth/sign-in", map[string]any{"email": "alice@example.com", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", env.Message)

	w, env = s.do(http.MethodPost, "/api/auth/sign-in", map[string]any{"email": "ALICE@example.com", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User signed in successfully", env.Message)
	tok := tokenCookie(t, w).Value

	w, _ = s.do(http.MethodGet, "/api/users", nil, tok)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignOut_ClearsCookie(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	w, env := s.do(http.MethodPost, "/api/auth/sign-out", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User signed out successfully", env.Message)

	c := tokenCookie(t, w)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

func TestUsers_RequireToken(t *testing.T) {
	s := newServer(t, testConfig(), nil)

	w, env := s.do(http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication token is required", env.Message)

	w, env = s.do(http.MethodGet, "/api/users", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid or expired token", env.Message)
}

func TestUsers_ReadEndpoints(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	alice, tok := s.signUp("Alice Smith", "alice@example.com", "")
	s.signUp("Bobby Jones", "bob@example.com", "")

	w, env := s.do(http.MethodGet, "/api/users", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, env.Meta["count"])
	assert.NotContains(t, w.Body.String(), "password")

	w, env = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", alice.ID), nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	var got userJSON
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "alice@example.com", got.Email)

	w, env = s.do(http.MethodGet, "/api/users/999", nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", env.Message)

	for _, bad := range []string{"abc", "0", "-3", "1.5"} {
		w, env = s.do(http.MethodGet, "/api/users/"+bad, nil, tok)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Equal(t, "Validation failed", env.Message, bad)
	}
}

func TestUsers_UpdatePolicy(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	alice, aliceTok := s.signUp("Alice Smith", "alice@example.com", "")
	bob, _ := s.signUp("Bobby Jones", "bob@example.com", "")
	_, adminTok := s.signUp("Admin Person", "admin@example.com", "admin")

	path := func(id int64) string { return fmt.Sprintf("/api/users/%d", id) }

	w, env := s.do(http.MethodPut, path(alice.ID), map[string]any{"name": "Alice Cooper"}, aliceTok)
	require.Equal(t, http.StatusOK, w.Code)
	var u userJSON
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "Alice Cooper", u.Name)

	w, env = s.do(http.MethodPut, path(bob.ID), map[string]any{"name": "Not Bob At All"}, aliceTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden: you may only act on your own profile", env.Message)

	w, env = s.do(http.MethodPut, path(alice.ID), map[string]any{"role": "admin"}, aliceTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden: only admins can change roles", env.Message)

	w, env = s.do(http.MethodPut, path(alice.ID), map[string]any{"email": "bob@example.com"}, aliceTok)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already exists", env.Message)

	w, env = s.do(http.MethodPut, path(bob.ID), map[string]any{"role": "admin"}, adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "admin", u.Role)

	w, _ = s.do(http.MethodPut, path(999), map[string]any{"name": "Nobody Here"}, adminTok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodPut, path(alice.ID), map[string]any{"name": "Al"}, aliceTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", env.Message)
}

func TestUsers_StaleTokenKeepsOldRole(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	bob, bobTok := s.signUp("Bobby Jones", "bob@example.com", "")
	_, adminTok := s.signUp("Admin Person", "admin@example.com", "admin")
	other, _ := s.signUp("Other Person", "other@example.com", "")

	w, _ := s.do(http.MethodPut, fmt.Sprintf("/api/users/%d", bob.ID), map[string]any{"role": "admin"}, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	// bob's token was minted while he was a user.
	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", other.ID), nil, bobTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUsers_Delete(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	alice, aliceTok := s.signUp("Alice Smith", "alice@example.com", "")
	bob, bobTok := s.signUp("Bobby Jones", "bob@example.com", "")
	_, adminTok := s.signUp("Admin Person", "admin@example.com", "admin")

	w, env := s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), nil, aliceTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden: you may only act on your own profile", env.Message)

	w, env = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", bob.ID), nil, bobTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User deleted successfully", env.Message)

	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", alice.ID), nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, fmt.Sprintf("/api/users/%d", alice.ID), nil, adminTok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/users/%d", alice.ID), nil, adminTok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch_WithoutIndexReturnsEmpty(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	_, tok := s.signUp("Alice Smith", "alice@example.com", "")

	w, env := s.do(http.MethodGet, "/api/search/users?q=alice", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, env.Meta["count"])
}

func TestDebugVars_AdminOnly(t *testing.T) {
	s := newServer(t, testConfig(), nil)
	_, userTok := s.signUp("Alice Smith", "alice@example.com", "")
	_, adminTok := s.signUp("Admin Person", "admin@example.com", "admin")

	w, _ := s.do(http.MethodGet, "/api/debug/vars", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(http.MethodGet, "/api/debug/vars", nil, userTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, middleware.MsgAdminRequired, env.Message)

	w, _ = s.do(http.MethodGet, "/api/debug/vars", nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "auth_sign_ups")
}

func TestDebugVars_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.DebugMetricsEnabled = false
	s := newServer(t, cfg, nil)
	_, adminTok := s.signUp("Admin Person", "admin@example.com", "admin")

	w, _ := s.do(http.MethodGet, "/api/debug/vars", nil, adminTok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimits(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitWindow = time.Minute
	cfg.RateLimitAuthPerIP = 3
	cfg.RateLimitUser = 2
	s := newServer(t, cfg, rdb)

	_, tok := s.signUp("Alice Smith", "alice@example.com", "")

	// sign-up used one of three sign-up slots; sign-in has its own bucket.
	for i := 0; i < 3; i++ {
		w, _ := s.do(http.MethodPost, "/api/auth/sign-in", map[string]any{"email": "alice@example.com", "password": "secret123"}, "")
		require.Equal(t, http.StatusOK, w.Code, "sign-in %d", i+1)
	}
	w, env := s.do(http.MethodPost, "/api/auth/sign-in", map[string]any{"email": "alice@example.com", "password": "secret123"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, middleware.MsgRateLimited, env.Message)

	for i := 0; i < 2; i++ {
		w, _ = s.do(http.MethodGet, "/api/users", nil, tok)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	w, _ = s.do(http.MethodGet, "/api/users", nil, tok)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// unauthenticated requests fail at the gate before the limiter counts them
	w, _ = s.do(http.MethodGet, "/api/users", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInitModules_Order(t *testing.T) {
	jwt, err := helpers.NewJWTManager("router-test-secret", time.Minute)
	require.NoError(t, err)
	deps := func(cfg *config.Config) Deps {
		return Deps{
			Config:  cfg,
			Logger:  helpers.NewDiscardLogger(),
			Repo:    memory.NewUserRepository(),
			Hasher:  helpers.NewPasswordHasher(bcrypt.MinCost),
			Tokens:  jwt,
			Cookies: helpers.NewCookie("token", "", false),
		}
	}

	reg := NewRegistry(gin.New(), nil)
	InitModules(reg, deps(testConfig()))
	assert.Equal(t, []string{"auth", "user", "debug"}, reg.Modules())

	cfg := testConfig()
	cfg.DebugMetricsEnabled = false
	reg = NewRegistry(gin.New(), nil)
	InitModules(reg, deps(cfg))
	assert.Equal(t, []string{"auth", "user"}, reg.Modules())
}
