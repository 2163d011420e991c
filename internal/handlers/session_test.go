package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	sessioncookie "github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-sessionguard/sessionguard/internal/cache"
	"github.com/go-sessionguard/sessionguard/internal/cookies"
	"github.com/go-sessionguard/sessionguard/internal/csrf"
	"github.com/go-sessionguard/sessionguard/internal/metrics"
	"github.com/go-sessionguard/sessionguard/internal/middleware"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/revocation"
	"github.com/go-sessionguard/sessionguard/internal/services"
	"github.com/go-sessionguard/sessionguard/internal/store"
	"github.com/go-sessionguard/sessionguard/internal/token"
	"github.com/go-sessionguard/sessionguard/internal/userstore"
)

// testApp wires the full HTTP surface the way the server does, against
// an in-memory SQLite store and memory caches.
type testApp struct {
	router *gin.Engine
	codec  *token.Codec
	user   *models.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := token.NewCodec([]byte("access-test-secret"), []byte("refresh-test-secret"), "test")
	require.NoError(t, err)

	issuer := token.NewIssuer(codec, 15*time.Minute, 7*24*time.Hour, 30*24*time.Hour)
	revocations := revocation.New(100)
	sessionCache := cache.NewMemoryCache[models.Profile]()
	t.Cleanup(func() { _ = sessionCache.Close() })

	s, err := store.New("sqlite", ":memory:")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         "user",
		IsActive:     true,
	}
	require.NoError(t, s.CreateUser(user))

	users := userstore.NewLocalUserStore(s)
	noop := metrics.NewNoopMetrics()

	gate := services.NewGateService(
		codec, issuer, revocations, sessionCache, users,
		100*time.Millisecond, token.DefaultRotationThreshold, time.Hour,
		noop,
	)
	sessionSvc := services.NewSessionService(
		codec, issuer, revocations, sessionCache, users, s,
		100*time.Millisecond, time.Hour,
		noop,
	)

	csrfStore := csrf.New(time.Minute, 0)
	cw := cookies.NewWriter(false)
	h := NewSessionHandler(sessionSvc, csrfStore, cw, noop)
	health := NewHealthHandler(s, sessionCache)

	router := gin.New()
	router.Use(sessions.Sessions("sg_session", sessioncookie.NewStore([]byte("test-session-secret"))))

	csrfGuard := middleware.CSRFGuard(csrfStore, noop)

	router.GET("/health", health.Health)
	router.GET("/session/csrf", h.IssueCSRF)
	router.POST("/session/login", h.Login)
	router.POST("/token/refresh", csrfGuard, h.Refresh)
	router.POST("/session/logout", csrfGuard, h.Logout)

	authed := router.Group("/", middleware.RequireAuth(gate, cw))
	authed.GET("/session/me", h.Me)
	authed.POST("/session/password", csrfGuard, h.ChangePassword)

	return &testApp{router: router, codec: codec, user: user}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (a *testApp) login(t *testing.T) (*httptest.ResponseRecorder, tokenResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/session/login", jsonBody(t, gin.H{
		"username": "alice",
		"password": "password123",
	}))
	req.Header.Set("Content-Type", "application/json")
	w := a.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func cookieValue(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsTokenCookies(t *testing.T) {
	app := newTestApp(t)

	w, resp := app.login(t)

	access := cookieValue(w, cookies.AccessCookie)
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, resp.AccessToken, access.Value)

	refresh := cookieValue(w, cookies.RefreshCookie)
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.Greater(t, refresh.MaxAge, access.MaxAge, "refresh cookie must outlive access cookie")

	assert.NotEmpty(t, w.Header().Get(middleware.CSRFHeader))
}

func TestLoginInvalidCredentials(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/session/login", jsonBody(t, gin.H{
		"username": "alice",
		"password": "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")
	w := app.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeBody(t, w)["code"])
}

func TestExpiredAccessTokenRejectedEndToEnd(t *testing.T) {
	app := newTestApp(t)

	raw, err := app.codec.Encode(app.user.ID, token.ClassAccess, time.Second)
	require.NoError(t, err)

	time.Sleep(2 * time.Second)

	req := httptest.NewRequest(http.MethodGet, "/session/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := app.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_EXPIRED", decodeBody(t, w)["code"])
}

func TestRefreshSetsFresherCookies(t *testing.T) {
	app := newTestApp(t)

	loginW, loginResp := app.login(t)

	// Login responses carry a one-time CSRF token for the next
	// state-changing call
	csrfTok := loginW.Header().Get(middleware.CSRFHeader)
	require.NotEmpty(t, csrfTok)

	// Cookie expiries have second precision; make the new ones strictly later
	time.Sleep(1100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/token/refresh", nil)
	req.Header.Set(middleware.CSRFHeader, csrfTok)
	for _, c := range loginW.Result().Cookies() {
		req.AddCookie(c)
	}
	w := app.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, loginResp.AccessToken, resp.AccessToken)
	assert.NotEqual(t, loginResp.RefreshToken, resp.RefreshToken)
	assert.Greater(t, resp.AccessExpiresAt, loginResp.AccessExpiresAt)
	assert.Greater(t, resp.RefreshExpiresAt, loginResp.RefreshExpiresAt)

	require.NotNil(t, cookieValue(w, cookies.AccessCookie))
	require.NotNil(t, cookieValue(w, cookies.RefreshCookie))
}

func TestRefreshCookieWithoutCSRFRejected(t *testing.T) {
	app := newTestApp(t)

	loginW, _ := app.login(t)

	req := httptest.NewRequest(http.MethodPost, "/token/refresh", nil)
	for _, c := range loginW.Result().Cookies() {
		req.AddCookie(c)
	}
	w := app.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "CSRF_TOKEN_REQUIRED", decodeBody(t, w)["code"])
}

func TestRefreshBearerBypassesCSRF(t *testing.T) {
	app := newTestApp(t)

	_, resp := app.login(t)

	// A bearer-presenting client needs no CSRF token on state-changing calls
	req := httptest.NewRequest(http.MethodPost, "/token/refresh", jsonBody(t, gin.H{
		"refresh_token": resp.RefreshToken,
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w := app.do(req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRefreshMissingToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/token/refresh", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := app.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "REFRESH_TOKEN_REQUIRED", decodeBody(t, w)["code"])
}

func TestRefreshExpiredToken(t *testing.T) {
	app := newTestApp(t)

	raw, err := app.codec.Encode(app.user.ID, token.ClassRefresh, time.Second)
	require.NoError(t, err)
	time.Sleep(1500 * time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/token/refresh", jsonBody(t, gin.H{
		"refresh_token": raw,
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer bypass")
	w := app.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "REFRESH_TOKEN_EXPIRED", decodeBody(t, w)["code"])
}

func TestLogoutRevokesAndClearsCookies(t *testing.T) {
	app := newTestApp(t)

	_, resp := app.login(t)

	req := httptest.NewRequest(http.MethodPost, "/session/logout", jsonBody(t, gin.H{
		"refresh_token": resp.RefreshToken,
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w := app.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	access := cookieValue(w, cookies.AccessCookie)
	require.NotNil(t, access)
	assert.Empty(t, access.Value)
	assert.Less(t, access.MaxAge, 0)

	// The revoked access token no longer passes the gate
	meReq := httptest.NewRequest(http.MethodGet, "/session/me", nil)
	meReq.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	meW := app.do(meReq)
	assert.Equal(t, http.StatusUnauthorized, meW.Code)
	assert.Equal(t, "TOKEN_REVOKED", decodeBody(t, meW)["code"])

	// And the revoked refresh token no longer refreshes
	refW := app.do(func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/token/refresh", jsonBody(t, gin.H{
			"refresh_token": resp.RefreshToken,
		}))
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Authorization", "Bearer bypass")
		return r
	}())
	assert.Equal(t, http.StatusUnauthorized, refW.Code)
	assert.Equal(t, "REFRESH_TOKEN_INVALID", decodeBody(t, refW)["code"])
}

func TestLogoutIsIdempotent(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/session/logout", nil)
	req.Header.Set("Authorization", "Bearer never-issued")
	w := app.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeReturnsProfile(t *testing.T) {
	app := newTestApp(t)

	_, resp := app.login(t)

	req := httptest.NewRequest(http.MethodGet, "/session/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w := app.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, app.user.ID, body["subject"])
}

func TestChangePasswordEndToEnd(t *testing.T) {
	app := newTestApp(t)

	_, resp := app.login(t)

	req := httptest.NewRequest(http.MethodPost, "/session/password", jsonBody(t, gin.H{
		"current_password": "password123",
		"new_password":     "newpassword",
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w := app.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The old password stops working
	badReq := httptest.NewRequest(http.MethodPost, "/session/login", jsonBody(t, gin.H{
		"username": "alice",
		"password": "password123",
	}))
	badReq.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusUnauthorized, app.do(badReq).Code)
}

func TestChangePasswordTooShort(t *testing.T) {
	app := newTestApp(t)

	_, resp := app.login(t)

	req := httptest.NewRequest(http.MethodPost, "/session/password", jsonBody(t, gin.H{
		"current_password": "password123",
		"new_password":     "short",
	}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w := app.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeBody(t, w)["code"])
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "session_cache")
}
