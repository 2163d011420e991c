package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/go-sessionguard/sessionguard/internal/cookies"
	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/csrf"
	"github.com/go-sessionguard/sessionguard/internal/middleware"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/services"
	"github.com/go-sessionguard/sessionguard/internal/token"
)

// SessionHandler serves the session lifecycle endpoints: login, refresh,
// logout, CSRF issuance and the authenticated self-service routes.
type SessionHandler struct {
	sessions  *services.SessionService
	csrfStore *csrf.Store
	cookies   *cookies.Writer
	metrics   core.Recorder
}

func NewSessionHandler(
	sessions *services.SessionService,
	csrfStore *csrf.Store,
	cw *cookies.Writer,
	m core.Recorder,
) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		csrfStore: csrfStore,
		cookies:   cw,
		metrics:   m,
	}
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	Remember bool   `form:"remember" json:"remember"`
}

type refreshRequest struct {
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
	Remember     bool   `form:"remember"      json:"remember"`
}

type passwordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password" binding:"required"`
	NewPassword     string `form:"new_password"     json:"new_password"     binding:"required,min=8"`
}

type tokenResponse struct {
	AccessToken      string         `json:"access_token"`
	RefreshToken     string         `json:"refresh_token"`
	AccessExpiresAt  int64          `json:"access_expires_at"`
	RefreshExpiresAt int64          `json:"refresh_expires_at"`
	Profile          models.Profile `json:"profile"`
}

// Login verifies credentials and starts a session. Tokens go out both in
// the JSON body (for API clients) and as HttpOnly cookies (for browsers).
func (h *SessionHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "username and password are required",
		})
		return
	}

	pair, profile, err := h.sessions.Login(c.Request.Context(), req.Username, req.Password, req.Remember)
	if err != nil {
		status, code := loginRejection(err)
		c.JSON(status, gin.H{"code": code, "message": err.Error()})
		return
	}

	h.setPair(c, pair)
	h.exposeCSRF(c)
	c.JSON(http.StatusOK, pairResponse(pair, profile))
}

// Refresh exchanges a refresh token for a fresh pair. The token is read
// from the JSON body first, the refresh cookie second. The presented
// token is dead after a successful exchange.
func (h *SessionHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBind(&req)

	raw := req.RefreshToken
	if raw == "" {
		if cookie, err := c.Cookie(cookies.RefreshCookie); err == nil {
			raw = cookie
		}
	}

	pair, profile, err := h.sessions.Refresh(c.Request.Context(), raw, req.Remember)
	if err != nil {
		status, code := refreshRejection(err)
		c.JSON(status, gin.H{"code": code, "message": err.Error()})
		return
	}

	h.setPair(c, pair)
	h.exposeCSRF(c)
	c.JSON(http.StatusOK, pairResponse(pair, profile))
}

// Logout revokes whatever tokens the request carries, drops the cached
// session and clears the cookies. Always succeeds: logging out twice or
// with expired tokens is not an error.
func (h *SessionHandler) Logout(c *gin.Context) {
	rawAccess, _ := middleware.ExtractToken(c)

	var req refreshRequest
	_ = c.ShouldBind(&req)
	rawRefresh := req.RefreshToken
	if rawRefresh == "" {
		if cookie, err := c.Cookie(cookies.RefreshCookie); err == nil {
			rawRefresh = cookie
		}
	}

	h.sessions.Logout(c.Request.Context(), rawAccess, rawRefresh)

	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()

	h.cookies.Clear(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// IssueCSRF hands out a one-time CSRF token bound to the browser session
func (h *SessionHandler) IssueCSRF(c *gin.Context) {
	sid, err := middleware.SessionID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "SESSION_ERROR",
			"message": "failed to establish browser session",
		})
		return
	}

	tok, err := h.csrfStore.Issue(sid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "CSRF_ISSUE_FAILED",
			"message": "failed to issue CSRF token",
		})
		return
	}
	h.metrics.RecordCSRFIssued()

	c.Header(middleware.CSRFHeader, tok)
	c.JSON(http.StatusOK, gin.H{"csrf_token": tok})
}

// Me returns the identity snapshot the gate attached to this request
func (h *SessionHandler) Me(c *gin.Context) {
	profile, ok := models.ProfileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "TOKEN_REQUIRED",
			"message": "authentication required",
		})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ChangePassword is a CSRF-guarded state change on the account
func (h *SessionHandler) ChangePassword(c *gin.Context) {
	profile, ok := models.ProfileFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    "TOKEN_REQUIRED",
			"message": "authentication required",
		})
		return
	}

	var req passwordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "current_password and new_password (min 8 chars) are required",
		})
		return
	}

	err := h.sessions.ChangePassword(c.Request.Context(), profile.Subject, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "INVALID_CREDENTIALS",
				"message": "current password is incorrect",
			})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    "USER_NOT_FOUND",
				"message": err.Error(),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "failed to change password",
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// exposeCSRF attaches a fresh one-time CSRF token to a token-issuing
// response so browser clients can make their next state-changing call
// without an extra round trip. Best effort: a failure here never fails
// the login or refresh itself.
func (h *SessionHandler) exposeCSRF(c *gin.Context) {
	sid, err := middleware.SessionID(c)
	if err != nil {
		return
	}
	tok, err := h.csrfStore.Issue(sid)
	if err != nil {
		return
	}
	h.metrics.RecordCSRFIssued()
	c.Header(middleware.CSRFHeader, tok)
}

func (h *SessionHandler) setPair(c *gin.Context, pair *token.Pair) {
	h.cookies.SetAccess(c, pair.AccessToken, pair.AccessExpiresAt)
	h.cookies.SetRefresh(c, pair.RefreshToken, pair.RefreshExpiresAt)
}

func pairResponse(pair *token.Pair, profile models.Profile) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt.Unix(),
		RefreshExpiresAt: pair.RefreshExpiresAt.Unix(),
		Profile:          profile,
	}
}

func loginRejection(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, services.ErrAccountDeactivated):
		return http.StatusForbidden, "ACCOUNT_DEACTIVATED"
	case errors.Is(err, services.ErrAccountLocked):
		return http.StatusForbidden, "ACCOUNT_LOCKED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func refreshRejection(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrRefreshTokenRequired):
		return http.StatusUnauthorized, "REFRESH_TOKEN_REQUIRED"
	case errors.Is(err, services.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "REFRESH_TOKEN_EXPIRED"
	case errors.Is(err, services.ErrRefreshTokenInvalid):
		return http.StatusUnauthorized, "REFRESH_TOKEN_INVALID"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusUnauthorized, "USER_NOT_FOUND"
	case errors.Is(err, services.ErrAccountDeactivated):
		return http.StatusForbidden, "ACCOUNT_DEACTIVATED"
	case errors.Is(err, services.ErrAccountLocked):
		return http.StatusForbidden, "ACCOUNT_LOCKED"
	case errors.Is(err, services.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"
	case errors.Is(err, services.ErrUpstreamUnavailable):
		return http.StatusGatewayTimeout, "UPSTREAM_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
