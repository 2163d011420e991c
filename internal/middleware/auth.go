package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-sessionguard/sessionguard/internal/cookies"
	"github.com/go-sessionguard/sessionguard/internal/models"
	"github.com/go-sessionguard/sessionguard/internal/services"
)

const (
	// RotatedTokenHeader carries the replacement access token to clients
	// that read tokens from headers instead of cookies
	RotatedTokenHeader = "X-New-Access-Token"

	// RotatedFlagHeader signals that a rotation happened on this response
	RotatedFlagHeader = "X-Token-Rotated"
)

// ExtractToken pulls the access token off a request: Authorization header
// first, cookie second. The second return is true when the token arrived
// as a Bearer header, which exempts the request from CSRF checks.
func ExtractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), true
	}
	if cookie, err := c.Cookie(cookies.AccessCookie); err == nil {
		return cookie, false
	}
	return "", false
}

// RequireAuth runs the gate on every request. Authorized requests carry
// the identity snapshot in the context; when the rotation policy fired,
// the replacement token goes out on this same response as a header and a
// refreshed cookie.
func RequireAuth(gate *services.GateService, cw *cookies.Writer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := ExtractToken(c)

		decision, err := gate.Authenticate(c.Request.Context(), raw)
		if err != nil {
			status, code := GateRejection(err)
			c.AbortWithStatusJSON(status, gin.H{
				"code":    code,
				"message": err.Error(),
			})
			return
		}

		if decision.RotatedAccessToken != "" {
			c.Header(RotatedTokenHeader, decision.RotatedAccessToken)
			c.Header(RotatedFlagHeader, "true")
			cw.SetAccess(c, decision.RotatedAccessToken, decision.RotatedExpiresAt)
		}

		c.Set(models.ContextProfileKey, decision.Profile)
		c.Next()
	}
}

// RequireRole restricts a route to the named roles. Must run after
// RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := models.ProfileFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "TOKEN_REQUIRED",
				"message": "authentication required",
			})
			return
		}

		for _, role := range roles {
			if profile.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"code":    "FORBIDDEN",
			"message": "insufficient role",
		})
	}
}

// GateRejection maps a gate error to an HTTP status and machine code
func GateRejection(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrTokenRequired):
		return http.StatusUnauthorized, "TOKEN_REQUIRED"
	case errors.Is(err, services.ErrTokenExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED"
	case errors.Is(err, services.ErrTokenRevoked):
		return http.StatusUnauthorized, "TOKEN_REVOKED"
	case errors.Is(err, services.ErrTokenInvalid):
		return http.StatusUnauthorized, "TOKEN_INVALID"
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
