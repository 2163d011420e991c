package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/go-sessionguard/sessionguard/internal/core"
	"github.com/go-sessionguard/sessionguard/internal/csrf"
)

// CSRFHeader carries CSRF tokens in both directions: clients submit
// tokens in it, and token-issuing responses expose fresh ones through it.
const CSRFHeader = "X-CSRF-Token"

const (
	sessionIDKey  = "sid"
	csrfFormField = "_csrf"
)

// SessionID returns the browser session identifier, creating one on first
// contact. The id lives in the signed session cookie and is what CSRF
// tokens bind to.
func SessionID(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if sid, ok := session.Get(sessionIDKey).(string); ok && sid != "" {
		return sid, nil
	}

	sid := uuid.New().String()
	session.Set(sessionIDKey, sid)
	if err := session.Save(); err != nil {
		return "", err
	}
	return sid, nil
}

// CSRFGuard validates one-time CSRF tokens on state-changing requests.
// Requests authenticated with a Bearer header are exempt: a browser never
// attaches that header cross-site, so there is no forgery to defend
// against. Cookie-authenticated requests must present a token issued to
// their session, in the X-CSRF-Token header or the _csrf form field.
func CSRFGuard(store *csrf.Store, m core.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isStateChanging(c.Request.Method) {
			c.Next()
			return
		}

		if _, bearer := ExtractToken(c); bearer {
			c.Next()
			return
		}

		session := sessions.Default(c)
		sid, _ := session.Get(sessionIDKey).(string)

		submitted := c.GetHeader(CSRFHeader)
		if submitted == "" {
			submitted = c.PostForm(csrfFormField)
		}

		if submitted == "" {
			m.RecordCSRFValidation(false)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "CSRF_TOKEN_REQUIRED",
				"message": "CSRF token required on state-changing requests",
			})
			return
		}

		if !store.Validate(submitted, sid) {
			m.RecordCSRFValidation(false)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    "CSRF_TOKEN_INVALID",
				"message": "expired, foreign or already used CSRF token",
			})
			return
		}
		m.RecordCSRFValidation(true)

		c.Next()
	}
}

func isStateChanging(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
