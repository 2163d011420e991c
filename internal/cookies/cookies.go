// Package cookies centralizes how token cookies are written so login,
// refresh, rotation and logout stay consistent.
package cookies

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// AccessCookie is the cookie carrying the access token
	AccessCookie = "access_token"
	// RefreshCookie is the cookie carrying the refresh token
	RefreshCookie = "refresh_token"
)

// Writer writes and clears the token cookies. Cookies are HttpOnly and
// SameSite=Lax always; Secure tracks the production flag.
type Writer struct {
	Path   string
	Domain string
	Secure bool
}

func NewWriter(secure bool) *Writer {
	return &Writer{
		Path:   "/",
		Secure: secure,
	}
}

// SetAccess writes the access token cookie, expiring with the token
func (w *Writer) SetAccess(c *gin.Context, token string, expiresAt time.Time) {
	w.set(c, AccessCookie, token, expiresAt)
}

// SetRefresh writes the refresh token cookie, expiring with the token
func (w *Writer) SetRefresh(c *gin.Context, token string, expiresAt time.Time) {
	w.set(c, RefreshCookie, token, expiresAt)
}

// Clear expires both token cookies
func (w *Writer) Clear(c *gin.Context) {
	w.set(c, AccessCookie, "", time.Now().Add(-time.Hour))
	w.set(c, RefreshCookie, "", time.Now().Add(-time.Hour))
}

func (w *Writer) set(c *gin.Context, name, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if value == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, w.Path, w.Domain, w.Secure, true)
}
