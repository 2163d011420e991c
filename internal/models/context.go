package models

import (
	"github.com/gin-gonic/gin"
)

// ContextProfileKey is the gin context key the authentication middleware
// sets on authorized requests.
const ContextProfileKey = "auth_profile"

// ProfileFromContext extracts the authorized identity set by the
// authentication middleware. The second return is false on requests that
// never passed the gate.
func ProfileFromContext(c *gin.Context) (Profile, bool) {
	val, exists := c.Get(ContextProfileKey)
	if !exists {
		return Profile{}, false
	}
	profile, ok := val.(Profile)
	return profile, ok
}
