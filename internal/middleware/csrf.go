package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusdesk/api/internal/security"
)

// CSRFHeader carries the session-bound synchronizer token on every
// state-changing request.
const CSRFHeader = "X-CSRF-Token"

// CSRF enforces the synchronizer-token pattern. Read-only verbs pass
// through; everything else must present the exact token issued with the
// session. Runs after Auth and is independent of role checks.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		session, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		token := c.GetHeader(CSRFHeader)
		if !security.TokensEqual(token, session.CSRFToken) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "INVALID_CSRF_TOKEN"})
			return
		}

		c.Next()
	}
}
