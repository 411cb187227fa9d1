package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusdesk/api/internal/config"
	"campusdesk/api/internal/service"
)

// Auth resolves the session cookie into an identity. The auth service
// re-fetches the user row on every request, so a deleted user or changed
// role takes effect immediately. Failures are generic: a missing cookie,
// an unknown session, and an expired one all read the same to the client.
func Auth(cfg *config.AppConfig, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cfg.Security.SessionCookieName)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		user, session, err := auth.Resolve(c.Request.Context(), sessionID)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
			return
		}

		c.Set(ctxUserKey, user)
		c.Set(ctxSessionKey, session)

		c.Next()
	}
}
