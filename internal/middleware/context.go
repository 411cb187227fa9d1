package middleware

import (
	"github.com/gin-gonic/gin"

	"campusdesk/api/internal/models"
)

const (
	ctxUserKey    = "current_user"
	ctxSessionKey = "current_session"
)

func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ctxUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

func CurrentSession(c *gin.Context) (models.Session, bool) {
	val, exists := c.Get(ctxSessionKey)
	if !exists {
		return models.Session{}, false
	}
	session, ok := val.(models.Session)
	return session, ok
}
