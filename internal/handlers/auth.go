package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campusdesk/api/internal/middleware"
	"campusdesk/api/internal/models"
	"campusdesk/api/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
	}
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	session, user, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		return
	}

	h.setSessionCookie(c, session.ID, int(h.cfg.Security.SessionTTL.Seconds()))

	c.JSON(http.StatusOK, gin.H{
		"user":      toUserResponse(user),
		"csrfToken": session.CSRFToken,
	})
}

func (h HandlerSet) Logout(c *gin.Context) {
	user, okUser := middleware.CurrentUser(c)
	session, okSession := middleware.CurrentSession(c)
	if !okUser || !okSession {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	if err := h.auth.Logout(c.Request.Context(), user, session); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		return
	}

	h.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// Me is the identity-check endpoint. Read-only, CSRF-exempt; also hands
// the SPA its CSRF token back after a page reload.
func (h HandlerSet) Me(c *gin.Context) {
	user, okUser := middleware.CurrentUser(c)
	session, okSession := middleware.CurrentSession(c)
	if !okUser || !okSession {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      toUserResponse(user),
		"csrfToken": session.CSRFToken,
	})
}

func (h HandlerSet) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		h.cfg.Security.SessionCookieName,
		value,
		maxAge,
		"/",
		"",
		h.cfg.CookieSecure(),
		true, // HttpOnly
	)
}
