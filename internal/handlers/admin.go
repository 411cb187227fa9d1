package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campusdesk/api/internal/middleware"
	"campusdesk/api/internal/models"
	"campusdesk/api/internal/repository"
	"campusdesk/api/internal/service"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		items = append(items, toUserResponse(user))
	}

	c.JSON(http.StatusOK, gin.H{"users": items})
}

type createUserRequest struct {
	Username    string `json:"username" binding:"required"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password" binding:"required,min=8"`
	Role        string `json:"role" binding:"required"`
}

func (h HandlerSet) AdminCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), service.CreateUserInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        models.UserRole(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateUsername):
			c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		default:
			h.log.Error().Err(err).Msg("create user failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": toUserResponse(user)})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h HandlerSet) AdminUpdateUserRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.auth.UpdateUserRole(c.Request.Context(), c.Param("id"), models.UserRole(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		default:
			h.log.Error().Err(err).Msg("update role failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

type updateProfileRequest struct {
	DisplayName string `json:"displayName"`
	Password    string `json:"password" binding:"omitempty,min=8"`
}

func (h HandlerSet) AdminUpdateUserProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.auth.UpdateUserProfile(c.Request.Context(), c.Param("id"), service.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		case errors.Is(err, repository.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		default:
			h.log.Error().Err(err).Msg("update profile failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)
	id := c.Param("id")
	if id == actor.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot_delete_self"})
		return
	}

	if err := h.auth.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
			return
		}
		h.log.Error().Err(err).Msg("delete user failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		return
	}

	c.Status(http.StatusNoContent)
}

// AdminInvalidateSessions empties the session store, the caller's session
// included: their next request starts unauthenticated.
func (h HandlerSet) AdminInvalidateSessions(c *gin.Context) {
	actor, _ := middleware.CurrentUser(c)

	count, err := h.auth.InvalidateAllSessions(c.Request.Context(), actor)
	if err != nil {
		h.log.Error().Err(err).Msg("invalidate sessions failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		return
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"invalidated": count})
}

func (h HandlerSet) AdminListAudit(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	entries, err := h.trail.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list audit failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, map[string]any{
			"id":            entry.ID,
			"actorUserId":   entry.ActorUserID,
			"actorUsername": entry.ActorUsername,
			"action":        entry.Action,
			"resourceType":  entry.ResourceType,
			"resourceId":    entry.ResourceID,
			"clientIp":      entry.ClientIP,
			"durationMs":    entry.DurationMs,
			"outcome":       entry.Outcome,
			"createdAt":     entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
