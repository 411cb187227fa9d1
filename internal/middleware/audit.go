package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusdesk/api/internal/audit"
	"campusdesk/api/internal/models"
)

// Audit wraps a route for the given (action, resourceType) pair. It runs
// inside Auth but outside the authorization and CSRF gates, so denied
// attempts are still attributed to the actor who made them. Requests that
// never resolved an identity are not recorded.
func Audit(recorder *audit.Recorder, action string, resourceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil && c.Request.Method != http.MethodGet {
			raw, err := c.GetRawData()
			if err == nil {
				body = raw
				c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			}
		}

		start := time.Now()
		c.Next()

		user, ok := CurrentUser(c)
		if !ok {
			return
		}

		details, _ := json.Marshal(map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"query":  c.Request.URL.RawQuery,
			"body":   json.RawMessage(orEmptyObject(audit.RedactBody(body))),
		})

		recorder.Record(c.Request.Context(), models.AuditEntry{
			ActorUserID:   user.ID,
			ActorUsername: user.Username,
			Action:        action,
			ResourceType:  resourceType,
			ResourceID:    c.Param("id"),
			Details:       string(details),
			ClientIP:      c.ClientIP(),
			UserAgent:     c.Request.UserAgent(),
			DurationMs:    time.Since(start).Milliseconds(),
			Outcome:       models.OutcomeForStatus(c.Writer.Status()),
		})
	}
}

func orEmptyObject(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}
