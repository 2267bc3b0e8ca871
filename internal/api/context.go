package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"handrating-backend/internal/middleware"
)

// userIDFromContext reads the UID set by the auth middleware and answers 401 when it is missing.
func userIDFromContext(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: User ID not found in context"})
		return "", false
	}
	return userID, true
}
