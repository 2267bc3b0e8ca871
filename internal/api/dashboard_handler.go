package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"handrating-backend/internal/core"
)

// DashboardHandler serves the dashboard summary.
type DashboardHandler struct {
	dashboardService core.DashboardService
	log              *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(ds core.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: ds, log: log}
}

// GetDashboard handles GET /api/v1/dashboard.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	d, err := h.dashboardService.Load(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found"})
			return
		}
		h.log.Error("failed to load dashboard", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, d)
}
