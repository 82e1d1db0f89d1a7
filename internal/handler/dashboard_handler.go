package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/internal/service"
	"github.com/omenezes/aula-planner-api/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, userID string, mode models.ViewMode, offset int) (*service.DashboardResponse, error)
}

// DashboardHandler exposes the calendar dashboard.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Get godoc
// @Summary Render the calendar dashboard
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param view query string false "View mode: semanal or mensal" default(semanal)
// @Param offset query int false "Window offset from today" default(0)
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	mode := models.ParseViewMode(c.Query("view"))
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	resp, err := h.service.Dashboard(c.Request.Context(), claims.UserID, mode, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
