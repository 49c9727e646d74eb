package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/focuskid/guardian-api/internal/service"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
	"github.com/focuskid/guardian-api/pkg/response"
)

// DashboardHandler exposes the guardian overview endpoint.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Guardian godoc
// @Summary Guardian dashboard
// @Description Aggregated focus and point progress across all linked children
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/guardian [get]
func (h *DashboardHandler) Guardian(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	summary, cached, err := h.service.Guardian(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cached": cached})
}
