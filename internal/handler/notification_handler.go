package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/internal/service"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
	"github.com/focuskid/guardian-api/pkg/response"
)

// NotificationHandler exposes the caller's notification feed.
type NotificationHandler struct {
	service *service.NotifierService
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(svc *service.NotifierService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List notifications for the caller
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Unread only"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	unread := c.Query("unread") == "true"

	items, pagination, err := h.service.List(c.Request.Context(), models.NotificationFilter{
		RecipientID: claims.UserID,
		UnreadOnly:  unread,
		Page:        page,
		PageSize:    size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
