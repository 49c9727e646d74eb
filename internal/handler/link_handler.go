package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/internal/service"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
	"github.com/focuskid/guardian-api/pkg/response"
)

// LinkHandler wires HTTP endpoints to the link service.
type LinkHandler struct {
	service    *service.LinkService
	dashboards *service.DashboardService
}

// NewLinkHandler creates a new handler. The dashboard service may be nil
// when cached dashboards are not deployed.
func NewLinkHandler(svc *service.LinkService, dashboards *service.DashboardService) *LinkHandler {
	return &LinkHandler{service: svc, dashboards: dashboards}
}

// Request godoc
// @Summary Request a guardian link
// @Description Create a pending link request to a child identified by handle
// @Tags Links
// @Accept json
// @Produce json
// @Param payload body service.RequestLinkRequest true "Link request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /links [post]
func (h *LinkHandler) Request(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RequestLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid link payload"))
		return
	}

	link, err := h.service.Request(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, link)
}

// Respond godoc
// @Summary Respond to a pending link
// @Description Accept or reject a pending link request addressed to the caller
// @Tags Links
// @Accept json
// @Produce json
// @Param id path string true "Link ID"
// @Param payload body service.RespondLinkRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /links/{id}/respond [put]
func (h *LinkHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RespondLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	link, err := h.service.Respond(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboards != nil {
		h.dashboards.Invalidate(c.Request.Context(), link.GuardianID)
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Remove godoc
// @Summary Remove an accepted link
// @Description Sever the accepted link between the caller and the counterpart
// @Tags Links
// @Produce json
// @Param counterpartId path string true "Counterpart user ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /links/{counterpartId} [delete]
func (h *LinkHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	counterpartID := c.Param("counterpartId")
	if err := h.service.Remove(c.Request.Context(), claims.UserID, counterpartID); err != nil {
		response.Error(c, err)
		return
	}

	if h.dashboards != nil {
		// Either side of the pair may be the guardian; a miss is a no-op.
		h.dashboards.Invalidate(c.Request.Context(), claims.UserID)
		h.dashboards.Invalidate(c.Request.Context(), counterpartID)
	}
	response.NoContent(c)
}

// Pending godoc
// @Summary List pending link requests addressed to the caller
// @Tags Links
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /links/pending [get]
func (h *LinkHandler) Pending(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	links, err := h.service.ListPendingForChild(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// List godoc
// @Summary List links for the caller
// @Description Guardians see their outgoing links, students their pending requests
// @Tags Links
// @Produce json
// @Param status query string false "Status filter (guardian view)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /links [get]
func (h *LinkHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if claims.HasRole(models.RoleGuardian) {
		links, err := h.service.ListForGuardian(c.Request.Context(), claims.UserID, c.Query("status"))
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, links, nil)
		return
	}

	links, err := h.service.ListPendingForChild(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}
