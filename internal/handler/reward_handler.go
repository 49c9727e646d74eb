package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/focuskid/guardian-api/internal/service"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
	"github.com/focuskid/guardian-api/pkg/export"
	"github.com/focuskid/guardian-api/pkg/response"
)

// RewardHandler wires HTTP endpoints to the reward ledger service.
type RewardHandler struct {
	service *service.RewardService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewRewardHandler creates a new handler.
func NewRewardHandler(svc *service.RewardService, csv *export.CSVExporter, pdf *export.PDFExporter) *RewardHandler {
	return &RewardHandler{service: svc, csv: csv, pdf: pdf}
}

// Post godoc
// @Summary Post a reward or penalty
// @Description Record a signed point entry for a student in a class
// @Tags Rewards
// @Accept json
// @Produce json
// @Param payload body service.PostEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /rewards [post]
func (h *RewardHandler) Post(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry payload"))
		return
	}

	entry, err := h.service.Post(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, entry)
}

// Cancel godoc
// @Summary Cancel a ledger entry
// @Description Void an entry inside the cancellation window
// @Tags Rewards
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /rewards/{id} [delete]
func (h *RewardHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// List godoc
// @Summary List ledger entries
// @Description List entries for a student, newest first
// @Tags Rewards
// @Produce json
// @Param studentId query string true "Student ID"
// @Param classId query string false "Class filter"
// @Param type query string false "Entry type filter"
// @Param category query string false "Category filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /rewards [get]
func (h *RewardHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))
	filter := service.NormalizeRewardFilter(
		c.Query("studentId"), c.Query("classId"),
		c.Query("type"), c.Query("category"), c.Query("status"),
		page, size)

	entries, pagination, err := h.service.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, pagination)
}

// Totals godoc
// @Summary Point totals for a student in a class
// @Tags Rewards
// @Produce json
// @Param studentId query string true "Student ID"
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /rewards/total [get]
func (h *RewardHandler) Totals(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentID := c.Query("studentId")
	classID := c.Query("classId")
	if studentID == "" || classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId and classId are required"))
		return
	}

	totals, err := h.service.Totals(c.Request.Context(), claims.UserID, studentID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, totals, nil)
}

// Summary godoc
// @Summary Per-class point summary for a student
// @Tags Rewards
// @Produce json
// @Param studentId query string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /rewards/summary [get]
func (h *RewardHandler) Summary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentID := c.Query("studentId")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId is required"))
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), claims.UserID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export ledger statement
// @Description Download the student's ledger entries as CSV or PDF
// @Tags Rewards
// @Produce octet-stream
// @Param studentId query string true "Student ID"
// @Param classId query string false "Class filter"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /rewards/export [get]
func (h *RewardHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	studentID := c.Query("studentId")
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "studentId is required"))
		return
	}

	dataset, err := h.service.Statement(c.Request.Context(), claims.UserID, studentID, c.Query("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("ledger-%s-%s", studentID, time.Now().UTC().Format("20060102"))
	switch strings.ToLower(c.DefaultQuery("format", "csv")) {
	case "pdf":
		payload, err := h.pdf.Render(dataset, "Point Ledger Statement")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.pdf"`, filename))
		c.Data(http.StatusOK, "application/pdf", payload)
	case "csv":
		payload, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
		c.Data(http.StatusOK, "text/csv", payload)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
	}
}
