package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
	"github.com/noah-isme/internship-attendance-api/pkg/response"
)

type logbookService interface {
	Submit(ctx context.Context, studentID string, req dto.CreateLogbookRequest) (*models.LogbookEntry, error)
	List(ctx context.Context, query dto.LogbookQuery, actor *models.JWTClaims) ([]models.LogbookEntryDetail, *models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LogbookEntryDetail, error)
	Review(ctx context.Context, id string, req dto.ReviewLogbookRequest, reviewer *models.JWTClaims) (*models.LogbookEntry, error)
	Revise(ctx context.Context, id string, req dto.ReviseLogbookRequest, actor *models.JWTClaims) (*models.LogbookEntry, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
}

// LogbookHandler exposes the daily journal.
type LogbookHandler struct {
	service logbookService
}

// NewLogbookHandler constructs the handler.
func NewLogbookHandler(svc logbookService) *LogbookHandler {
	return &LogbookHandler{service: svc}
}

// Submit godoc
// @Summary Record the day's logbook entry
// @Tags Logbooks
// @Accept json
// @Produce json
// @Param payload body dto.CreateLogbookRequest true "Logbook entry"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /logbooks [post]
func (h *LogbookHandler) Submit(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateLogbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	entry, err := h.service.Submit(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// List godoc
// @Summary List logbook entries visible to the caller
// @Tags Logbooks
// @Produce json
// @Param student_id query string false "Student ID"
// @Param date query string false "Entry date (YYYY-MM-DD)"
// @Param status query string false "pending, approved or rejected"
// @Param search query string false "Matches student name, NIM or activity"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /logbooks [get]
func (h *LogbookHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var query dto.LogbookQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a logbook entry
// @Tags Logbooks
// @Produce json
// @Param id path string true "Logbook entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /logbooks/{id} [get]
func (h *LogbookHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Revise godoc
// @Summary Resubmit a rejected logbook entry
// @Tags Logbooks
// @Accept json
// @Produce json
// @Param id path string true "Logbook entry ID"
// @Param payload body dto.ReviseLogbookRequest true "Revised entry"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /logbooks/{id} [put]
func (h *LogbookHandler) Revise(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req dto.ReviseLogbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	entry, err := h.service.Revise(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Review godoc
// @Summary Sign or reject a logbook entry
// @Tags Logbooks
// @Accept json
// @Produce json
// @Param id path string true "Logbook entry ID"
// @Param payload body dto.ReviewLogbookRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /logbooks/{id}/review [put]
func (h *LogbookHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req dto.ReviewLogbookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	entry, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete an unsigned logbook entry
// @Tags Logbooks
// @Param id path string true "Logbook entry ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /logbooks/{id} [delete]
func (h *LogbookHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
