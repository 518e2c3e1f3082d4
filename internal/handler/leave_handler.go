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

type leaveService interface {
	Submit(ctx context.Context, studentID string, req dto.CreateLeaveRequest) (*models.LeaveRequest, error)
	List(ctx context.Context, query dto.LeaveQuery, actor *models.JWTClaims) ([]models.LeaveRequest, *models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LeaveRequest, error)
	Review(ctx context.Context, id string, req dto.ReviewLeaveRequest, reviewer *models.JWTClaims) (*models.LeaveReviewResult, error)
	RetryBackfill(ctx context.Context, id string) (*models.BackfillResult, error)
}

// LeaveHandler exposes the leave request workflow.
type LeaveHandler struct {
	service leaveService
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc leaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Submit godoc
// @Summary Submit a leave request
// @Tags Leave Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateLeaveRequest true "Leave request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /leave-requests [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	leave, err := h.service.Submit(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// List godoc
// @Summary List leave requests visible to the caller
// @Tags Leave Requests
// @Produce json
// @Param student_id query string false "Student ID"
// @Param status query []string false "pending, approved or rejected" collectionFormat(multi)
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leave-requests [get]
func (h *LeaveHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var query dto.LeaveQuery
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
// @Summary Get a leave request
// @Tags Leave Requests
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /leave-requests/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	leave, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Review godoc
// @Summary Approve or reject a leave request
// @Description Approval backfills excused attendance for every covered date that has no record.
// @Tags Leave Requests
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body dto.ReviewLeaveRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id}/review [put]
func (h *LeaveHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req dto.ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	result, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Backfill godoc
// @Summary Re-run the attendance backfill of an approved leave request
// @Tags Leave Requests
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id}/backfill [post]
func (h *LeaveHandler) Backfill(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	if _, err := h.service.Get(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.RetryBackfill(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
