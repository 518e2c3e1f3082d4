package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/pkg/response"
)

type scheduleService interface {
	GetActive(ctx context.Context) (*models.ScheduleConfig, error)
	Replace(ctx context.Context, req dto.ReplaceScheduleRequest, actorID string) (*models.ScheduleConfig, error)
	History(ctx context.Context, page, size int) ([]models.ScheduleConfig, *models.Pagination, error)
}

// ScheduleHandler manages the attendance schedule.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Active godoc
// @Summary Get the active schedule
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/active [get]
func (h *ScheduleHandler) Active(c *gin.Context) {
	cfg, err := h.service.GetActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Replace godoc
// @Summary Replace the active schedule
// @Description Deactivates the current schedule and activates a new version atomically.
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceScheduleRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedule [put]
func (h *ScheduleHandler) Replace(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		return
	}
	var req dto.ReplaceScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	cfg, err := h.service.Replace(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// History godoc
// @Summary List schedule versions
// @Tags Schedule
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedule/history [get]
func (h *ScheduleHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	items, pagination, err := h.service.History(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}
