package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/internal/middleware"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
	"github.com/noah-isme/internship-attendance-api/pkg/response"
)

// PlaySoundHeader tells the kiosk which cue to play after a scan.
const PlaySoundHeader = "X-Play-Sound"

type attendanceService interface {
	Scan(ctx context.Context, req dto.ScanRequest) (*models.ScanResult, error)
	Today(ctx context.Context, studentID string) (*models.TodayStatus, error)
	List(ctx context.Context, query dto.AttendanceQuery) ([]models.AttendanceRecordDetail, *models.Pagination, error)
}

// AttendanceHandler exposes scan and attendance history endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Scan godoc
// @Summary Record a check-in or check-out scan
// @Description Validates the QR credential and location, then applies the next transition of today's record.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ScanRequest true "Scan payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /attendance/scan [post]
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Header(PlaySoundHeader, "error")
		response.Error(c, bindError(err))
		return
	}

	result, err := h.service.Scan(c.Request.Context(), req)
	if err != nil {
		c.Header(PlaySoundHeader, "error")
		response.Error(c, err)
		return
	}
	c.Header(PlaySoundHeader, "success")
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// Today godoc
// @Summary Today's attendance for the calling student
// @Tags Attendance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.Today(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param student_id query string false "Student ID"
// @Param status query string false "present, excused or absent"
// @Param date_from query string false "YYYY-MM-DD"
// @Param date_to query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var query dto.AttendanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}
