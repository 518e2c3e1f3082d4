package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/pkg/response"
)

type scanTokenService interface {
	Issue(ctx context.Context, studentID string) (*dto.ScanTokenResponse, error)
}

// ScanTokenHandler mints QR credentials.
type ScanTokenHandler struct {
	service scanTokenService
}

// NewScanTokenHandler constructs the handler.
func NewScanTokenHandler(svc scanTokenService) *ScanTokenHandler {
	return &ScanTokenHandler{service: svc}
}

// IssueOwn godoc
// @Summary Mint a scan credential for the calling student
// @Tags Scan Tokens
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /scan-tokens [post]
func (h *ScanTokenHandler) IssueOwn(c *gin.Context) {
	studentID, ok := studentFromContext(c)
	if !ok {
		return
	}
	h.issue(c, studentID)
}

// IssueFor godoc
// @Summary Mint a scan credential for a student
// @Tags Scan Tokens
// @Produce json
// @Param id path string true "Student ID"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/scan-tokens [post]
func (h *ScanTokenHandler) IssueFor(c *gin.Context) {
	h.issue(c, c.Param("id"))
}

func (h *ScanTokenHandler) issue(c *gin.Context, studentID string) {
	token, err := h.service.Issue(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, token, nil)
}
