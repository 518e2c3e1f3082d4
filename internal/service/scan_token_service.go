package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

type scanTokenIssuer interface {
	Issue(studentID string) (string, time.Time, error)
}

// ScanTokenService mints the credential rendered in a student's QR code.
type ScanTokenService struct {
	students studentLookup
	issuer   scanTokenIssuer
	logger   *zap.Logger
}

// NewScanTokenService constructs the service.
func NewScanTokenService(students studentLookup, issuer scanTokenIssuer, logger *zap.Logger) *ScanTokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanTokenService{students: students, issuer: issuer, logger: logger}
}

// Issue returns a scan credential for an active student.
func (s *ScanTokenService) Issue(ctx context.Context, studentID string) (*dto.ScanTokenResponse, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "failed to load student")
	}
	if student == nil || !student.Active() {
		return nil, appErrors.ErrStudentNotFound
	}

	raw, expiresAt, err := s.issuer.Issue(student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue scan credential")
	}
	s.logger.Debug("scan credential issued", zap.String("student_id", student.ID), zap.Time("expires_at", expiresAt))
	return &dto.ScanTokenResponse{Credential: raw, ExpiresAt: expiresAt}, nil
}
