package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/internal/repository"
	"github.com/noah-isme/internship-attendance-api/pkg/daterange"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

type dayLocker interface {
	WithDayLock(ctx context.Context, studentID string, date time.Time, fn func(repository.AttendanceDayTx) error) error
}

// BackfillService writes excused attendance for every date covered by an
// approved leave request. Each date commits independently and existing
// records are never touched, so a run can be repeated safely.
type BackfillService struct {
	store   dayLocker
	metrics *MetricsService
	logger  *zap.Logger
	loc     *time.Location
}

// NewBackfillService constructs the service. Dates are interpreted in loc.
func NewBackfillService(store dayLocker, metrics *MetricsService, logger *zap.Logger, loc *time.Location) *BackfillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BackfillService{store: store, metrics: metrics, logger: logger, loc: loc}
}

// Backfill fills every date of leave that has no record yet.
func (s *BackfillService) Backfill(ctx context.Context, leave *models.LeaveRequest, schedule *models.ScheduleConfig) (*models.BackfillResult, error) {
	if leave == nil || leave.Status != models.LeaveStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only approved leave requests can be backfilled")
	}
	if schedule == nil {
		return nil, appErrors.ErrScheduleNotConfigured
	}

	span, err := daterange.New(s.localDate(leave.StartDate), s.localDate(leave.EndDate))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "leave end date precedes start date")
	}

	result := &models.BackfillResult{LeaveRequestID: leave.ID}
	_, _ = span.Each(func(date time.Time) error {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, date)
			return nil
		}
		created, err := s.fillDate(ctx, leave, schedule, date)
		switch {
		case err != nil:
			result.Failed = append(result.Failed, date)
			s.logger.Warn("leave backfill date failed",
				zap.String("leave_request_id", leave.ID),
				zap.Time("date", date),
				zap.Error(err),
			)
		case created:
			result.Created = append(result.Created, date)
		default:
			result.Skipped = append(result.Skipped, date)
		}
		return nil
	})

	s.metrics.ObserveBackfill(len(result.Created), len(result.Skipped), len(result.Failed))
	s.logger.Info("leave backfill finished",
		zap.String("leave_request_id", leave.ID),
		zap.String("student_id", leave.StudentID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *BackfillService) fillDate(ctx context.Context, leave *models.LeaveRequest, schedule *models.ScheduleConfig, date time.Time) (bool, error) {
	created := false
	err := s.store.WithDayLock(ctx, leave.StudentID, date, func(tx repository.AttendanceDayTx) error {
		current, err := tx.Current(ctx)
		if err != nil {
			return err
		}
		if current != nil {
			return nil
		}

		checkIn := schedule.EntryTime.On(date)
		checkOut := schedule.DepartureTime.On(date)
		lateness := models.LatenessOnTime
		leaveID := leave.ID
		if err := tx.Insert(ctx, &models.AttendanceRecord{
			StudentID:        leave.StudentID,
			AttendanceDate:   date,
			CheckInAt:        &checkIn,
			CheckOutAt:       &checkOut,
			Lateness:         &lateness,
			Status:           models.AttendanceStatusExcused,
			InsideGeofence:   true,
			ScheduleConfigID: schedule.ID,
			LeaveRequestID:   &leaveID,
		}); err != nil {
			return err
		}
		created = true
		return nil
	})
	if errors.Is(err, repository.ErrDayAlreadyRecorded) {
		return false, nil
	}
	return created, err
}

// localDate reinterprets a DATE column value as a calendar date in s.loc.
func (s *BackfillService) localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}
