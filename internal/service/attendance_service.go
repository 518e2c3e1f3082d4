package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/internal/repository"
	"github.com/noah-isme/internship-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
	"github.com/noah-isme/internship-attendance-api/pkg/geo"
)

type attendanceStore interface {
	WithDayLock(ctx context.Context, studentID string, date time.Time, fn func(repository.AttendanceDayTx) error) error
	FindByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type activeScheduleProvider interface {
	GetActive(ctx context.Context) (*models.ScheduleConfig, error)
}

type scanTokenValidator interface {
	Validate(raw string) (string, error)
}

// AttendanceOptions tunes scan processing.
type AttendanceOptions struct {
	Clock                 clock.Clock
	Timeout               time.Duration
	RejectOutsideGeofence bool
}

// AttendanceService turns scans into attendance records.
type AttendanceService struct {
	store     attendanceStore
	students  studentLookup
	schedules activeScheduleProvider
	tokens    scanTokenValidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	opts      AttendanceOptions
}

// NewAttendanceService constructs the service.
func NewAttendanceService(
	store attendanceStore,
	students studentLookup,
	schedules activeScheduleProvider,
	tokens scanTokenValidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	opts AttendanceOptions,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.System(time.UTC)
	}
	return &AttendanceService{
		store:     store,
		students:  students,
		schedules: schedules,
		tokens:    tokens,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		opts:      opts,
	}
}

// ClassifyLateness compares the wall-clock time of at with the schedule's
// entry time. Anything past the grace period, including fractions of a
// minute, is late.
func ClassifyLateness(at time.Time, schedule models.ScheduleConfig) models.Lateness {
	elapsed := clock.SinceMidnight(at) - schedule.EntryTime.Duration()
	if elapsed <= schedule.GracePeriod() {
		return models.LatenessOnTime
	}
	return models.LatenessLate
}

// Scan applies one check-in or check-out event.
func (s *AttendanceService) Scan(ctx context.Context, req dto.ScanRequest) (result *models.ScanResult, err error) {
	started := time.Now()
	geofence := GeofenceUnknown
	defer func() {
		outcome := "error"
		if err != nil {
			outcome = strings.ToLower(appErrors.FromError(err).Code)
		} else if result != nil {
			outcome = string(result.Outcome)
		}
		s.metrics.ObserveScan(outcome, geofence, time.Since(started))
	}()

	studentID, err := s.tokens.Validate(req.Credential)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid scan payload")
	}
	if !geo.ValidCoordinate(*req.Latitude, *req.Longitude) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "coordinates out of range")
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "failed to load student")
	}
	if student == nil || !student.Active() {
		return nil, appErrors.ErrStudentNotFound
	}

	schedule, err := s.schedules.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.opts.Clock.Now()
	date := clock.Date(now)
	fence := geo.Evaluate(*req.Latitude, *req.Longitude, schedule.CenterLat, schedule.CenterLon, schedule.RadiusMeters)
	geofence = geofenceLabel(fence.Inside)
	if !fence.Inside && s.opts.RejectOutsideGeofence {
		return nil, appErrors.ErrOutsideGeofence
	}

	result = &models.ScanResult{
		InsideGeofence: fence.Inside,
		DistanceMeters: fence.DistanceMeters,
		StudentID:      student.ID,
		StudentName:    student.FullName,
		EventTime:      now,
	}

	err = s.store.WithDayLock(ctx, student.ID, date, func(tx repository.AttendanceDayTx) error {
		current, err := tx.Current(ctx)
		if err != nil {
			return err
		}

		switch current.State() {
		case models.StateNoRecord:
			if current != nil {
				// A row without check-in was settled by another process.
				return appErrors.Clone(appErrors.ErrAlreadyClosed, "attendance for today was already settled")
			}
			record := newCheckIn(student.ID, date, now, schedule, fence, req)
			if err := tx.Insert(ctx, record); err != nil {
				return err
			}
			result.Outcome = models.ScanOutcomeCheckedIn
			result.Lateness = record.Lateness
			result.Record = record
			return nil

		case models.StateCheckedIn:
			if clock.SinceMidnight(now) < schedule.DepartureTime.Duration() {
				return appErrors.Clone(appErrors.ErrTooEarly, "check-out opens at "+schedule.DepartureTime.String())
			}
			if err := tx.CloseOut(ctx, current.ID, now); err != nil {
				return err
			}
			current.CheckOutAt = &now
			current.UpdatedAt = now
			result.Outcome = models.ScanOutcomeCheckedOut
			result.Lateness = current.Lateness
			result.Record = current
			return nil

		default:
			return appErrors.ErrAlreadyClosed
		}
	})
	if err != nil {
		if errors.Is(err, repository.ErrDayAlreadyRecorded) {
			return nil, appErrors.Wrap(err, appErrors.ErrAlreadyCheckedIn.Code, appErrors.ErrAlreadyCheckedIn.Status, appErrors.ErrAlreadyCheckedIn.Message)
		}
		return nil, storeError(err, "failed to record attendance")
	}

	s.logger.Info("attendance scan recorded",
		zap.String("student_id", student.ID),
		zap.String("outcome", string(result.Outcome)),
		zap.Bool("inside_geofence", fence.Inside),
		zap.Float64("distance_meters", fence.DistanceMeters),
	)
	return result, nil
}

func newCheckIn(studentID string, date, now time.Time, schedule *models.ScheduleConfig, fence geo.Result, req dto.ScanRequest) *models.AttendanceRecord {
	lateness := ClassifyLateness(now, *schedule)
	distance := fence.DistanceMeters
	lat, lon := *req.Latitude, *req.Longitude
	record := &models.AttendanceRecord{
		StudentID:        studentID,
		AttendanceDate:   date,
		CheckInAt:        &now,
		Lateness:         &lateness,
		Status:           models.AttendanceStatusPresent,
		InsideGeofence:   fence.Inside,
		DistanceMeters:   &distance,
		ScanLatitude:     &lat,
		ScanLongitude:    &lon,
		ScheduleConfigID: schedule.ID,
		CreatedAt:        now,
	}
	if device := strings.TrimSpace(req.DeviceInfo); device != "" {
		record.DeviceInfo = &device
	}
	return record
}

// Today returns the student's record for the current date with the active schedule.
func (s *AttendanceService) Today(ctx context.Context, studentID string) (*models.TodayStatus, error) {
	now := s.opts.Clock.Now()
	date := clock.Date(now)

	record, err := s.store.FindByStudentDate(ctx, studentID, date)
	if err != nil {
		return nil, storeError(err, "failed to load attendance")
	}

	status := &models.TodayStatus{Date: date, State: record.State(), Record: record}
	schedule, err := s.schedules.GetActive(ctx)
	switch {
	case err == nil:
		status.Schedule = schedule
	case errors.Is(err, appErrors.ErrScheduleNotConfigured):
	default:
		return nil, err
	}
	return status, nil
}

// List returns paginated attendance history.
func (s *AttendanceService) List(ctx context.Context, query dto.AttendanceQuery) ([]models.AttendanceRecordDetail, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid attendance query")
	}

	loc := s.opts.Clock.Now().Location()
	filter := models.AttendanceFilter{
		StudentID: query.StudentID,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortOrder: query.SortOrder,
	}
	if query.Status != "" {
		status := models.AttendanceStatus(query.Status)
		filter.Status = &status
	}
	if query.DateFrom != "" {
		from, _ := time.ParseInLocation("2006-01-02", query.DateFrom, loc)
		filter.DateFrom = &from
	}
	if query.DateTo != "" {
		to, _ := time.ParseInLocation("2006-01-02", query.DateTo, loc)
		filter.DateTo = &to
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date_to must not precede date_from")
	}

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list attendance")
	}
	return items, pagination(query.Page, query.PageSize, total), nil
}
