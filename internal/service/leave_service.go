package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
	"github.com/noah-isme/internship-attendance-api/pkg/jobs"
)

// BackfillJobType identifies leave backfill retries on the job queue.
const BackfillJobType = "leave_backfill"

type leaveStore interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	GetByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	Review(ctx context.Context, id string, status models.LeaveStatus, note *string, reviewerID string, at time.Time) (*models.LeaveRequest, error)
}

type leaveBackfiller interface {
	Backfill(ctx context.Context, leave *models.LeaveRequest, schedule *models.ScheduleConfig) (*models.BackfillResult, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// backfillJob is the payload of a queued backfill retry. The schedule is the
// one resolved at approval time.
type backfillJob struct {
	LeaveID  string
	Schedule models.ScheduleConfig
}

// LeaveService runs the leave request workflow.
type LeaveService struct {
	repo      leaveStore
	students  studentLookup
	schedules activeScheduleProvider
	backfill  leaveBackfiller
	retries   jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
	clock     clock.Clock
}

// NewLeaveService constructs the service.
func NewLeaveService(
	repo leaveStore,
	students studentLookup,
	schedules activeScheduleProvider,
	backfill leaveBackfiller,
	validate *validator.Validate,
	logger *zap.Logger,
	clk clock.Clock,
) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(time.UTC)
	}
	_ = validate.RegisterValidation("leave_decision", func(fl validator.FieldLevel) bool {
		switch models.LeaveStatus(fl.Field().String()) {
		case models.LeaveStatusApproved, models.LeaveStatusRejected:
			return true
		default:
			return false
		}
	})
	return &LeaveService{
		repo:      repo,
		students:  students,
		schedules: schedules,
		backfill:  backfill,
		validator: validate,
		logger:    logger,
		clock:     clk,
	}
}

// UseRetryQueue wires the queue that retries incomplete backfills.
func (s *LeaveService) UseRetryQueue(q jobEnqueuer) {
	s.retries = q
}

// Submit files a pending leave request for studentID.
func (s *LeaveService) Submit(ctx context.Context, studentID string, req dto.CreateLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid leave request payload")
	}
	loc := s.clock.Now().Location()
	start, _ := time.ParseInLocation("2006-01-02", req.StartDate, loc)
	end, _ := time.ParseInLocation("2006-01-02", req.EndDate, loc)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "failed to load student")
	}
	if student == nil || !student.Active() {
		return nil, appErrors.ErrStudentNotFound
	}

	leave := &models.LeaveRequest{
		StudentID:    student.ID,
		SupervisorID: student.SupervisorID,
		StartDate:    start,
		EndDate:      end,
		Category:     models.LeaveCategory(req.Category),
		Reason:       strings.TrimSpace(req.Reason),
		Status:       models.LeaveStatusPending,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.repo.Create(ctx, leave); err != nil {
		return nil, storeError(err, "failed to submit leave request")
	}
	s.logger.Info("leave request submitted", zap.String("leave_request_id", leave.ID), zap.String("student_id", leave.StudentID))
	return leave, nil
}

// List returns leave requests visible to actor.
func (s *LeaveService) List(ctx context.Context, query dto.LeaveQuery, actor *models.JWTClaims) ([]models.LeaveRequest, *models.Pagination, error) {
	filter := models.LeaveFilter{StudentID: query.StudentID, Page: query.Page, PageSize: query.PageSize}
	for _, raw := range query.Status {
		status := models.LeaveStatus(strings.ToLower(strings.TrimSpace(raw)))
		switch status {
		case models.LeaveStatusPending, models.LeaveStatusApproved, models.LeaveStatusRejected:
			filter.Status = append(filter.Status, status)
		default:
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", raw))
		}
	}

	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.StudentID
	case models.RoleAdmin:
		filter.SupervisorID = actor.UserID
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list leave requests")
	}
	return items, pagination(query.Page, query.PageSize, total), nil
}

// Get returns a single leave request visible to actor.
func (s *LeaveService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LeaveRequest, error) {
	leave, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeLeave(leave, actor); err != nil {
		return nil, err
	}
	return leave, nil
}

// Review records the reviewer's decision. Approval resolves the active
// schedule first, so a missing schedule leaves the request pending, then
// backfills the covered dates.
func (s *LeaveService) Review(ctx context.Context, id string, req dto.ReviewLeaveRequest, reviewer *models.JWTClaims) (*models.LeaveReviewResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	leave, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeLeave(leave, reviewer); err != nil {
		return nil, err
	}
	if leave.Status != models.LeaveStatusPending {
		return nil, appErrors.ErrLeaveReviewed
	}

	decision := models.LeaveStatus(req.Decision)
	var schedule *models.ScheduleConfig
	if decision == models.LeaveStatusApproved {
		if schedule, err = s.schedules.GetActive(ctx); err != nil {
			return nil, err
		}
	}

	var note *string
	if trimmed := strings.TrimSpace(req.ReviewNote); trimmed != "" {
		note = &trimmed
	}
	updated, err := s.repo.Review(ctx, id, decision, note, reviewer.UserID, s.clock.Now().UTC())
	if err != nil {
		return nil, storeError(err, "failed to review leave request")
	}
	if updated == nil {
		return nil, appErrors.ErrLeaveReviewed
	}
	s.logger.Info("leave request reviewed",
		zap.String("leave_request_id", id),
		zap.String("decision", string(decision)),
		zap.String("reviewer_id", reviewer.UserID),
	)

	result := &models.LeaveReviewResult{Leave: updated}
	if decision != models.LeaveStatusApproved {
		return result, nil
	}

	backfill, err := s.backfill.Backfill(ctx, updated, schedule)
	if err != nil {
		// The decision is committed; the backfill can be restarted.
		s.logger.Error("leave backfill aborted", zap.String("leave_request_id", id), zap.Error(err))
		result.RetryScheduled = s.scheduleRetry(updated.ID, *schedule)
		return result, nil
	}
	result.Backfill = backfill
	if !backfill.Complete() {
		result.RetryScheduled = s.scheduleRetry(updated.ID, *schedule)
	}
	return result, nil
}

// RetryBackfill re-runs the backfill of an approved request against the
// current schedule.
func (s *LeaveService) RetryBackfill(ctx context.Context, id string) (*models.BackfillResult, error) {
	leave, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if leave.Status != models.LeaveStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only approved leave requests can be backfilled")
	}
	schedule, err := s.schedules.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.backfill.Backfill(ctx, leave, schedule)
}

// HandleBackfillJob is the queue handler for backfill retries. It returns an
// error while dates remain unfilled so the queue retries with backoff.
func (s *LeaveService) HandleBackfillJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(backfillJob)
	if !ok {
		s.logger.Error("unexpected backfill job payload", zap.String("key", job.Key))
		return nil
	}
	leave, err := s.load(ctx, payload.LeaveID)
	if err != nil {
		return err
	}
	result, err := s.backfill.Backfill(ctx, leave, &payload.Schedule)
	if err != nil {
		return err
	}
	if !result.Complete() {
		return fmt.Errorf("leave %s backfill incomplete: %d dates failed", leave.ID, len(result.Failed))
	}
	return nil
}

func (s *LeaveService) scheduleRetry(leaveID string, schedule models.ScheduleConfig) bool {
	if s.retries == nil {
		return false
	}
	err := s.retries.Enqueue(jobs.Job{
		Key:     "leave-backfill:" + leaveID,
		Type:    BackfillJobType,
		Payload: backfillJob{LeaveID: leaveID, Schedule: schedule},
	})
	switch {
	case err == nil, errors.Is(err, jobs.ErrDuplicate):
		return true
	default:
		s.logger.Warn("failed to schedule backfill retry", zap.String("leave_request_id", leaveID), zap.Error(err))
		return false
	}
}

func (s *LeaveService) load(ctx context.Context, id string) (*models.LeaveRequest, error) {
	leave, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load leave request")
	}
	if leave == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
	}
	return leave, nil
}

func authorizeLeave(leave *models.LeaveRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleStudent:
		if actor.StudentID == leave.StudentID {
			return nil
		}
	case models.RoleAdmin:
		if leave.SupervisorID == nil || *leave.SupervisorID == actor.UserID {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
