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
	"github.com/noah-isme/internship-attendance-api/internal/repository"
	"github.com/noah-isme/internship-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

type logbookStore interface {
	Create(ctx context.Context, entry *models.LogbookEntry) error
	GetByID(ctx context.Context, id string) (*models.LogbookEntryDetail, error)
	List(ctx context.Context, filter models.LogbookFilter) ([]models.LogbookEntryDetail, int, error)
	Review(ctx context.Context, id string, status models.LogbookStatus, note, signature *string, reviewerID string, at time.Time) (*models.LogbookEntry, error)
	Revise(ctx context.Context, id, studentID, activity string, progress int, at time.Time) (*models.LogbookEntry, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// LogbookService runs the daily journal workflow: students write one entry
// per day, their supervisor signs or rejects it.
type LogbookService struct {
	repo      logbookStore
	students  studentLookup
	validator *validator.Validate
	logger    *zap.Logger
	clock     clock.Clock
}

// NewLogbookService constructs the service.
func NewLogbookService(repo logbookStore, students studentLookup, validate *validator.Validate, logger *zap.Logger, clk clock.Clock) *LogbookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(time.UTC)
	}
	return &LogbookService{repo: repo, students: students, validator: validate, logger: logger, clock: clk}
}

// Submit records studentID's entry for a past or current date.
func (s *LogbookService) Submit(ctx context.Context, studentID string, req dto.CreateLogbookRequest) (*models.LogbookEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid logbook payload")
	}
	now := s.clock.Now()
	date, _ := time.ParseInLocation("2006-01-02", req.Date, now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.After(today) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must not be in the future")
	}
	activity := strings.TrimSpace(req.Activity)
	if activity == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity is required")
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "failed to load student")
	}
	if student == nil || !student.Active() {
		return nil, appErrors.ErrStudentNotFound
	}

	entry := &models.LogbookEntry{
		StudentID:    student.ID,
		SupervisorID: student.SupervisorID,
		EntryDate:    date,
		Activity:     activity,
		Progress:     *req.Progress,
		Status:       models.LogbookStatusPending,
		CreatedAt:    now.UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrLogbookDateTaken) {
			return nil, appErrors.ErrLogbookExists
		}
		return nil, storeError(err, "failed to save logbook entry")
	}
	s.logger.Info("logbook entry submitted", zap.String("logbook_id", entry.ID), zap.String("student_id", entry.StudentID))
	return entry, nil
}

// List returns entries visible to actor.
func (s *LogbookService) List(ctx context.Context, query dto.LogbookQuery, actor *models.JWTClaims) ([]models.LogbookEntryDetail, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationError(err, "invalid logbook query")
	}
	filter := models.LogbookFilter{StudentID: query.StudentID, Search: query.Search, Page: query.Page, PageSize: query.PageSize}
	if query.Date != "" {
		date, _ := time.ParseInLocation("2006-01-02", query.Date, s.clock.Now().Location())
		filter.Date = &date
	}
	if query.Status != "" {
		status := models.LogbookStatus(query.Status)
		filter.Status = &status
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
		return nil, nil, storeError(err, "failed to list logbook entries")
	}
	return items, pagination(query.Page, query.PageSize, total), nil
}

// Get returns a single entry visible to actor.
func (s *LogbookService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.LogbookEntryDetail, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeLogbook(&entry.LogbookEntry, actor); err != nil {
		return nil, err
	}
	return entry, nil
}

// Review signs or rejects a pending entry.
func (s *LogbookService) Review(ctx context.Context, id string, req dto.ReviewLogbookRequest, reviewer *models.JWTClaims) (*models.LogbookEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	if reviewer == nil || reviewer.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeLogbook(&entry.LogbookEntry, reviewer); err != nil {
		return nil, err
	}
	if entry.Status != models.LogbookStatusPending {
		return nil, appErrors.ErrLogbookReviewed
	}

	now := s.clock.Now()
	decision := models.LogbookStatus(req.Decision)
	var note, signature *string
	if trimmed := strings.TrimSpace(req.ReviewNote); trimmed != "" {
		note = &trimmed
	}
	switch decision {
	case models.LogbookStatusApproved:
		signed := signatureFor(reviewer, now)
		signature = &signed
	case models.LogbookStatusRejected:
		if note == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "review_note is required when rejecting")
		}
	}

	updated, err := s.repo.Review(ctx, id, decision, note, signature, reviewer.UserID, now.UTC())
	if err != nil {
		return nil, storeError(err, "failed to review logbook entry")
	}
	if updated == nil {
		return nil, appErrors.ErrLogbookReviewed
	}
	s.logger.Info("logbook entry reviewed",
		zap.String("logbook_id", id),
		zap.String("decision", string(decision)),
		zap.String("reviewer_id", reviewer.UserID),
	)
	return updated, nil
}

// Revise lets the owning student rewrite a rejected entry, returning it to
// the review queue.
func (s *LogbookService) Revise(ctx context.Context, id string, req dto.ReviseLogbookRequest, actor *models.JWTClaims) (*models.LogbookEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid logbook payload")
	}
	if actor == nil || actor.Role != models.RoleStudent {
		return nil, appErrors.ErrForbidden
	}
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeLogbook(&entry.LogbookEntry, actor); err != nil {
		return nil, err
	}
	if entry.Status != models.LogbookStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrLogbookLocked, "only rejected entries can be revised")
	}
	activity := strings.TrimSpace(req.Activity)
	if activity == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity is required")
	}

	updated, err := s.repo.Revise(ctx, id, actor.StudentID, activity, *req.Progress, s.clock.Now().UTC())
	if err != nil {
		return nil, storeError(err, "failed to revise logbook entry")
	}
	if updated == nil {
		return nil, appErrors.Clone(appErrors.ErrLogbookLocked, "only rejected entries can be revised")
	}
	s.logger.Info("logbook entry revised", zap.String("logbook_id", id), zap.String("student_id", actor.StudentID))
	return updated, nil
}

// Delete removes an unsigned entry. Signed entries are part of the record.
func (s *LogbookService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	entry, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorizeLogbook(&entry.LogbookEntry, actor); err != nil {
		return err
	}
	if entry.Signed() || entry.Status == models.LogbookStatusApproved {
		return appErrors.Clone(appErrors.ErrLogbookLocked, "approved entries cannot be deleted")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeError(err, "failed to delete logbook entry")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrLogbookLocked, "approved entries cannot be deleted")
	}
	s.logger.Info("logbook entry deleted", zap.String("logbook_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

func (s *LogbookService) load(ctx context.Context, id string) (*models.LogbookEntryDetail, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "failed to load logbook entry")
	}
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "logbook entry not found")
	}
	return entry, nil
}

func signatureFor(reviewer *models.JWTClaims, at time.Time) string {
	name := strings.TrimSpace(reviewer.FullName)
	if name == "" {
		name = reviewer.UserID
	}
	return fmt.Sprintf("Signed by %s at %s", name, at.Format(time.RFC3339))
}

func authorizeLogbook(entry *models.LogbookEntry, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleStudent:
		if actor.StudentID == entry.StudentID {
			return nil
		}
	case models.RoleAdmin:
		if entry.SupervisorID == nil || *entry.SupervisorID == actor.UserID {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
