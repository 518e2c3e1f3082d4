package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internship-attendance-api/internal/models"
)

const leaveColumns = `id, student_id, supervisor_id, start_date, end_date, category, reason, status, review_note, reviewed_by, reviewed_at, created_at, updated_at`

// LeaveRepository persists leave requests and their review state.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs the repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a pending leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	if leave.Status == "" {
		leave.Status = models.LeaveStatusPending
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = leave.CreatedAt

	const query = `INSERT INTO leave_requests (` + leaveColumns + `)
VALUES (:id, :student_id, :supervisor_id, :start_date, :end_date, :category, :reason, :status, :review_note, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// GetByID returns the leave request or nil when it does not exist.
func (r *LeaveRepository) GetByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get leave request: %w", err)
	}
	return &leave, nil
}

// List returns leave requests newest first.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 4)

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		conditions = append(conditions, fmt.Sprintf("(supervisor_id = $%d OR supervisor_id IS NULL)", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(`SELECT `+leaveColumns+` FROM leave_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, size, (page-1)*size)

	var items []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf(`SELECT COUNT(*) FROM leave_requests WHERE %s`, where), args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return items, total, nil
}

// Review moves a pending request to status. It returns nil without error when
// the request was no longer pending, so exactly one reviewer wins.
func (r *LeaveRepository) Review(ctx context.Context, id string, status models.LeaveStatus, note *string, reviewerID string, at time.Time) (*models.LeaveRequest, error) {
	query := `UPDATE leave_requests
SET status = $1, review_note = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4
WHERE id = $5 AND status = 'pending'
RETURNING ` + leaveColumns
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, status, note, reviewerID, at, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review leave request: %w", err)
	}
	return &leave, nil
}
