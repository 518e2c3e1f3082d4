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

// ErrLogbookDateTaken is returned by Create when the student already has an
// entry for that date.
var ErrLogbookDateTaken = errors.New("logbook entry already exists for date")

const logbookColumns = `id, student_id, supervisor_id, entry_date, activity, progress, status, review_note, signature, reviewed_by, reviewed_at, created_at, updated_at`

const logbookDetailSelect = `SELECT l.id, l.student_id, l.supervisor_id, l.entry_date, l.activity, l.progress, l.status, l.review_note,
	l.signature, l.reviewed_by, l.reviewed_at, l.created_at, l.updated_at, s.nim, s.full_name AS student_name
FROM logbook_entries l JOIN students s ON s.id = l.student_id`

// LogbookRepository persists daily logbook entries and their review state.
type LogbookRepository struct {
	db *sqlx.DB
}

// NewLogbookRepository constructs the repository.
func NewLogbookRepository(db *sqlx.DB) *LogbookRepository {
	return &LogbookRepository{db: db}
}

// Create inserts a pending entry. The unique (student_id, entry_date) index
// decides between concurrent submissions for the same day.
func (r *LogbookRepository) Create(ctx context.Context, entry *models.LogbookEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = models.LogbookStatusPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.UpdatedAt = entry.CreatedAt

	const query = `INSERT INTO logbook_entries (` + logbookColumns + `)
VALUES (:id, :student_id, :supervisor_id, :entry_date, :activity, :progress, :status, :review_note, :signature, :reviewed_by, :reviewed_at, :created_at, :updated_at)
ON CONFLICT (student_id, entry_date) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("create logbook entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrLogbookDateTaken
	}
	return nil
}

// GetByID returns the entry with student metadata, or nil when absent.
func (r *LogbookRepository) GetByID(ctx context.Context, id string) (*models.LogbookEntryDetail, error) {
	var entry models.LogbookEntryDetail
	if err := r.db.GetContext(ctx, &entry, logbookDetailSelect+` WHERE l.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get logbook entry: %w", err)
	}
	return &entry, nil
}

// List returns entries in journal order, oldest date first.
func (r *LogbookRepository) List(ctx context.Context, filter models.LogbookFilter) ([]models.LogbookEntryDetail, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 6)

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("l.student_id = $%d", len(args)))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		conditions = append(conditions, fmt.Sprintf("(l.supervisor_id = $%d OR l.supervisor_id IS NULL)", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("l.entry_date = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(s.full_name ILIKE $%d OR s.nim ILIKE $%d OR l.activity ILIKE $%d)", n, n, n))
	}

	where := strings.Join(conditions, " AND ")
	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf(logbookDetailSelect+` WHERE %s ORDER BY l.entry_date ASC, l.created_at ASC LIMIT %d OFFSET %d`, where, size, (page-1)*size)

	var items []models.LogbookEntryDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list logbook entries: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM logbook_entries l JOIN students s ON s.id = l.student_id WHERE %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count logbook entries: %w", err)
	}
	return items, total, nil
}

// Review records a decision on a pending entry. It returns nil without error
// when the entry was no longer pending.
func (r *LogbookRepository) Review(ctx context.Context, id string, status models.LogbookStatus, note, signature *string, reviewerID string, at time.Time) (*models.LogbookEntry, error) {
	query := `UPDATE logbook_entries
SET status = $1, review_note = $2, signature = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5
WHERE id = $6 AND status = 'pending'
RETURNING ` + logbookColumns
	var entry models.LogbookEntry
	if err := r.db.GetContext(ctx, &entry, query, status, note, signature, reviewerID, at, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review logbook entry: %w", err)
	}
	return &entry, nil
}

// Revise rewrites a rejected entry owned by studentID and puts it back in
// the review queue. It returns nil without error when no such entry exists.
func (r *LogbookRepository) Revise(ctx context.Context, id, studentID, activity string, progress int, at time.Time) (*models.LogbookEntry, error) {
	query := `UPDATE logbook_entries
SET activity = $1, progress = $2, status = 'pending', review_note = NULL, signature = NULL,
	reviewed_by = NULL, reviewed_at = NULL, updated_at = $3
WHERE id = $4 AND student_id = $5 AND status = 'rejected'
RETURNING ` + logbookColumns
	var entry models.LogbookEntry
	if err := r.db.GetContext(ctx, &entry, query, activity, progress, at, id, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("revise logbook entry: %w", err)
	}
	return &entry, nil
}

// Delete removes an entry unless it has been approved, reporting whether a
// row was removed.
func (r *LogbookRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logbook_entries WHERE id = $1 AND status <> 'approved'`, id)
	if err != nil {
		return false, fmt.Errorf("delete logbook entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete logbook entry: %w", err)
	}
	return n > 0, nil
}
