package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/internship-attendance-api/internal/models"
)

const scheduleColumns = `id, entry_time, departure_time, grace_period_minutes, center_lat, center_lon, radius_meters, active, created_by, created_at`

// scheduleReplaceLockKey serialises concurrent schedule replacements.
const scheduleReplaceLockKey = "schedule_configs:replace"

// ScheduleConfigRepository persists versioned attendance schedules.
type ScheduleConfigRepository struct {
	db *sqlx.DB
}

// NewScheduleConfigRepository constructs the repository.
func NewScheduleConfigRepository(db *sqlx.DB) *ScheduleConfigRepository {
	return &ScheduleConfigRepository{db: db}
}

// GetActive returns the active schedule or nil when none has been configured.
func (r *ScheduleConfigRepository) GetActive(ctx context.Context) (*models.ScheduleConfig, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedule_configs WHERE active = TRUE`
	var cfg models.ScheduleConfig
	if err := r.db.GetContext(ctx, &cfg, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active schedule: %w", err)
	}
	return &cfg, nil
}

// Replace deactivates the current schedule and inserts cfg as the new active
// row in a single transaction. Readers observe either version, never neither.
func (r *ScheduleConfigRepository) Replace(ctx context.Context, cfg *models.ScheduleConfig) (err error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	cfg.Active = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule replace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, scheduleReplaceLockKey); err != nil {
		return fmt.Errorf("lock schedule replace: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE schedule_configs SET active = FALSE WHERE active = TRUE`); err != nil {
		return fmt.Errorf("deactivate schedule: %w", err)
	}

	const insert = `INSERT INTO schedule_configs (` + scheduleColumns + `)
VALUES (:id, :entry_time, :departure_time, :grace_period_minutes, :center_lat, :center_lon, :radius_meters, :active, :created_by, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, cfg); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule replace: %w", err)
	}
	return nil
}

// List returns schedule versions newest first with the total count.
func (r *ScheduleConfigRepository) List(ctx context.Context, page, size int) ([]models.ScheduleConfig, int, error) {
	page, size = normalisePage(page, size)
	query := fmt.Sprintf(`SELECT `+scheduleColumns+` FROM schedule_configs ORDER BY created_at DESC LIMIT %d OFFSET %d`, size, (page-1)*size)

	var items []models.ScheduleConfig
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM schedule_configs`); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}
	return items, total, nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
