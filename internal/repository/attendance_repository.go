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

const attendanceColumns = `id, student_id, attendance_date, check_in_at, check_out_at, lateness, status, inside_geofence,
	distance_meters, scan_latitude, scan_longitude, device_info, schedule_config_id, leave_request_id, created_at, updated_at`

// ErrDayAlreadyRecorded is returned when an insert lost the race for a (student, date) slot.
var ErrDayAlreadyRecorded = errors.New("attendance already recorded for date")

// AttendanceDayTx is the set of operations available while the (student, date)
// slot is locked. All calls share one transaction.
type AttendanceDayTx interface {
	Current(ctx context.Context) (*models.AttendanceRecord, error)
	Insert(ctx context.Context, record *models.AttendanceRecord) error
	CloseOut(ctx context.Context, id string, at time.Time) error
}

// AttendanceRepository persists daily attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// DayLockKey names the advisory lock guarding a student's attendance day.
func DayLockKey(studentID string, date time.Time) string {
	return "attendance:" + studentID + ":" + date.Format("2006-01-02")
}

// WithDayLock runs fn inside a transaction holding the advisory lock for
// (studentID, date). The transaction commits when fn returns nil and rolls
// back otherwise.
func (r *AttendanceRepository) WithDayLock(ctx context.Context, studentID string, date time.Time, fn func(AttendanceDayTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, DayLockKey(studentID, date)); err != nil {
		return fmt.Errorf("lock attendance day: %w", err)
	}

	if err = fn(&attendanceDayTx{tx: tx, studentID: studentID, date: date}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance transaction: %w", err)
	}
	return nil
}

// FindByStudentDate returns the record for the slot or nil.
func (r *AttendanceRepository) FindByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE student_id = $1 AND attendance_date = $2`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, studentID, date.Format("2006-01-02")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// List returns records matching the filter joined with student metadata.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0, 4)

	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, filter.DateFrom.Format("2006-01-02"))
		conditions = append(conditions, fmt.Sprintf("a.attendance_date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, filter.DateTo.Format("2006-01-02"))
		conditions = append(conditions, fmt.Sprintf("a.attendance_date <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" {
		order = "DESC"
	}
	page, size := normalisePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT a.id, a.student_id, a.attendance_date, a.check_in_at, a.check_out_at, a.lateness, a.status,
	a.inside_geofence, a.distance_meters, a.scan_latitude, a.scan_longitude, a.device_info, a.schedule_config_id,
	a.leave_request_id, a.created_at, a.updated_at, s.nim, s.full_name AS student_name
FROM attendance_records a JOIN students s ON s.id = a.student_id
WHERE %s ORDER BY a.attendance_date %s, s.full_name ASC LIMIT %d OFFSET %d`, where, order, size, (page-1)*size)

	var items []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM attendance_records a WHERE %s`, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return items, total, nil
}

type attendanceDayTx struct {
	tx        *sqlx.Tx
	studentID string
	date      time.Time
}

func (t *attendanceDayTx) Current(ctx context.Context) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE student_id = $1 AND attendance_date = $2 FOR UPDATE`
	var record models.AttendanceRecord
	if err := t.tx.GetContext(ctx, &record, query, t.studentID, t.date.Format("2006-01-02")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock attendance row: %w", err)
	}
	return &record, nil
}

func (t *attendanceDayTx) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	if record.StudentID != t.studentID || !sameDay(record.AttendanceDate, t.date) {
		return fmt.Errorf("insert attendance: record for %s outside locked slot %s", DayLockKey(record.StudentID, record.AttendanceDate), DayLockKey(t.studentID, t.date))
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = record.CreatedAt

	const query = `INSERT INTO attendance_records (
	id, student_id, attendance_date, check_in_at, check_out_at, lateness, status, inside_geofence,
	distance_meters, scan_latitude, scan_longitude, device_info, schedule_config_id, leave_request_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (student_id, attendance_date) DO NOTHING`
	res, err := t.tx.ExecContext(ctx, query,
		record.ID, record.StudentID, record.AttendanceDate.Format("2006-01-02"), record.CheckInAt, record.CheckOutAt,
		record.Lateness, record.Status, record.InsideGeofence, record.DistanceMeters, record.ScanLatitude,
		record.ScanLongitude, record.DeviceInfo, record.ScheduleConfigID, record.LeaveRequestID, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance rows: %w", err)
	}
	if affected == 0 {
		return ErrDayAlreadyRecorded
	}
	return nil
}

func (t *attendanceDayTx) CloseOut(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE attendance_records SET check_out_at = $1, updated_at = $2
WHERE id = $3 AND check_in_at IS NOT NULL AND check_out_at IS NULL`
	res, err := t.tx.ExecContext(ctx, query, at, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("close attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close attendance rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("close attendance %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
