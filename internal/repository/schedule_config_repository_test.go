package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internship-attendance-api/internal/models"
)

var scheduleRowColumns = []string{"id", "entry_time", "departure_time", "grace_period_minutes", "center_lat", "center_lon", "radius_meters", "active", "created_by", "created_at"}

func TestScheduleConfigRepositoryGetActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleConfigRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_configs WHERE active = TRUE")).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow("sch-1", []byte("08:00:00"), []byte("17:00:00"), 15, -6.2, 106.8, 100.0, true, "adm-1", time.Now()))

	cfg, err := repo.GetActive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, models.NewTimeOfDay(8, 0, 0), cfg.EntryTime)
	assert.Equal(t, models.NewTimeOfDay(17, 0, 0), cfg.DepartureTime)
	assert.Equal(t, 15*time.Minute, cfg.GracePeriod())
}

func TestScheduleConfigRepositoryGetActiveNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleConfigRepository(db)

	mock.ExpectQuery("FROM schedule_configs").WillReturnError(sql.ErrNoRows)

	cfg, err := repo.GetActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestScheduleConfigRepositoryReplaceIsAtomic(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleConfigRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtextextended($1, 0))")).
		WithArgs(scheduleReplaceLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_configs SET active = FALSE WHERE active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO schedule_configs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	cfg := &models.ScheduleConfig{EntryTime: models.NewTimeOfDay(8, 0, 0), DepartureTime: models.NewTimeOfDay(17, 0, 0), GracePeriodMinutes: 10, RadiusMeters: 150}
	require.NoError(t, repo.Replace(context.Background(), cfg))
	assert.NotEmpty(t, cfg.ID)
	assert.True(t, cfg.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleConfigRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleConfigRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE schedule_configs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO schedule_configs").WillReturnError(errors.New("check violation"))
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), &models.ScheduleConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert schedule")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleConfigRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleConfigRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_configs ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows(scheduleRowColumns).
			AddRow("sch-2", "08:00:00", "17:00:00", 15, -6.2, 106.8, 100.0, true, nil, time.Now()).
			AddRow("sch-1", "07:30:00", "16:00:00", 10, -6.2, 106.8, 80.0, false, nil, time.Now().Add(-time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedule_configs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	items, total, err := repo.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, total)
	assert.False(t, items[1].Active)
}
