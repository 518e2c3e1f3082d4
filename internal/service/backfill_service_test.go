package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internship-attendance-api/internal/models"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

func jan(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, wib)
}

func approvedLeave(from, to int) *models.LeaveRequest {
	return &models.LeaveRequest{
		ID:        "lv-1",
		StudentID: "stu-1",
		StartDate: time.Date(2024, 1, from, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, to, 0, 0, 0, 0, time.UTC),
		Category:  models.LeaveCategorySick,
		Status:    models.LeaveStatusApproved,
	}
}

func TestBackfillFillsEveryDateOnce(t *testing.T) {
	store := newMemoryAttendanceStore()
	svc := NewBackfillService(store, NewMetricsService(), nil, wib)
	ctx := context.Background()

	result, err := svc.Backfill(ctx, approvedLeave(1, 3), officeSchedule())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{jan(1), jan(2), jan(3)}, result.Created)
	assert.Empty(t, result.Skipped)
	assert.True(t, result.Complete())

	rec, ok := store.get("stu-1", jan(2))
	require.True(t, ok)
	assert.Equal(t, models.AttendanceStatusExcused, rec.Status)
	assert.Equal(t, models.LatenessOnTime, *rec.Lateness)
	assert.Equal(t, jan(2).Add(8*time.Hour), *rec.CheckInAt)
	assert.Equal(t, jan(2).Add(17*time.Hour), *rec.CheckOutAt)
	assert.True(t, rec.InsideGeofence)
	require.NotNil(t, rec.LeaveRequestID)
	assert.Equal(t, "lv-1", *rec.LeaveRequestID)

	again, err := svc.Backfill(ctx, approvedLeave(1, 3), officeSchedule())
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Len(t, again.Skipped, 3)
	assert.Equal(t, 3, store.count())
}

func TestBackfillKeepsExistingRecords(t *testing.T) {
	store := newMemoryAttendanceStore()
	checkIn := jan(2).Add(8*time.Hour + 40*time.Minute)
	late := models.LatenessLate
	store.put(models.AttendanceRecord{
		ID:             "att-real",
		StudentID:      "stu-1",
		AttendanceDate: jan(2),
		CheckInAt:      &checkIn,
		Lateness:       &late,
		Status:         models.AttendanceStatusPresent,
	})
	svc := NewBackfillService(store, nil, nil, wib)

	result, err := svc.Backfill(context.Background(), approvedLeave(1, 3), officeSchedule())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{jan(1), jan(3)}, result.Created)
	assert.Equal(t, []time.Time{jan(2)}, result.Skipped)

	rec, _ := store.get("stu-1", jan(2))
	assert.Equal(t, "att-real", rec.ID)
	assert.Equal(t, models.AttendanceStatusPresent, rec.Status)
	assert.Nil(t, rec.CheckOutAt)
	assert.Nil(t, rec.LeaveRequestID)
}

func TestBackfillContinuesPastFailedDate(t *testing.T) {
	store := newMemoryAttendanceStore()
	store.failOn("stu-1", jan(2), errors.New("connection reset"))
	svc := NewBackfillService(store, nil, nil, wib)

	result, err := svc.Backfill(context.Background(), approvedLeave(1, 3), officeSchedule())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{jan(1), jan(3)}, result.Created)
	assert.Equal(t, []time.Time{jan(2)}, result.Failed)
	assert.False(t, result.Complete())
}

func TestBackfillCancelledContextFailsRemainingDates(t *testing.T) {
	svc := NewBackfillService(newMemoryAttendanceStore(), nil, nil, wib)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Backfill(ctx, approvedLeave(1, 2), officeSchedule())
	require.NoError(t, err)
	assert.Len(t, result.Failed, 2)
}

func TestBackfillRequiresApprovedLeave(t *testing.T) {
	svc := NewBackfillService(newMemoryAttendanceStore(), nil, nil, wib)
	leave := approvedLeave(1, 1)
	leave.Status = models.LeaveStatusPending

	_, err := svc.Backfill(context.Background(), leave, officeSchedule())
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Backfill(context.Background(), approvedLeave(1, 1), nil)
	assert.True(t, errors.Is(err, appErrors.ErrScheduleNotConfigured))

	_, err = svc.Backfill(context.Background(), approvedLeave(3, 1), officeSchedule())
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
