package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/internship-attendance-api/internal/dto"
	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

var wib = time.FixedZone("WIB", 7*3600)

func at(hour, minute, second int) time.Time {
	return time.Date(2024, 1, 2, hour, minute, second, 0, wib)
}

type attendanceFixture struct {
	svc       *AttendanceService
	store     *memoryAttendanceStore
	students  *studentStub
	schedules *scheduleProviderStub
	clock     *clock.Fixed
	metrics   *MetricsService
}

func newAttendanceFixture(t *testing.T, opts AttendanceOptions) *attendanceFixture {
	t.Helper()
	f := &attendanceFixture{
		store: newMemoryAttendanceStore(),
		students: &studentStub{students: map[string]*models.Student{
			"stu-1": activeStudent("stu-1", "Sari Dewi", nil),
			"stu-2": {ID: "stu-2", FullName: "Budi", Status: models.StudentStatusInactive},
		}},
		schedules: &scheduleProviderStub{schedule: officeSchedule()},
		clock:     clock.NewFixed(at(8, 5, 0)),
		metrics:   NewMetricsService(),
	}
	opts.Clock = f.clock
	f.svc = NewAttendanceService(f.store, f.students, f.schedules, tokenStub{}, f.metrics, nil, nil, opts)
	return f
}

func scanAt(credential string, lat, lon float64) dto.ScanRequest {
	return dto.ScanRequest{Credential: credential, Latitude: &lat, Longitude: &lon, DeviceInfo: "kiosk-lobby"}
}

func officeScan(credential string) dto.ScanRequest {
	return scanAt(credential, -6.200000, 106.816666)
}

func TestClassifyLatenessBoundaries(t *testing.T) {
	schedule := *officeSchedule()
	cases := []struct {
		name string
		at   time.Time
		want models.Lateness
	}{
		{"before entry", at(7, 50, 0), models.LatenessOnTime},
		{"inside grace", at(8, 14, 0), models.LatenessOnTime},
		{"grace boundary", at(8, 15, 0), models.LatenessOnTime},
		{"fraction past grace", at(8, 15, 30), models.LatenessLate},
		{"after grace", at(8, 16, 0), models.LatenessLate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyLateness(tc.at, schedule))
		})
	}
}

func TestAttendanceScanCheckInThenCheckOut(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	ctx := context.Background()

	result, err := f.svc.Scan(ctx, officeScan("stu-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ScanOutcomeCheckedIn, result.Outcome)
	require.NotNil(t, result.Lateness)
	assert.Equal(t, models.LatenessOnTime, *result.Lateness)
	assert.True(t, result.InsideGeofence)
	assert.Equal(t, "Sari Dewi", result.StudentName)

	f.clock.Set(at(12, 0, 0))
	_, err = f.svc.Scan(ctx, officeScan("stu-1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTooEarly))
	assert.Contains(t, err.Error(), "17:00:00")

	f.clock.Set(at(17, 0, 0))
	result, err = f.svc.Scan(ctx, officeScan("stu-1"))
	require.NoError(t, err)
	assert.Equal(t, models.ScanOutcomeCheckedOut, result.Outcome)

	rec, ok := f.store.get("stu-1", clock.Date(at(0, 0, 0)))
	require.True(t, ok)
	assert.Equal(t, models.StateCheckedOut, rec.State())
	assert.Equal(t, models.AttendanceStatusPresent, rec.Status)
	require.NotNil(t, rec.DeviceInfo)
	assert.Equal(t, "kiosk-lobby", *rec.DeviceInfo)

	f.clock.Set(at(18, 0, 0))
	_, err = f.svc.Scan(ctx, officeScan("stu-1"))
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyClosed))
	assert.Equal(t, 1, f.store.count())
}

func TestAttendanceScanMarksLateCheckIn(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	f.clock.Set(at(8, 15, 30))

	result, err := f.svc.Scan(context.Background(), officeScan("stu-1"))
	require.NoError(t, err)
	assert.Equal(t, models.LatenessLate, *result.Lateness)
}

func TestAttendanceScanSettledRowIsClosed(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	f.store.put(models.AttendanceRecord{StudentID: "stu-1", AttendanceDate: clock.Date(at(0, 0, 0)), Status: models.AttendanceStatusAbsent})

	_, err := f.svc.Scan(context.Background(), officeScan("stu-1"))
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyClosed))
}

func TestAttendanceScanRejectsBadInput(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	ctx := context.Background()

	_, err := f.svc.Scan(ctx, officeScan("bad"))
	assert.True(t, errors.Is(err, appErrors.ErrInvalidToken))

	_, err = f.svc.Scan(ctx, dto.ScanRequest{Credential: "stu-1"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Scan(ctx, scanAt("stu-1", 95, 10))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Scan(ctx, officeScan("stu-2"))
	assert.True(t, errors.Is(err, appErrors.ErrStudentNotFound))

	_, err = f.svc.Scan(ctx, officeScan("stu-404"))
	assert.True(t, errors.Is(err, appErrors.ErrStudentNotFound))

	assert.Zero(t, f.store.count())
}

func TestAttendanceScanWithoutSchedule(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	f.schedules.schedule = nil

	_, err := f.svc.Scan(context.Background(), officeScan("stu-1"))
	assert.True(t, errors.Is(err, appErrors.ErrScheduleNotConfigured))
}

func TestAttendanceScanOutsideGeofence(t *testing.T) {
	// Gedung Sate, Bandung: far outside the Jakarta office radius.
	far := scanAt("stu-1", -6.902477, 107.618782)

	t.Run("recorded by default", func(t *testing.T) {
		f := newAttendanceFixture(t, AttendanceOptions{})
		result, err := f.svc.Scan(context.Background(), far)
		require.NoError(t, err)
		assert.False(t, result.InsideGeofence)
		assert.Greater(t, result.DistanceMeters, 100_000.0)

		rec, ok := f.store.get("stu-1", clock.Date(at(0, 0, 0)))
		require.True(t, ok)
		assert.False(t, rec.InsideGeofence)
	})

	t.Run("rejected when enforced", func(t *testing.T) {
		f := newAttendanceFixture(t, AttendanceOptions{RejectOutsideGeofence: true})
		_, err := f.svc.Scan(context.Background(), far)
		assert.True(t, errors.Is(err, appErrors.ErrOutsideGeofence))
		assert.Zero(t, f.store.count())
	})
}

func TestAttendanceScanMetricsLabelGeofenceOnlyOnceEvaluated(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{RejectOutsideGeofence: true})
	ctx := context.Background()
	far := scanAt("stu-1", -6.902477, 107.618782)

	_, err := f.svc.Scan(ctx, officeScan("bad"))
	require.Error(t, err)
	_, err = f.svc.Scan(ctx, officeScan("stu-404"))
	require.Error(t, err)
	_, err = f.svc.Scan(ctx, far)
	require.Error(t, err)
	_, err = f.svc.Scan(ctx, officeScan("stu-1"))
	require.NoError(t, err)
	f.clock.Set(at(12, 0, 0))
	_, err = f.svc.Scan(ctx, officeScan("stu-1"))
	require.Error(t, err)

	scans := f.metrics.scanTotal
	assert.Equal(t, 1.0, testutil.ToFloat64(scans.WithLabelValues("invalid_token", GeofenceUnknown)))
	assert.Equal(t, 1.0, testutil.ToFloat64(scans.WithLabelValues("student_not_found", GeofenceUnknown)))
	assert.Equal(t, 1.0, testutil.ToFloat64(scans.WithLabelValues("outside_geofence", GeofenceOutside)))
	assert.Equal(t, 1.0, testutil.ToFloat64(scans.WithLabelValues("checked_in", GeofenceInside)))
	assert.Equal(t, 1.0, testutil.ToFloat64(scans.WithLabelValues("checkout_too_early", GeofenceInside)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.outsideFence))
}

func TestAttendanceScanTransientStoreError(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	f.store.failOn("stu-1", clock.Date(at(0, 0, 0)), &pq.Error{Code: "40P01"})

	_, err := f.svc.Scan(context.Background(), officeScan("stu-1"))
	assert.True(t, errors.Is(err, appErrors.ErrTransient))
}

func TestAttendanceScanConcurrentCheckInsProduceOneRecord(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})

	var checkedIn, tooEarly atomic.Int32
	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			result, err := f.svc.Scan(context.Background(), officeScan("stu-1"))
			switch {
			case err == nil && result.Outcome == models.ScanOutcomeCheckedIn:
				checkedIn.Add(1)
			case errors.Is(err, appErrors.ErrTooEarly):
				tooEarly.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, checkedIn.Load())
	assert.EqualValues(t, 31, tooEarly.Load())
	assert.Equal(t, []string{"attendance:stu-1:2024-01-02"}, f.store.keys())
}

func TestAttendanceToday(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	ctx := context.Background()

	status, err := f.svc.Today(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateNoRecord, status.State)
	assert.Nil(t, status.Record)
	require.NotNil(t, status.Schedule)

	_, err = f.svc.Scan(ctx, officeScan("stu-1"))
	require.NoError(t, err)

	f.schedules.schedule = nil
	status, err = f.svc.Today(ctx, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateCheckedIn, status.State)
	assert.Nil(t, status.Schedule)
}

func TestAttendanceListValidatesRange(t *testing.T) {
	f := newAttendanceFixture(t, AttendanceOptions{})
	ctx := context.Background()

	_, _, err := f.svc.List(ctx, dto.AttendanceQuery{DateFrom: "2024-01-05", DateTo: "2024-01-01"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, _, err = f.svc.List(ctx, dto.AttendanceQuery{Status: "holiday"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.Scan(ctx, officeScan("stu-1"))
	require.NoError(t, err)
	items, page, err := f.svc.List(ctx, dto.AttendanceQuery{StudentID: "stu-1", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)
}
