package service

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/noah-isme/internship-attendance-api/internal/models"
	"github.com/noah-isme/internship-attendance-api/internal/repository"
	appErrors "github.com/noah-isme/internship-attendance-api/pkg/errors"
)

// memoryAttendanceStore emulates the advisory lock and per-transaction commit
// of AttendanceRepository.
type memoryAttendanceStore struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	records  map[string]models.AttendanceRecord
	failures map[string]error
	seq      int
}

func newMemoryAttendanceStore() *memoryAttendanceStore {
	return &memoryAttendanceStore{
		locks:    make(map[string]*sync.Mutex),
		records:  make(map[string]models.AttendanceRecord),
		failures: make(map[string]error),
	}
}

func (m *memoryAttendanceStore) failOn(studentID string, date time.Time, err error) {
	m.mu.Lock()
	m.failures[repository.DayLockKey(studentID, date)] = err
	m.mu.Unlock()
}

func (m *memoryAttendanceStore) put(rec models.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if rec.ID == "" {
		rec.ID = "att-seed"
	}
	m.records[repository.DayLockKey(rec.StudentID, rec.AttendanceDate)] = rec
}

func (m *memoryAttendanceStore) get(studentID string, date time.Time) (models.AttendanceRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[repository.DayLockKey(studentID, date)]
	return rec, ok
}

func (m *memoryAttendanceStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memoryAttendanceStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.records))
	for k := range m.records {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *memoryAttendanceStore) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

func (m *memoryAttendanceStore) WithDayLock(ctx context.Context, studentID string, date time.Time, fn func(repository.AttendanceDayTx) error) error {
	key := repository.DayLockKey(studentID, date)
	m.mu.Lock()
	failure := m.failures[key]
	m.mu.Unlock()
	if failure != nil {
		return failure
	}

	l := m.lockFor(key)
	l.Lock()
	defer l.Unlock()

	tx := &memoryDayTx{store: m, key: key}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.staged != nil {
		m.mu.Lock()
		m.records[key] = *tx.staged
		m.mu.Unlock()
	}
	return nil
}

func (m *memoryAttendanceStore) FindByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.AttendanceRecord, error) {
	rec, ok := m.get(studentID, date)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memoryAttendanceStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecordDetail, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceRecordDetail
	for _, rec := range m.records {
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		out = append(out, models.AttendanceRecordDetail{AttendanceRecord: rec})
	}
	return out, len(out), nil
}

type memoryDayTx struct {
	store  *memoryAttendanceStore
	key    string
	staged *models.AttendanceRecord
}

func (t *memoryDayTx) Current(ctx context.Context) (*models.AttendanceRecord, error) {
	if t.staged != nil {
		cp := *t.staged
		return &cp, nil
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	rec, ok := t.store.records[t.key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (t *memoryDayTx) Insert(ctx context.Context, record *models.AttendanceRecord) error {
	t.store.mu.Lock()
	_, exists := t.store.records[t.key]
	t.store.seq++
	id := t.store.seq
	t.store.mu.Unlock()
	if exists || t.staged != nil {
		return repository.ErrDayAlreadyRecorded
	}
	if record.ID == "" {
		record.ID = "att-" + strconv.Itoa(id)
	}
	cp := *record
	t.staged = &cp
	return nil
}

func (t *memoryDayTx) CloseOut(ctx context.Context, id string, at time.Time) error {
	current, _ := t.Current(ctx)
	if current == nil || current.ID != id {
		return appErrors.ErrNotFound
	}
	current.CheckOutAt = &at
	t.staged = current
	return nil
}

type studentStub struct {
	students map[string]*models.Student
	err      error
}

func (s *studentStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s.err != nil {
		return nil, s.err
	}
	if st, ok := s.students[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, nil
}

func activeStudent(id, name string, supervisor *string) *models.Student {
	return &models.Student{ID: id, NIM: "21" + id, FullName: name, Status: models.StudentStatusActive, SupervisorID: supervisor}
}

type scheduleProviderStub struct {
	mu       sync.Mutex
	schedule *models.ScheduleConfig
	err      error
	calls    int
}

func (s *scheduleProviderStub) GetActive(ctx context.Context) (*models.ScheduleConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.schedule == nil {
		return nil, appErrors.ErrScheduleNotConfigured
	}
	cp := *s.schedule
	return &cp, nil
}

type tokenStub struct{}

// Validate treats the credential as the student ID; "bad" is rejected.
func (tokenStub) Validate(raw string) (string, error) {
	if raw == "" || raw == "bad" {
		return "", appErrors.ErrInvalidToken
	}
	return raw, nil
}

func officeSchedule() *models.ScheduleConfig {
	return &models.ScheduleConfig{
		ID:                 "sch-1",
		EntryTime:          models.NewTimeOfDay(8, 0, 0),
		DepartureTime:      models.NewTimeOfDay(17, 0, 0),
		GracePeriodMinutes: 15,
		CenterLat:          -6.200000,
		CenterLon:          106.816666,
		RadiusMeters:       100,
		Active:             true,
	}
}

func ptr[T any](v T) *T { return &v }
