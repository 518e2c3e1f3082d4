package daterange

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewNormalisesAndRejectsInverted(t *testing.T) {
	r, err := New(time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), r.Start)
	assert.Equal(t, day(2024, 1, 3), r.End)
	assert.Equal(t, 3, r.Days())

	_, err = New(day(2024, 1, 3), day(2024, 1, 1))
	assert.ErrorIs(t, err, ErrInverted)
}

func TestSingleDay(t *testing.T) {
	r, err := New(day(2024, 2, 29), day(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 2, 29)}, r.Dates())
}

func TestEachCrossesMonthBoundary(t *testing.T) {
	r, err := New(day(2024, 1, 30), day(2024, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 30), day(2024, 1, 31), day(2024, 2, 1), day(2024, 2, 2)}, r.Dates())
}

func TestEachStopsAtError(t *testing.T) {
	r, _ := New(day(2024, 1, 1), day(2024, 1, 5))
	boom := errors.New("boom")
	var seen int
	at, err := r.Each(func(d time.Time) error {
		seen++
		if d.Equal(day(2024, 1, 3)) {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, day(2024, 1, 3), at)
	assert.Equal(t, 3, seen)
}

func TestResume(t *testing.T) {
	r, _ := New(day(2024, 1, 1), day(2024, 1, 5))
	assert.Equal(t, 3, r.Resume(day(2024, 1, 3)).Days())
	assert.Equal(t, 5, r.Resume(day(2023, 12, 1)).Days())
	assert.Equal(t, 0, r.Resume(day(2024, 1, 9)).Days())
	assert.True(t, r.Contains(time.Date(2024, 1, 5, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(day(2024, 1, 6)))
}
