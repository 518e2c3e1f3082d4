package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("08:15")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour+15*time.Minute, tod.Duration())

	tod, err = ParseTimeOfDay("17:00:30")
	require.NoError(t, err)
	assert.Equal(t, "17:00:30", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestTimeOfDayScan(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan([]byte("08:00:00.000000")))
	assert.Equal(t, NewTimeOfDay(8, 0, 0), tod)

	require.NoError(t, tod.Scan(time.Date(0, 1, 1, 16, 30, 0, 0, time.UTC)))
	assert.Equal(t, NewTimeOfDay(16, 30, 0), tod)

	assert.Error(t, tod.Scan(42))
}

func TestTimeOfDayOnAndJSON(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	entry := NewTimeOfDay(8, 0, 0)
	assert.Equal(t, time.Date(2024, 1, 2, 8, 0, 0, 0, loc), entry.On(time.Date(2024, 1, 2, 19, 45, 0, 0, loc)))

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `"08:00:00"`, string(raw))

	var decoded TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"09:30"`), &decoded))
	assert.Equal(t, NewTimeOfDay(9, 30, 0), decoded)
}
