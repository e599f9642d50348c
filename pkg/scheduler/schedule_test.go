package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_DefaultDaily(t *testing.T) {
	now := time.Date(2024, time.March, 1, 15, 30, 0, 0, time.UTC)

	s, err := Compute("0 10 * * *", now)
	require.NoError(t, err)

	y, m, d := s.StartDate()
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.February, m)
	assert.Equal(t, 29, d)

	h, min, sec := s.TimeOfDay()
	assert.Equal(t, 10, h)
	assert.Equal(t, 0, min)
	assert.Equal(t, 0, sec)

	assert.True(t, s.IsDaily())
	assert.Equal(t, DailyInterval, s.RepeatInterval)
}

func TestCompute_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 2024-01-02 03:00 at UTC+9 is 2024-01-01 18:00 UTC, so yesterday is Dec 31
	now := time.Date(2024, time.January, 2, 3, 0, 0, 0, loc)

	s, err := Compute("15 6 * * *", now)
	require.NoError(t, err)

	y, m, d := s.StartDate()
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)
	assert.Equal(t, 31, d)

	h, min, _ := s.TimeOfDay()
	assert.Equal(t, 6, h)
	assert.Equal(t, 15, min)
}

func TestCompute_Hourly(t *testing.T) {
	now := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	s, err := Compute("0 */6 * * *", now)
	require.NoError(t, err)

	assert.Equal(t, 6*time.Hour, s.RepeatInterval)
	assert.False(t, s.IsDaily())
	assert.Equal(t, time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC), s.FirstRun)
}

func TestCompute_Descriptor(t *testing.T) {
	now := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	s, err := Compute("@daily", now)
	require.NoError(t, err)
	assert.True(t, s.IsDaily())
	assert.Equal(t, time.Date(2024, time.June, 9, 0, 0, 0, 0, time.UTC), s.FirstRun)
}

func TestCompute_Errors(t *testing.T) {
	now := time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		expr string
	}{
		{"unparseable", "not a cron"},
		{"too frequent", "*/5 * * * *"},
		{"uneven", "0 10 * * 1-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.expr, now)
			assert.Error(t, err)
		})
	}
}
