package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDayMonth(t *testing.T) {
	valid := []struct {
		in   string
		want string
	}{
		{"14.02", "14.02"},
		{"1.3", "01.03"},
		{" 08.03 ", "08.03"},
		{"31.12", "31.12"},
		{"29.02", "29.02"},
		{"31.04", "31.04"},
	}
	for _, tt := range valid {
		t.Run("корректная дата "+tt.in, func(t *testing.T) {
			d, err := ParseDayMonth(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}

	invalid := []string{"", "1402", "14-02", "aa.bb", "32.01", "00.05", "10.13", "10.0", "+1.02", "14.02.2024", "123.1", "14."}
	for _, in := range invalid {
		t.Run("некорректная дата "+in, func(t *testing.T) {
			_, err := ParseDayMonth(in)
			assert.ErrorIs(t, err, ErrInvalidDayMonth)
		})
	}
}

func TestDayMonth_DaysUntil(t *testing.T) {
	now := time.Date(2025, time.February, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		date DayMonth
		want int
	}{
		{"сегодня", DayMonth{14, time.February}, 0},
		{"завтра", DayMonth{15, time.February}, 1},
		{"через неделю", DayMonth{21, time.February}, 7},
		{"вчера переносится на следующий год", DayMonth{13, time.February}, 364},
		{"новый год", DayMonth{1, time.January}, 321},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.date.DaysUntil(now))
		})
	}
}

func TestDayMonth_Feb29(t *testing.T) {
	feb29 := DayMonth{29, time.February}

	t.Run("високосный год", func(t *testing.T) {
		now := time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)
		next := feb29.NextOccurrence(now)
		assert.Equal(t, time.February, next.Month())
		assert.Equal(t, 29, next.Day())
		assert.Equal(t, 9, feb29.DaysUntil(now))
	})

	t.Run("невисокосный год переносит на 1 марта", func(t *testing.T) {
		now := time.Date(2025, time.February, 20, 0, 0, 0, 0, time.UTC)
		next := feb29.NextOccurrence(now)
		assert.Equal(t, time.March, next.Month())
		assert.Equal(t, 1, next.Day())
		assert.Equal(t, 9, feb29.DaysUntil(now))
	})

	t.Run("1 марта невисокосного года считается сегодняшним днем", func(t *testing.T) {
		now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, feb29.DaysUntil(now))
	})

	t.Run("после 1 марта переходит на следующий год", func(t *testing.T) {
		now := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 364, feb29.DaysUntil(now))
	})
}

func TestDayMonth_Less(t *testing.T) {
	assert.True(t, DayMonth{31, time.January}.Less(DayMonth{1, time.February}))
	assert.True(t, DayMonth{1, time.March}.Less(DayMonth{2, time.March}))
	assert.False(t, DayMonth{2, time.March}.Less(DayMonth{2, time.March}))
}

func TestSeason_Contains(t *testing.T) {
	assert.True(t, Winter.Contains(time.December))
	assert.True(t, Winter.Contains(time.February))
	assert.False(t, Winter.Contains(time.March))
	assert.True(t, Spring.Contains(time.May))
	assert.True(t, Summer.Contains(time.August))
	assert.True(t, Autumn.Contains(time.November))
	assert.False(t, Autumn.Contains(time.December))
}

func TestParseEventFilter(t *testing.T) {
	f, ok := ParseEventFilter("Week")
	require.True(t, ok)
	assert.Equal(t, FilterWeek, f)

	f, ok = ParseEventFilter("summer")
	require.True(t, ok)
	s, isSeason := f.Season()
	assert.True(t, isSeason)
	assert.Equal(t, Summer, s)

	_, ok = ParseEventFilter("year")
	assert.False(t, ok)

	_, isSeason = FilterAll.Season()
	assert.False(t, isSeason)
}
