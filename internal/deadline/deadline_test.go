package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeDeadline(t *testing.T) {
	weekdays := DefaultWorkingDays()
	// 2024-05-08 (Victoire 1945) is a Wednesday holiday.
	holidays := func(d time.Time) bool { return d.Format("2006-01-02") == "2024-05-08" }

	tests := []struct {
		name     string
		today    string
		delai    int
		holidays func(time.Time) bool
		want     string
	}{
		{"zero days is today", "2024-05-10", 0, nil, "2024-05-10"},
		{"one day back", "2024-05-10", 1, nil, "2024-05-09"},
		{"skips weekend", "2024-05-13", 1, nil, "2024-05-10"},
		{"full week", "2024-05-13", 5, nil, "2024-05-06"},
		{"skips holiday", "2024-05-10", 3, holidays, "2024-05-06"},
		{"starting on a sunday", "2024-05-12", 1, nil, "2024-05-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeDeadline(day(tt.today), tt.delai, weekdays, tt.holidays)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestComputeDeadline_CustomWeek(t *testing.T) {
	days := map[string]bool{"samedi": true}
	got, err := ComputeDeadline(day("2024-05-13"), 2, days, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-04", got.Format("2006-01-02"))
}

func TestComputeDeadline_IsStrictlyDecreasing(t *testing.T) {
	today := day("2024-12-31")
	holidays := func(d time.Time) bool { return d.Month() == time.December && d.Day() == 25 }
	prev, err := ComputeDeadline(today, 0, DefaultWorkingDays(), holidays)
	require.NoError(t, err)
	for n := 1; n <= 60; n++ {
		d, err := ComputeDeadline(today, n, DefaultWorkingDays(), holidays)
		require.NoError(t, err)
		assert.True(t, d.Before(prev), "delai %d gave %s, not before %s", n, d, prev)
		prev = d
	}
}

func TestComputeDeadline_RejectsBadConfig(t *testing.T) {
	_, err := ComputeDeadline(day("2024-05-10"), 3, map[string]bool{"lundi": false}, nil)
	assert.ErrorIs(t, err, ErrNoWorkingDay)

	_, err = ComputeDeadline(day("2024-05-10"), 3, map[string]bool{"monday": true}, nil)
	assert.Error(t, err)

	_, err = ComputeDeadline(day("2024-05-10"), -1, DefaultWorkingDays(), nil)
	assert.Error(t, err)

	always := func(time.Time) bool { return true }
	_, err = ComputeDeadline(day("2024-05-10"), 1, DefaultWorkingDays(), always)
	assert.Error(t, err, "a walk that never counts must stop")
}

func TestIsLate_Inclusive(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	deadline := time.Date(2024, 5, 6, 0, 0, 0, 0, paris)

	assert.True(t, IsLate(time.Date(2024, 5, 6, 23, 30, 0, 0, paris), deadline), "same day is late")
	assert.True(t, IsLate(time.Date(2024, 5, 1, 9, 0, 0, 0, paris), deadline))
	assert.False(t, IsLate(time.Date(2024, 5, 7, 0, 0, 0, 0, paris), deadline), "day after is not late")
	// 22:30 UTC on the 6th is already the 7th in Paris.
	assert.False(t, IsLate(time.Date(2024, 5, 6, 22, 30, 0, 0, time.UTC), deadline))
}
