package worktime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lisbon = mustLoad("Europe/Lisbon")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func at(day int, hhmm string) time.Time {
	m, err := ParseClock(hhmm)
	if err != nil {
		panic(err)
	}
	return time.Date(2025, time.March, day, m/60, m%60, 0, 0, lisbon)
}

func TestCompute_LunchWindow(t *testing.T) {
	lunch, err := ParseWindow("12:00", "13:00")
	require.NoError(t, err)

	tests := []struct {
		name     string
		in, out  time.Time
		hours    float64
		deducted bool
	}{
		{"contains window", at(10, "11:00"), at(10, "14:00"), 2.00, true},
		{"before window", at(10, "09:00"), at(10, "11:30"), 2.50, false},
		{"inside window floors at zero", at(10, "12:30"), at(10, "12:45"), 0.00, true},
		{"starts inside", at(10, "12:30"), at(10, "17:00"), 3.50, true},
		{"ends inside", at(10, "08:00"), at(10, "12:01"), 3.02, true},
		{"ends exactly at window start", at(10, "08:00"), at(10, "12:00"), 4.00, false},
		{"starts exactly at window end", at(10, "13:00"), at(10, "17:00"), 4.00, false},
		{"full day", at(10, "08:00"), at(10, "17:00"), 8.00, true},
		{"overnight without window", at(10, "20:00"), at(11, "04:00"), 8.00, false},
		{"overnight across next lunch", at(10, "22:00"), at(11, "13:30"), 14.50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.in, tt.out, lunch, lisbon)
			assert.InDelta(t, tt.hours, got.Hours, 1e-9)
			assert.Equal(t, tt.deducted, got.BreakDeducted)
			assert.False(t, got.Anomaly)
		})
	}
}

func TestCompute_WrappingWindow(t *testing.T) {
	w, err := ParseWindow("23:30", "00:30")
	require.NoError(t, err)
	assert.Equal(t, 60, w.Minutes())

	got := Compute(at(10, "22:00"), at(11, "02:00"), w, lisbon)
	assert.Equal(t, 3.0, got.Hours)
	assert.True(t, got.BreakDeducted)

	// checked in after the window that began the previous evening
	got = Compute(at(11, "00:10"), at(11, "04:00"), w, lisbon)
	assert.InDelta(t, 2.83, got.Hours, 1e-9)
	assert.True(t, got.BreakDeducted)

	got = Compute(at(11, "08:00"), at(11, "16:00"), w, lisbon)
	assert.Equal(t, 8.0, got.Hours)
	assert.False(t, got.BreakDeducted)
}

func TestCompute_DeductsOnceOverSeveralDays(t *testing.T) {
	lunch, err := ParseWindow("12:00", "13:00")
	require.NoError(t, err)

	got := Compute(at(10, "08:00"), at(12, "08:00"), lunch, lisbon)
	assert.Equal(t, 47.0, got.Hours)
}

func TestCompute_Anomaly(t *testing.T) {
	lunch, _ := ParseWindow("12:00", "13:00")

	got := Compute(at(10, "14:00"), at(10, "11:00"), lunch, lisbon)
	assert.True(t, got.Anomaly)
	assert.Zero(t, got.Hours)

	got = Compute(at(10, "14:00"), at(10, "14:00"), lunch, lisbon)
	assert.True(t, got.Anomaly)
}

func TestCompute_NoBreak(t *testing.T) {
	got := Compute(at(10, "11:00"), at(10, "14:00"), Window{}, lisbon)
	assert.Equal(t, 3.0, got.Hours)
	assert.False(t, got.BreakDeducted)
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		start, end string
		minutes    int
		err        error
	}{
		{"12:00", "13:00", 60, nil},
		{"9:30", "10:15", 45, nil},
		{"22:00", "02:00", 240, nil},
		{"22:00", "02:01", 0, ErrBreakTooLong},
		{"13:00", "12:00", 0, ErrBreakTooLong},
		{"12:00", "12:00", 0, ErrBreakTooLong},
		{"24:00", "12:00", 0, ErrBadClock},
		{"12:60", "13:00", 0, ErrBadClock},
		{"noon", "13:00", 0, ErrBadClock},
	}
	for _, tt := range tests {
		w, err := ParseWindow(tt.start, tt.end)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "%s-%s", tt.start, tt.end)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.minutes, w.Minutes())
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "07:05", FormatClock(425))
	assert.Equal(t, "00:30", FormatClock(1470))
	w := Window{Start: 720, End: 780}
	assert.Equal(t, "12:00-13:00", w.String())
}
