package gtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockForms(t *testing.T) {
	for _, tc := range []struct {
		In   string
		Secs int
	}{
		{"00:00:00", 0},
		{"08:00:00", 8 * 3600},
		{"8:05:30", 8*3600 + 5*60 + 30},
		{"23:59:59", 23*3600 + 59*60 + 59},
		{"25:30:00", 25*3600 + 30*60},
		{"48:00:00", 48 * 3600},
		{"08:00", 8 * 3600},
		{"8:05", 8*3600 + 5*60},
		{"0800", 8 * 3600},
		{"805", 8*3600 + 5*60},
		{"2530", 25*3600 + 30*60},
		{"12:05 AM", 5 * 60},
		{"12:05 PM", 12*3600 + 5*60},
		{"1:30 pm", 13*3600 + 30*60},
		{"1:30PM", 13*3600 + 30*60},
		{"11:59 pm", 23*3600 + 59*60},
	} {
		secs, err := ParseClock(tc.In)
		require.NoError(t, err, tc.In)
		assert.Equal(t, tc.Secs, secs, tc.In)
	}
}

func TestParseClockRejects(t *testing.T) {
	for _, in := range []string{
		"", "noon", "8", "08:60:00", "08:00:60", "49:00:00",
		"48:00:01", "13:00 PM", "0:30 AM", "8:5", "-1:00:00",
		"08:00:00:00",
	} {
		_, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrInvalidTime, "input %q", in)
	}
}

func TestTwelveHourMatchesTwentyFour(t *testing.T) {
	// Every "h:mm AM/PM" input has a 24-hour equivalent that must
	// land on the same seconds of day.
	for _, pair := range [][2]string{
		{"12:00 AM", "00:00:00"},
		{"12:30 AM", "00:30:00"},
		{"1:00 AM", "01:00:00"},
		{"11:45 AM", "11:45:00"},
		{"12:00 PM", "12:00:00"},
		{"12:01 PM", "12:01:00"},
		{"6:20 PM", "18:20:00"},
		{"11:59 PM", "23:59:00"},
	} {
		a, err := ParseClock(pair[0])
		require.NoError(t, err)
		b, err := ParseClock(pair[1])
		require.NoError(t, err)
		assert.Equal(t, b, a, "%s vs %s", pair[0], pair[1])
	}
}

func TestClockRoundTrip(t *testing.T) {
	// parse(render(dt)) == dt for a sweep of seconds values.
	for _, secs := range []int{0, 1, 59, 60, 3599, 3600, 43200, 86399, 86400, 90000, 172799, 172800} {
		dt, err := FromSeconds(secs, 20240305)
		require.NoError(t, err)
		back, err := Parse(dt.Clock(), 20240305)
		require.NoError(t, err)
		assert.Equal(t, dt, back, "seconds %d", secs)
	}
}

func TestFromSecondsValidation(t *testing.T) {
	_, err := FromSeconds(-1, 20240305)
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = FromSeconds(MaxSeconds+1, 20240305)
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = FromSeconds(0, 20240230)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = FromSeconds(0, 19691231)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = FromSeconds(0, 21010101)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestAddDaysRoundTrip(t *testing.T) {
	dt, err := Parse("25:30:00", 20240304)
	require.NoError(t, err)

	for _, n := range []int{1, 7, 30, 365, 366} {
		fwd, err := dt.AddDays(n)
		require.NoError(t, err)
		back, err := fwd.AddDays(-n)
		require.NoError(t, err)
		assert.Equal(t, dt, back, "n=%d", n)
		assert.Equal(t, dt.Seconds(), fwd.Seconds(), "seconds preserved")
	}

	// Month and year boundaries.
	fwd, err := dt.AddDays(28)
	require.NoError(t, err)
	assert.Equal(t, 20240401, fwd.Date())

	nye, err := FromSeconds(0, 20241231)
	require.NoError(t, err)
	ny, err := nye.AddDays(1)
	require.NoError(t, err)
	assert.Equal(t, 20250101, ny.Date())
}

func TestAddMinsRenormalizes(t *testing.T) {
	dt, err := Parse("23:50:00", 20240305)
	require.NoError(t, err)

	later := dt.AddMins(20)
	assert.Equal(t, 20240306, later.Date())
	assert.Equal(t, 10*60, later.Seconds())

	earlier := dt.AddMins(-1440)
	assert.Equal(t, 20240304, earlier.Date())
	assert.Equal(t, dt.Seconds(), earlier.Seconds())

	// A 25:30 time normalizes onto the following day.
	owl, err := Parse("25:30:00", 20240304)
	require.NoError(t, err)
	norm := owl.Normalize()
	assert.Equal(t, 20240305, norm.Date())
	assert.Equal(t, 5400, norm.Seconds())
	assert.Equal(t, "01:30:00", norm.Clock())
}

func TestInstantOrdering(t *testing.T) {
	owl, err := Parse("25:30:00", 20240304)
	require.NoError(t, err)
	next, err := Parse("01:30:00", 20240305)
	require.NoError(t, err)

	assert.True(t, owl.Equal(next))
	assert.Equal(t, 0, owl.Compare(next))

	lateTrain, err := Parse("01:45:00", 20240305)
	require.NoError(t, err)
	assert.True(t, owl.Before(lateTrain))
	assert.True(t, lateTrain.After(owl))
	assert.Equal(t, 15*time.Minute, lateTrain.Sub(owl))
}

func TestRendering(t *testing.T) {
	dt, err := Parse("08:05:00", 20240305)
	require.NoError(t, err)
	assert.Equal(t, "08:05:00", dt.Clock())
	assert.Equal(t, 805, dt.TimeInt())
	assert.Equal(t, "8:05 AM", dt.String12())
	assert.Equal(t, "20240305", dt.DateString())
	assert.Equal(t, "tuesday", dt.WeekdayName())

	noonish, err := Parse("12:05:00", 20240305)
	require.NoError(t, err)
	assert.Equal(t, "12:05 PM", noonish.String12())

	midnight, err := Parse("00:05:00", 20240305)
	require.NoError(t, err)
	assert.Equal(t, "12:05 AM", midnight.String12())

	evening, err := Parse("18:20:00", 20240305)
	require.NoError(t, err)
	assert.Equal(t, "6:20 PM", evening.String12())
	assert.Equal(t, 1820, evening.TimeInt())

	// Rollover hours render as next-day morning times.
	owl, err := Parse("25:30:00", 20240304)
	require.NoError(t, err)
	assert.Equal(t, "25:30:00", owl.Clock())
	assert.Equal(t, 2530, owl.TimeInt())
	assert.Equal(t, "1:30 AM", owl.String12())
}

func TestDateHelpers(t *testing.T) {
	wd, err := WeekdayOf(20240305)
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, wd)

	name, err := WeekdayName(20240309)
	require.NoError(t, err)
	assert.Equal(t, "saturday", name)

	next, err := AddDays(20240229, 1)
	require.NoError(t, err)
	assert.Equal(t, 20240301, next)

	prev, err := AddDays(20240301, -1)
	require.NoError(t, err)
	assert.Equal(t, 20240229, prev) // 2024 is a leap year

	_, err = AddDays(20230229, 1)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestFromTime(t *testing.T) {
	dt := FromTime(time.Date(2024, 3, 5, 8, 5, 30, 0, time.UTC))
	assert.Equal(t, 20240305, dt.Date())
	assert.Equal(t, 8*3600+5*60+30, dt.Seconds())
}
