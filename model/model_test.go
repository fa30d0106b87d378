package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/right-track/right-track-core-sub000/gtime"
)

const testDate = 20240305

func testStop(id string) *Stop {
	return &Stop{ID: id, Name: "Stop " + id, StatusID: StatusIDNone}
}

func testStopTime(t *testing.T, stop *Stop, seq int, arrival, departure string) *StopTime {
	t.Helper()
	arr, err := gtime.Parse(arrival, testDate)
	require.NoError(t, err)
	dep, err := gtime.Parse(departure, testDate)
	require.NoError(t, err)
	st, err := NewStopTime(StopTimeConfig{
		Stop:      stop,
		Arrival:   arr,
		Departure: dep,
		Sequence:  seq,
	})
	require.NoError(t, err)
	return st
}

func TestNewStopTimeValidation(t *testing.T) {
	arr, err := gtime.Parse("08:00:00", testDate)
	require.NoError(t, err)
	dep, err := gtime.Parse("08:05:00", testDate)
	require.NoError(t, err)

	for name, cfg := range map[string]StopTimeConfig{
		"nil stop":       {Arrival: arr, Departure: dep, Sequence: 1},
		"zero sequence":  {Stop: testStop("a"), Arrival: arr, Departure: dep, Sequence: 0},
		"bad pickup":     {Stop: testStop("a"), Arrival: arr, Departure: dep, Sequence: 1, Pickup: 4},
		"bad drop off":   {Stop: testStop("a"), Arrival: arr, Departure: dep, Sequence: 1, DropOff: -1},
		"bad timepoint":  {Stop: testStop("a"), Arrival: arr, Departure: dep, Sequence: 1, Timepoint: 2},
		"negative shape": {Stop: testStop("a"), Arrival: arr, Departure: dep, Sequence: 1, ShapeDist: -1},
		"dep before arr": {Stop: testStop("a"), Arrival: dep, Departure: arr, Sequence: 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewStopTime(cfg)
			assert.Error(t, err)
		})
	}

	st, err := NewStopTime(StopTimeConfig{
		Stop:      testStop("a"),
		Arrival:   arr,
		Departure: dep,
		Sequence:  3,
		Headsign:  "Downtown",
		Timepoint: TimepointExact,
	})
	require.NoError(t, err)
	assert.Equal(t, "08:00:00", st.Arrival.Clock())
	assert.Equal(t, "08:05:00", st.Departure.Clock())
	assert.Equal(t, testDate, st.ServiceDate())
	assert.Equal(t, "Downtown", st.Headsign)
}

func TestStopTimePastMidnight(t *testing.T) {
	arr, err := gtime.Parse("25:30:00", testDate)
	require.NoError(t, err)
	st, err := NewStopTime(StopTimeConfig{Stop: testStop("a"), Arrival: arr, Departure: arr, Sequence: 1})
	require.NoError(t, err)

	// Scheduled under testDate, but the instant lands on the next day.
	assert.Equal(t, testDate, st.ServiceDate())
	next, err := gtime.Parse("01:30:00", 20240306)
	require.NoError(t, err)
	assert.Equal(t, next.Instant(), st.Arrival.Instant())
}

func newTestTrip(t *testing.T, id string, sts []*StopTime) *Trip {
	t.Helper()
	trip, err := NewTrip(TripConfig{
		ID:        id,
		Route:     &Route{ID: "r1", Type: RouteTypeRail},
		Service:   &Service{ID: "s1", StartDate: 20240101, EndDate: 20241231},
		StopTimes: sts,
	})
	require.NoError(t, err)
	return trip
}

func TestNewTripSortsBySequence(t *testing.T) {
	a := testStopTime(t, testStop("a"), 1, "08:00:00", "08:00:00")
	b := testStopTime(t, testStop("b"), 2, "08:20:00", "08:21:00")
	c := testStopTime(t, testStop("c"), 3, "08:45:00", "08:45:00")

	trip := newTestTrip(t, "t1", []*StopTime{c, a, b})
	require.Len(t, trip.StopTimes, 3)
	assert.Equal(t, "a", trip.StopTimes[0].Stop.ID)
	assert.Equal(t, "b", trip.StopTimes[1].Stop.ID)
	assert.Equal(t, "c", trip.StopTimes[2].Stop.ID)
}

func TestNewTripValidation(t *testing.T) {
	a := testStopTime(t, testStop("a"), 1, "08:00:00", "08:00:00")
	dup := testStopTime(t, testStop("b"), 1, "08:20:00", "08:21:00")
	route := &Route{ID: "r1"}
	svc := &Service{ID: "s1"}

	_, err := NewTrip(TripConfig{Route: route, Service: svc})
	assert.Error(t, err)

	_, err = NewTrip(TripConfig{ID: "t1", Service: svc})
	assert.Error(t, err)

	_, err = NewTrip(TripConfig{ID: "t1", Route: route})
	assert.Error(t, err)

	_, err = NewTrip(TripConfig{ID: "t1", Route: route, Service: svc, StopTimes: []*StopTime{a, dup}})
	assert.Error(t, err)

	stalled := testStopTime(t, testStop("c"), 2, "08:00:00", "08:00:00")
	_, err = NewTrip(TripConfig{ID: "t1", Route: route, Service: svc, StopTimes: []*StopTime{a, stalled}})
	assert.Error(t, err)

	_, err = NewTrip(TripConfig{ID: "t1", Route: route, Service: svc, Wheelchair: 3})
	assert.Error(t, err)

	_, err = NewTrip(TripConfig{ID: "t1", Route: route, Service: svc, Bikes: -2})
	assert.Error(t, err)
}

func TestTripTraversal(t *testing.T) {
	a := testStopTime(t, testStop("a"), 1, "08:00:00", "08:00:00")
	b := testStopTime(t, testStop("b"), 2, "08:20:00", "08:21:00")
	c := testStopTime(t, testStop("c"), 3, "08:45:00", "08:45:00")
	trip := newTestTrip(t, "t1", []*StopTime{a, b, c})

	st, ok := trip.StopTimeAt("b")
	require.True(t, ok)
	assert.Equal(t, 2, st.Sequence)

	_, ok = trip.StopTimeAt("x")
	assert.False(t, ok)
	assert.True(t, trip.Visits("a"))
	assert.False(t, trip.Visits("x"))

	enter, exit, ok := trip.Connects("a", "c")
	require.True(t, ok)
	assert.Equal(t, "a", enter.Stop.ID)
	assert.Equal(t, "c", exit.Stop.ID)

	// Destination must follow the origin in sequence.
	_, _, ok = trip.Connects("c", "a")
	assert.False(t, ok)
	_, _, ok = trip.Connects("x", "c")
	assert.False(t, ok)

	after := trip.StopTimesAfter(1)
	require.Len(t, after, 2)
	assert.Equal(t, "b", after[0].Stop.ID)
	assert.Equal(t, "c", trip.Destination().Stop.ID)
}

func TestServiceWeekdays(t *testing.T) {
	// Monday through Friday.
	weekdays := int8(0)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		weekdays |= 1 << wd
	}
	svc := &Service{ID: "wk", Weekday: weekdays, StartDate: 20240101, EndDate: 20241231}

	assert.True(t, svc.RunsOn(time.Monday))
	assert.True(t, svc.RunsOn(time.Friday))
	assert.False(t, svc.RunsOn(time.Saturday))
	assert.False(t, svc.RunsOn(time.Sunday))

	assert.True(t, svc.InRange(20240101))
	assert.True(t, svc.InRange(20241231))
	assert.False(t, svc.InRange(20231231))
	assert.False(t, svc.InRange(20250101))
}

func TestStopHasFeed(t *testing.T) {
	assert.False(t, (&Stop{ID: "a"}).HasFeed())
	assert.False(t, (&Stop{ID: "a", StatusID: StatusIDNone}).HasFeed())
	assert.True(t, (&Stop{ID: "a", StatusID: "110"}).HasFeed())
}

func TestShapeCenter(t *testing.T) {
	shape := &Shape{ID: "sh", Points: []ShapePoint{
		{Lat: 40.0, Lon: -73.0, Sequence: 1},
		{Lat: 42.0, Lon: -75.0, Sequence: 2},
	}}
	lat, lon := shape.Center()
	assert.InDelta(t, 41.0, lat, 1e-9)
	assert.InDelta(t, -74.0, lon, 1e-9)

	lat, lon = (&Shape{ID: "empty"}).Center()
	assert.Zero(t, lat)
	assert.Zero(t, lon)
}

func TestEnumRanges(t *testing.T) {
	assert.True(t, RouteTypeFunicular.IsValid())
	assert.False(t, RouteType(8).IsValid())
	assert.True(t, ServiceAdded.IsValid())
	assert.True(t, ServiceRemoved.IsValid())
	assert.False(t, ExceptionType(0).IsValid())
	assert.True(t, PeakWeekdays.IsValid())
	assert.False(t, PeakIndicator(3).IsValid())
}
