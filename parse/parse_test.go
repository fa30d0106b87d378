package parse

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/right-track/right-track-core-sub000/storage"
)

func buildZip(t *testing.T, files map[string][]string) []byte {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for filename, content := range files {
		f, err := w.Create(filename)
		require.NoError(t, err)
		_, err = f.Write([]byte(strings.Join(content, "\n")))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

// A feed with all required files plus every operator extension.
func fixtureFull() map[string][]string {
	return map[string][]string{
		"agency.txt": {
			"agency_id,agency_name,agency_url,agency_timezone",
			"mta,Metro Transit,http://example.com,America/New_York",
		},
		"routes.txt": {
			"route_id,agency_id,route_short_name,route_long_name,route_type,route_color",
			"harlem,mta,HM,Harlem Line,2,0039A6",
		},
		"calendar.txt": {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"weekday,1,1,1,1,1,0,0,20240101,20241231",
		},
		"calendar_dates.txt": {
			"service_id,date,exception_type",
			"weekday,20240115,2",
		},
		"trips.txt": {
			"route_id,service_id,trip_id,trip_short_name,direction_id,peak",
			"harlem,weekday,t1,1504,0,1",
		},
		"stops.txt": {
			"stop_id,stop_name,stop_lat,stop_lon,wheelchair_boarding",
			"gct,Grand Central,40.7527,-73.9772,1",
			"125,Harlem-125th,40.8052,-73.9392,1",
		},
		"stop_times.txt": {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type,drop_off_type",
			"t1,08:00:00,08:02:00,gct,1,0,0",
			"t1,08:12:00,08:12:00,125,2,0,0",
		},
		"directions.txt": {
			"direction_id,description",
			"0,Outbound",
			"1,Inbound",
		},
		"shapes.txt": {
			"shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence",
			"sh1,40.7527,-73.9772,1",
			"sh1,40.8052,-73.9392,2",
		},
		"rt_stops_extra.txt": {
			"stop_id,status_id,display_name,transfer_weight",
			"gct,1,Grand Central Terminal,100",
			"125,-1,,25",
		},
		"rt_alt_stop_names.txt": {
			"stop_id,alt_stop_name",
			"gct,Grand Central Station",
		},
		"rt_holidays.txt": {
			"date,holiday_name,peak,service_info",
			"20240115,MLK Day,0,Weekend schedule",
		},
		"rt_links.txt": {
			"link_category_title,link_title,link_description,link_url",
			"App Resources,Schedules,Timetables,http://example.com/sched",
		},
		"rt_line_graph.txt": {
			"stop1_id,stop2_id",
			"gct,125",
		},
		"rt_about.txt": {
			"compile_date,gtfs_publish_date,start_date,end_date,version,notes",
			"20240301,20240229,20240101,20241231,20240301,test feed",
		},
	}
}

func newTestWriter(t *testing.T) (*storage.Writer, *storage.SQLStore) {
	t.Helper()
	store, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, storage.CreateSchema(store))
	return storage.NewWriter(store), store
}

func TestLoadZipFullFeed(t *testing.T) {
	store, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	sum, err := LoadZip(store, buildZip(t, fixtureFull()))
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Agencies)
	assert.Equal(t, 1, sum.Routes)
	assert.Equal(t, 1, sum.Services)
	assert.Equal(t, 1, sum.ServiceExceptions)
	assert.Equal(t, 1, sum.Trips)
	assert.Equal(t, 2, sum.Stops)
	assert.Equal(t, 2, sum.StopTimes)
	assert.Equal(t, 2, sum.Directions)
	assert.Equal(t, 2, sum.ShapePoints)
	assert.Equal(t, 2, sum.StopsExtra)
	assert.Equal(t, 1, sum.AltStopNames)
	assert.Equal(t, 1, sum.Holidays)
	assert.Equal(t, 1, sum.Links)
	assert.Equal(t, 1, sum.LineGraphEdges)
	assert.Equal(t, 20240101, sum.StartDate)
	assert.Equal(t, 20241231, sum.EndDate)

	ctx := context.Background()

	// Seconds columns are materialized alongside the clock strings.
	row, err := store.Get(ctx,
		"SELECT * FROM gtfs_stop_times WHERE trip_id = ? AND stop_sequence = ?", "t1", 1)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "08:00:00", row.String("arrival_time"))
	assert.Equal(t, 8*3600, row.Int("arrival_time_seconds"))
	assert.Equal(t, 8*3600+120, row.Int("departure_time_seconds"))

	// rt_about comes from the feed, not synthesis.
	row, err = store.Get(ctx, "SELECT * FROM rt_about")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 20240301, row.Int("compile_date"))
	assert.Equal(t, "test feed", row.String("notes"))
}

func TestLoadZipSynthesizesAbout(t *testing.T) {
	files := fixtureFull()
	delete(files, "rt_about.txt")

	store, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = LoadZip(store, buildZip(t, files))
	require.NoError(t, err)

	row, err := store.Get(context.Background(), "SELECT * FROM rt_about")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 20240101, row.Int("start_date"))
	assert.Equal(t, 20241231, row.Int("end_date"))
	assert.NotZero(t, row.Int("compile_date"))
}

func TestLoadZipMissingRequired(t *testing.T) {
	for _, missing := range []string{"agency.txt", "routes.txt", "stops.txt", "trips.txt", "stop_times.txt"} {
		t.Run(missing, func(t *testing.T) {
			files := fixtureFull()
			delete(files, missing)

			store, err := storage.OpenSQLite(":memory:")
			require.NoError(t, err)
			defer store.Close()

			_, err = LoadZip(store, buildZip(t, files))
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}

	t.Run("both calendars", func(t *testing.T) {
		files := fixtureFull()
		delete(files, "calendar.txt")
		delete(files, "calendar_dates.txt")

		store, err := storage.OpenSQLite(":memory:")
		require.NoError(t, err)
		defer store.Close()

		_, err = LoadZip(store, buildZip(t, files))
		require.Error(t, err)
	})
}

func TestParseAgencies(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		ids     map[string]bool
		err     bool
	}{
		{
			"minimal without id",
			"agency_name,agency_url,agency_timezone\nAgency,http://a.com,America/New_York",
			map[string]bool{"": true},
			false,
		},
		{
			"multiple agencies",
			"agency_id,agency_name,agency_url,agency_timezone\na1,First,http://a.com,UTC\na2,Second,http://b.com,UTC",
			map[string]bool{"a1": true, "a2": true},
			false,
		},
		{
			"multiple agencies without ids",
			"agency_name,agency_url,agency_timezone\nFirst,http://a.com,UTC\nSecond,http://b.com,UTC",
			nil,
			true,
		},
		{
			"missing timezone",
			"agency_id,agency_name,agency_url\na1,First,http://a.com",
			nil,
			true,
		},
		{
			"repeated id",
			"agency_id,agency_name,agency_url,agency_timezone\na1,First,http://a.com,UTC\na1,Clone,http://b.com,UTC",
			nil,
			true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := newTestWriter(t)
			ids, err := ParseAgencies(w, bytes.NewBufferString(tc.content))
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestParseRoutesValidation(t *testing.T) {
	agencies := map[string]bool{"a1": true}

	for _, tc := range []struct {
		name    string
		content string
		err     string
	}{
		{
			"unknown agency",
			"route_id,agency_id,route_short_name,route_type\nr1,nope,R,2",
			"unknown agency_id",
		},
		{
			"no names",
			"route_id,agency_id,route_type\nr1,a1,2",
			"neither short nor long name",
		},
		{
			"bad type",
			"route_id,agency_id,route_short_name,route_type\nr1,a1,R,9",
			"invalid route_type",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := newTestWriter(t)
			_, err := ParseRoutes(w, bytes.NewBufferString(tc.content), agencies)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestParseCalendarValidation(t *testing.T) {
	w, _ := newTestWriter(t)
	_, _, _, err := ParseCalendar(w, bytes.NewBufferString(
		"service_id,monday,start_date,end_date\ns1,2,20240101,20241231"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monday")

	w, _ = newTestWriter(t)
	_, _, _, err = ParseCalendar(w, bytes.NewBufferString(
		"service_id,monday,start_date,end_date\ns1,1,20240230,20241231"))
	require.Error(t, err)

	w, _ = newTestWriter(t)
	services, minDate, maxDate, err := ParseCalendar(w, bytes.NewBufferString(
		"service_id,monday,saturday,start_date,end_date\ns1,1,0,20240101,20241231\ns2,0,1,20240201,20240901"))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"s1": true, "s2": true}, services)
	assert.Equal(t, 20240101, minDate)
	assert.Equal(t, 20241231, maxDate)
}

func TestParseCalendarDatesValidation(t *testing.T) {
	w, _ := newTestWriter(t)
	_, _, _, _, err := ParseCalendarDates(w, bytes.NewBufferString(
		"service_id,date,exception_type\ns1,20240115,3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exception_type")

	w, _ = newTestWriter(t)
	_, _, _, _, err = ParseCalendarDates(w, bytes.NewBufferString(
		"service_id,date,exception_type\ns1,20240115,1\ns1,20240115,2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
}

func TestParseTripsPeakColumns(t *testing.T) {
	routes := map[string]bool{"r1": true}
	services := map[string]bool{"s1": true}

	w, store := newTestWriter(t)
	_, err := ParseTrips(w, bytes.NewBufferString(
		"route_id,service_id,trip_id,peak_offpeak\nr1,s1,t1,1\nr1,s1,t2,0"),
		routes, services)
	require.NoError(t, err)

	row, err := store.Get(context.Background(), "SELECT * FROM gtfs_trips WHERE trip_id = ?", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, row.Int("peak"))

	row, err = store.Get(context.Background(), "SELECT * FROM gtfs_trips WHERE trip_id = ?", "t2")
	require.NoError(t, err)
	assert.Equal(t, 0, row.Int("peak"))

	w, _ = newTestWriter(t)
	_, err = ParseTrips(w, bytes.NewBufferString(
		"route_id,service_id,trip_id,peak\nr1,s1,t3,7"), routes, services)
	require.Error(t, err)

	w, _ = newTestWriter(t)
	_, err = ParseTrips(w, bytes.NewBufferString(
		"route_id,service_id,trip_id\nr1,nope,t4"), routes, services)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown service_id")
}

func TestParseStopsValidation(t *testing.T) {
	w, _ := newTestWriter(t)
	_, err := ParseStops(w, bytes.NewBufferString(
		"stop_id,stop_lat,stop_lon\ns1,40.0,-73.0"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop_name")

	w, _ = newTestWriter(t)
	_, err = ParseStops(w, bytes.NewBufferString(
		"stop_id,stop_name,stop_lat,stop_lon,parent_station\ns1,S One,40.0,-73.0,ghost"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent_station")

	// Generic nodes may omit name and coordinates.
	w, _ = newTestWriter(t)
	stops, err := ParseStops(w, bytes.NewBufferString(
		"stop_id,stop_name,stop_lat,stop_lon,location_type\nnode1,,,,3"))
	require.NoError(t, err)
	assert.True(t, stops["node1"])
}

func TestParseStopTimes(t *testing.T) {
	trips := map[string]bool{"t1": true}
	stops := map[string]bool{"a": true, "b": true}

	parseAll := func(t *testing.T, content string) (*storage.SQLStore, error) {
		w, store := newTestWriter(t)
		require.NoError(t, w.BeginStopTimes())
		_, err := ParseStopTimes(w, bytes.NewBufferString(content), trips, stops)
		if err == nil {
			require.NoError(t, w.EndStopTimes())
		}
		return store, err
	}

	t.Run("past-midnight seconds", func(t *testing.T) {
		store, err := parseAll(t,
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,25:30:00,25:31:00,a,1")
		require.NoError(t, err)

		row, err := store.Get(context.Background(), "SELECT * FROM gtfs_stop_times")
		require.NoError(t, err)
		assert.Equal(t, 25*3600+30*60, row.Int("arrival_time_seconds"))
		assert.Equal(t, "25:30:00", row.String("arrival_time"))
	})

	t.Run("blank arrival copies departure", func(t *testing.T) {
		store, err := parseAll(t,
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,,09:15:00,a,1")
		require.NoError(t, err)

		row, err := store.Get(context.Background(), "SELECT * FROM gtfs_stop_times")
		require.NoError(t, err)
		assert.Equal(t, row.Int("departure_time_seconds"), row.Int("arrival_time_seconds"))
	})

	t.Run("unknown stop", func(t *testing.T) {
		_, err := parseAll(t,
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,08:00:00,08:00:00,zz,1")
		require.Error(t, err)
	})

	t.Run("duplicate sequence", func(t *testing.T) {
		_, err := parseAll(t,
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,08:00:00,08:00:00,a,1\nt1,08:10:00,08:10:00,b,1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate stop_sequence")
	})

	t.Run("departure before arrival", func(t *testing.T) {
		_, err := parseAll(t,
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence\nt1,08:10:00,08:00:00,a,1")
		require.Error(t, err)
	})
}

func TestParseExtras(t *testing.T) {
	stops := map[string]bool{"a": true, "b": true}

	t.Run("stops extra defaults status", func(t *testing.T) {
		w, store := newTestWriter(t)
		n, err := ParseStopsExtra(w, bytes.NewBufferString(
			"stop_id,status_id,display_name,transfer_weight\na,,Alpha Station,10"), stops)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		row, err := store.Get(context.Background(), "SELECT * FROM rt_stops_extra")
		require.NoError(t, err)
		assert.Equal(t, "-1", row.String("status_id"))
	})

	t.Run("stops extra unknown stop", func(t *testing.T) {
		w, _ := newTestWriter(t)
		_, err := ParseStopsExtra(w, bytes.NewBufferString(
			"stop_id,status_id,transfer_weight\nzz,1,10"), stops)
		require.Error(t, err)
	})

	t.Run("line graph self loop", func(t *testing.T) {
		w, _ := newTestWriter(t)
		_, err := ParseLineGraph(w, bytes.NewBufferString(
			"stop1_id,stop2_id\na,a"), stops)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "self-loop")
	})

	t.Run("holiday bad peak", func(t *testing.T) {
		w, _ := newTestWriter(t)
		_, err := ParseHolidays(w, bytes.NewBufferString(
			"date,holiday_name,peak\n20240115,MLK Day,7"))
		require.Error(t, err)
	})

	t.Run("about requires single row", func(t *testing.T) {
		_, err := ParseAbout(bytes.NewBufferString(
			"compile_date,gtfs_publish_date,start_date,end_date,version\n20240301,20240229,20240101,20241231,1\n20240302,20240229,20240101,20241231,2"))
		require.Error(t, err)
	})
}
