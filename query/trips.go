package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

// placeholders renders n comma-joined ? markers for an IN clause.
func placeholders(n int) string {
	qs := make([]string, n)
	for i := range qs {
		qs[i] = "?"
	}
	return strings.Join(qs, ",")
}

// StopWindow bounds a candidate-trip retrieval: one stop, one service
// date, an inclusive span of seconds since that date's midnight, and
// the services effective on the date. Spans may extend past 86400 to
// catch trips listed with 24+ hour times.
type StopWindow struct {
	StopID     string
	Date       int
	StartSecs  int
	EndSecs    int
	ServiceIDs []string
}

// StopWindows slices the interval [from, to] into per-day retrieval
// windows at a stop, each carrying that day's effective services. The
// day before the interval is included with its span shifted past
// 86400, so trips listed with times beyond 24:00 still match the
// hours they reach into the next day. Days without effective service
// drop out.
func (db *DB) StopWindows(ctx context.Context, stopID string, from, to gtime.DateTime) ([]StopWindow, error) {
	from, to = from.Normalize(), to.Normalize()
	if to.Before(from) {
		return nil, nil
	}

	first, err := gtime.FromSeconds(0, from.Date())
	if err != nil {
		return nil, err
	}
	last, err := gtime.FromSeconds(0, to.Date())
	if err != nil {
		return nil, err
	}
	span := int(last.Sub(first) / (24 * time.Hour))

	var wins []StopWindow
	for day := -1; day <= span; day++ {
		date, err := gtime.AddDays(from.Date(), day)
		if err != nil {
			continue
		}
		start := from.Seconds() - day*86400
		if start < 0 {
			start = 0
		}
		end := to.Seconds() + (span-day)*86400
		if end > gtime.MaxSeconds {
			end = gtime.MaxSeconds
		}
		if start > end || start > gtime.MaxSeconds {
			continue
		}

		ids, err := db.ServiceIDsEffective(ctx, date)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			continue
		}
		wins = append(wins, StopWindow{
			StopID:     stopID,
			Date:       date,
			StartSecs:  start,
			EndSecs:    end,
			ServiceIDs: ids,
		})
	}
	return wins, nil
}

// TripsDepartingBetween returns the trips departing the window's stop
// inside its span, running one of its services, where boarding is
// possible (pickup type is not "none"). Trips come back hydrated for
// the window's date, ordered by departure from the stop.
func (db *DB) TripsDepartingBetween(ctx context.Context, w StopWindow) ([]*model.Trip, error) {
	return db.tripsThrough(ctx, "trips_departing", w, "departure_time_seconds", "pickup_type")
}

// TripsArrivingBetween mirrors TripsDepartingBetween on the arrival
// side: trips arriving at the stop inside the span where alighting is
// possible (drop-off type is not "none").
func (db *DB) TripsArrivingBetween(ctx context.Context, w StopWindow) ([]*model.Trip, error) {
	return db.tripsThrough(ctx, "trips_arriving", w, "arrival_time_seconds", "drop_off_type")
}

// tripsThrough runs one side of the candidate retrieval. secondsCol
// and skipTypeCol are fixed column names from the two wrappers, never
// caller data.
func (db *DB) tripsThrough(ctx context.Context, reader string, w StopWindow, secondsCol, skipTypeCol string) ([]*model.Trip, error) {
	if err := gtime.ValidDate(w.Date); err != nil {
		return nil, err
	}
	if len(w.ServiceIDs) == 0 {
		return nil, nil
	}

	ids := append([]string(nil), w.ServiceIDs...)
	sort.Strings(ids)

	v, err := db.cached(ctx, key(reader, w.StopID, w.Date, w.StartSecs, w.EndSecs, strings.Join(ids, ",")), func(ctx context.Context) (any, error) {
		args := make([]any, 0, len(ids)+3)
		args = append(args, w.StopID, w.StartSecs, w.EndSecs)
		for _, id := range ids {
			args = append(args, id)
		}
		rows, err := db.store.Select(ctx, `
SELECT st.trip_id
FROM gtfs_stop_times st
JOIN gtfs_trips t ON st.trip_id = t.trip_id
WHERE st.stop_id = ?
  AND st.`+secondsCol+` BETWEEN ? AND ?
  AND COALESCE(st.`+skipTypeCol+`, 0) <> 1
  AND t.service_id IN (`+placeholders(len(ids))+`)
ORDER BY st.`+secondsCol+`, st.trip_id`, args...)
		if err != nil {
			return nil, err
		}

		// Loop trips can hit the window twice; keep the earliest call.
		seen := map[string]bool{}
		trips := make([]*model.Trip, 0, len(rows))
		for _, r := range rows {
			id := r.String("trip_id")
			if seen[id] {
				continue
			}
			seen[id] = true
			trip, err := db.Trip(ctx, id, w.Date)
			if err != nil {
				return nil, err
			}
			trips = append(trips, trip)
		}
		return trips, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Trip), nil
}

// Trip returns a fully hydrated trip for a service date: route,
// service, sequence-ordered stop times carrying the date, direction
// description, and the peak flag resolved against the holiday
// calendar. Stop times with seconds past 86400 resolve to instants on
// the following calendar day.
func (db *DB) Trip(ctx context.Context, tripID string, date int) (*model.Trip, error) {
	if err := gtime.ValidDate(date); err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("trip", tripID, date), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT trip_id, route_id, service_id, trip_headsign, trip_short_name,
       direction_id, block_id, shape_id, wheelchair_accessible,
       bikes_allowed, peak
FROM gtfs_trips
WHERE trip_id = ?`, tripID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.Trip)(nil), nil
		}
		return db.readTrip(ctx, row, date)
	})
	if err != nil {
		return nil, err
	}
	trip := v.(*model.Trip)
	if trip == nil {
		return nil, fmt.Errorf("%w: trip %q", ErrNotFound, tripID)
	}
	return trip, nil
}

func (db *DB) readTrip(ctx context.Context, row storage.Row, date int) (*model.Trip, error) {
	tripID := row.String("trip_id")

	route, err := db.Route(ctx, row.String("route_id"))
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", tripID, err)
	}
	service, err := db.Service(ctx, row.String("service_id"))
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", tripID, err)
	}
	stopTimes, err := db.StopTimesByTrip(ctx, tripID, date)
	if err != nil {
		return nil, err
	}

	direction := model.Direction{ID: row.Int("direction_id")}
	if d, err := db.Direction(ctx, direction.ID); err == nil {
		direction = *d
	} else if !isNotFound(err) {
		return nil, err
	}

	peak, err := db.resolvePeak(ctx, model.PeakIndicator(row.Int("peak")), date)
	if err != nil {
		return nil, err
	}

	return model.NewTrip(model.TripConfig{
		ID:         tripID,
		Route:      route,
		Service:    service,
		StopTimes:  stopTimes,
		Headsign:   row.String("trip_headsign"),
		ShortName:  row.String("trip_short_name"),
		Direction:  direction,
		BlockID:    row.String("block_id"),
		ShapeID:    row.String("shape_id"),
		Wheelchair: model.WheelchairBoarding(row.Int("wheelchair_accessible")),
		Bikes:      model.Bikes(row.Int("bikes_allowed")),
		Peak:       peak,
	})
}

// resolvePeak turns the stored peak indicator into the effective flag
// for a date. Weekday-only peak service is suppressed on weekends,
// and on holidays unless the holiday itself keeps peak fares.
func (db *DB) resolvePeak(ctx context.Context, p model.PeakIndicator, date int) (bool, error) {
	switch p {
	case model.PeakAlways:
		return true, nil
	case model.PeakWeekdays:
		wd, err := gtime.WeekdayOf(date)
		if err != nil {
			return false, err
		}
		if wd == time.Saturday || wd == time.Sunday {
			return false, nil
		}
		h, err := db.Holiday(ctx, date)
		if isNotFound(err) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return h.Peak, nil
	default:
		return false, nil
	}
}

// StopTimesByTrip returns the trip's stop times in sequence order,
// with arrival and departure carrying the service date.
func (db *DB) StopTimesByTrip(ctx context.Context, tripID string, date int) ([]*model.StopTime, error) {
	if err := gtime.ValidDate(date); err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("stop_times_by_trip", tripID, date), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT `+stopTimeColumns+stopTimeJoin+`
WHERE st.trip_id = ?
ORDER BY st.stop_sequence`, tripID)
		if err != nil {
			return nil, err
		}

		sts := make([]*model.StopTime, 0, len(rows))
		for _, r := range rows {
			st, err := stopTimeFromRow(r, date)
			if err != nil {
				return nil, fmt.Errorf("trip %s: %w", tripID, err)
			}
			sts = append(sts, st)
		}
		return sts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.StopTime), nil
}

// StopTimeByTripStop returns the trip's first stop time at a stop.
func (db *DB) StopTimeByTripStop(ctx context.Context, tripID, stopID string, date int) (*model.StopTime, error) {
	if err := gtime.ValidDate(date); err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("stop_time_by_trip_stop", tripID, stopID, date), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT `+stopTimeColumns+stopTimeJoin+`
WHERE st.trip_id = ? AND s.stop_id = ?
ORDER BY st.stop_sequence`, tripID, stopID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.StopTime)(nil), nil
		}
		return stopTimeFromRow(row, date)
	})
	if err != nil {
		return nil, err
	}
	st := v.(*model.StopTime)
	if st == nil {
		return nil, fmt.Errorf("%w: trip %q does not call at stop %q", ErrNotFound, tripID, stopID)
	}
	return st, nil
}

// TripByShortName returns the trip matching a short name whose
// service is effective on the date.
func (db *DB) TripByShortName(ctx context.Context, shortName string, date int) (*model.Trip, error) {
	serviceIDs, err := db.ServiceIDsEffective(ctx, date)
	if err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("trip_by_short_name", shortName, date), func(ctx context.Context) (any, error) {
		if len(serviceIDs) == 0 {
			return "", nil
		}
		args := make([]any, 0, len(serviceIDs)+1)
		args = append(args, shortName)
		for _, id := range serviceIDs {
			args = append(args, id)
		}
		row, err := db.store.Get(ctx, `
SELECT trip_id
FROM gtfs_trips
WHERE trip_short_name = ? AND service_id IN (`+placeholders(len(serviceIDs))+`)
ORDER BY trip_id`, args...)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return "", nil
		}
		return row.String("trip_id"), nil
	})
	if err != nil {
		return nil, err
	}
	tripID := v.(string)
	if tripID == "" {
		return nil, fmt.Errorf("%w: no trip named %q running on %d", ErrNotFound, shortName, date)
	}
	return db.Trip(ctx, tripID, date)
}

// TripByDeparture finds the trip leaving origin at exactly the given
// departure and later visiting destination in sequence. When the
// instant belongs to a trip listed with 24+ hour times, the previous
// service date is retried with the seconds shifted forward a day.
func (db *DB) TripByDeparture(ctx context.Context, originID, destinationID string, departure gtime.DateTime) (*model.Trip, error) {
	trip, err := db.tripDepartingAt(ctx, originID, destinationID, departure.Date(), departure.Seconds())
	if err != nil || trip != nil {
		return trip, err
	}

	prevDate, err := gtime.AddDays(departure.Date(), -1)
	if err != nil {
		return nil, err
	}
	if prevSecs := departure.Seconds() + 86400; prevSecs <= gtime.MaxSeconds {
		trip, err = db.tripDepartingAt(ctx, originID, destinationID, prevDate, prevSecs)
		if err != nil || trip != nil {
			return trip, err
		}
	}

	return nil, fmt.Errorf("%w: no trip departs %q for %q at %s", ErrNotFound, originID, destinationID, departure)
}

// tripDepartingAt resolves one (date, seconds) half of TripByDeparture.
// A nil trip with nil error means no match on this date.
func (db *DB) tripDepartingAt(ctx context.Context, originID, destinationID string, date, secs int) (*model.Trip, error) {
	serviceIDs, err := db.ServiceIDsEffective(ctx, date)
	if err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("trip_departing_at", originID, destinationID, date, secs), func(ctx context.Context) (any, error) {
		if len(serviceIDs) == 0 {
			return "", nil
		}
		args := make([]any, 0, len(serviceIDs)+2)
		args = append(args, originID, secs)
		for _, id := range serviceIDs {
			args = append(args, id)
		}
		rows, err := db.store.Select(ctx, `
SELECT st.trip_id
FROM gtfs_stop_times st
JOIN gtfs_trips t ON st.trip_id = t.trip_id
WHERE st.stop_id = ?
  AND st.departure_time_seconds = ?
  AND t.service_id IN (`+placeholders(len(serviceIDs))+`)
ORDER BY st.trip_id`, args...)
		if err != nil {
			return nil, err
		}

		for _, r := range rows {
			trip, err := db.Trip(ctx, r.String("trip_id"), date)
			if err != nil {
				return nil, err
			}
			if _, _, ok := trip.Connects(originID, destinationID); ok {
				return trip.ID, nil
			}
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	tripID := v.(string)
	if tripID == "" {
		return nil, nil
	}
	return db.Trip(ctx, tripID, date)
}

// TripsFilter narrows TripsByDate. Zero values leave a dimension
// unfiltered.
type TripsFilter struct {
	RouteID string
	StopID  string
}

// TripsByDate returns the trips running on a date. With StopID set,
// only trips calling at the stop come back, sorted by their departure
// from it; otherwise trips sort by their first stop-time departure.
// Ties break on trip id.
func (db *DB) TripsByDate(ctx context.Context, date int, f TripsFilter) ([]*model.Trip, error) {
	serviceIDs, err := db.ServiceIDsEffective(ctx, date)
	if err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("trips_by_date", date, f.RouteID, f.StopID), func(ctx context.Context) (any, error) {
		if len(serviceIDs) == 0 {
			return []*model.Trip{}, nil
		}

		q := `
SELECT trip_id
FROM gtfs_trips t
WHERE t.service_id IN (` + placeholders(len(serviceIDs)) + `)`
		args := make([]any, 0, len(serviceIDs)+2)
		for _, id := range serviceIDs {
			args = append(args, id)
		}
		if f.RouteID != "" {
			q += `
  AND t.route_id = ?`
			args = append(args, f.RouteID)
		}
		if f.StopID != "" {
			q += `
  AND EXISTS (SELECT 1 FROM gtfs_stop_times st WHERE st.trip_id = t.trip_id AND st.stop_id = ?)`
			args = append(args, f.StopID)
		}
		q += `
ORDER BY trip_id`

		rows, err := db.store.Select(ctx, q, args...)
		if err != nil {
			return nil, err
		}

		trips := make([]*model.Trip, 0, len(rows))
		for _, r := range rows {
			trip, err := db.Trip(ctx, r.String("trip_id"), date)
			if err != nil {
				return nil, err
			}
			trips = append(trips, trip)
		}

		sort.SliceStable(trips, func(i, j int) bool {
			a, b := tripSortTime(trips[i], f.StopID), tripSortTime(trips[j], f.StopID)
			if !a.Equal(b) {
				return a.Before(b)
			}
			return trips[i].ID < trips[j].ID
		})
		return trips, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Trip), nil
}

// tripSortTime picks the departure TripsByDate sorts on: from the
// reference stop when one is given, else from the trip's first stop.
func tripSortTime(t *model.Trip, stopID string) gtime.DateTime {
	if stopID != "" {
		if st, ok := t.StopTimeAt(stopID); ok {
			return st.Departure
		}
	}
	if len(t.StopTimes) > 0 {
		return t.StopTimes[0].Departure
	}
	return gtime.DateTime{}
}
