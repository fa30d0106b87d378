package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

// Stop returns a stop by id, with its operator extras applied.
func (db *DB) Stop(ctx context.Context, id string) (*model.Stop, error) {
	v, err := db.cached(ctx, key("stop", id), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT `+stopColumns+stopJoin+`
WHERE s.stop_id = ?`, id)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.Stop)(nil), nil
		}
		return stopFromRow(row), nil
	})
	if err != nil {
		return nil, err
	}
	stop := v.(*model.Stop)
	if stop == nil {
		return nil, fmt.Errorf("%w: stop %q", ErrNotFound, id)
	}
	return stop, nil
}

// StopsByID resolves a list of stop ids. Any missing id fails the
// whole read.
func (db *DB) StopsByID(ctx context.Context, ids []string) ([]*model.Stop, error) {
	out := make([]*model.Stop, 0, len(ids))
	for _, id := range ids {
		s, err := db.Stop(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// StopByName finds a stop by exact, case-insensitive name match. The
// GTFS stop name is tried first, then the operator alt names, then
// the operator display name; the first hit wins.
func (db *DB) StopByName(ctx context.Context, name string) (*model.Stop, error) {
	v, err := db.cached(ctx, key("stop_by_name", strings.ToLower(name)), func(ctx context.Context) (any, error) {
		for _, q := range []string{
			`SELECT ` + stopColumns + stopJoin + `
WHERE LOWER(s.stop_name) = LOWER(?)
ORDER BY s.stop_id`,
			`SELECT ` + stopColumns + `
FROM rt_alt_stop_names n
JOIN gtfs_stops s ON n.stop_id = s.stop_id
LEFT JOIN rt_stops_extra e ON s.stop_id = e.stop_id
WHERE LOWER(n.alt_stop_name) = LOWER(?)
ORDER BY s.stop_id`,
			`SELECT ` + stopColumns + stopJoin + `
WHERE LOWER(e.display_name) = LOWER(?)
ORDER BY s.stop_id`,
		} {
			row, err := db.store.Get(ctx, q, name)
			if err != nil {
				return nil, err
			}
			if row != nil {
				return stopFromRow(row), nil
			}
		}
		return (*model.Stop)(nil), nil
	})
	if err != nil {
		return nil, err
	}
	stop := v.(*model.Stop)
	if stop == nil {
		return nil, fmt.Errorf("%w: stop named %q", ErrNotFound, name)
	}
	return stop, nil
}

// StopByStatusID finds the stop carrying a real-time status id. The
// "-1" sentinel marks stops without feed support and cannot be looked
// up.
func (db *DB) StopByStatusID(ctx context.Context, statusID string) (*model.Stop, error) {
	if statusID == model.StatusIDNone {
		return nil, fmt.Errorf("%w: status id %q is the no-feed sentinel", ErrNotSupported, statusID)
	}

	v, err := db.cached(ctx, key("stop_by_status", statusID), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT `+stopColumns+stopJoin+`
WHERE e.status_id = ?
ORDER BY s.stop_id`, statusID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.Stop)(nil), nil
		}
		return stopFromRow(row), nil
	})
	if err != nil {
		return nil, err
	}
	stop := v.(*model.Stop)
	if stop == nil {
		return nil, fmt.Errorf("%w: no stop with status id %q", ErrNotFound, statusID)
	}
	return stop, nil
}

// Stops returns all stops sorted by display name. With hasFeed set,
// only stops with real-time feed support are returned.
func (db *DB) Stops(ctx context.Context, hasFeed bool) ([]*model.Stop, error) {
	v, err := db.cached(ctx, key("stops", hasFeed), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT `+stopColumns+stopJoin+`
ORDER BY s.stop_id`)
		if err != nil {
			return nil, err
		}

		stops := make([]*model.Stop, 0, len(rows))
		for _, r := range rows {
			s := stopFromRow(r)
			if hasFeed && !s.HasFeed() {
				continue
			}
			stops = append(stops, s)
		}
		sortStopsByName(stops)
		return stops, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Stop), nil
}

// StopsByRoute returns the stops visited by any trip of a route,
// sorted by display name.
func (db *DB) StopsByRoute(ctx context.Context, routeID string, hasFeed bool) ([]*model.Stop, error) {
	v, err := db.cached(ctx, key("stops_by_route", routeID, hasFeed), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT DISTINCT st.stop_id
FROM gtfs_stop_times st
JOIN gtfs_trips t ON st.trip_id = t.trip_id
WHERE t.route_id = ?
ORDER BY st.stop_id`, routeID)
		if err != nil {
			return nil, err
		}

		stops := make([]*model.Stop, 0, len(rows))
		for _, r := range rows {
			s, err := db.Stop(ctx, r.String("stop_id"))
			if err != nil {
				return nil, err
			}
			if hasFeed && !s.HasFeed() {
				continue
			}
			stops = append(stops, s)
		}
		sortStopsByName(stops)
		return stops, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Stop), nil
}

// LocationFilter narrows a StopsByLocation read. Zero values mean no
// limit.
type LocationFilter struct {
	// Count caps the number of stops returned.
	Count int

	// Distance drops stops farther than this many miles.
	Distance float64

	// HasFeed keeps only stops with real-time feed support.
	HasFeed bool

	// RouteID keeps only stops visited by trips of this route.
	RouteID string
}

// StopsByLocation returns stops ordered by great-circle distance from
// a point. Each returned stop is a copy annotated with its distance
// in miles.
func (db *DB) StopsByLocation(ctx context.Context, lat, lon float64, f LocationFilter) ([]*model.Stop, error) {
	v, err := db.cached(ctx, key("stops_by_location", lat, lon, f.Count, f.Distance, f.HasFeed, f.RouteID), func(ctx context.Context) (any, error) {
		var stops []*model.Stop
		var err error
		if f.RouteID != "" {
			stops, err = db.StopsByRoute(ctx, f.RouteID, f.HasFeed)
		} else {
			stops, err = db.Stops(ctx, f.HasFeed)
		}
		if err != nil {
			return nil, err
		}

		// Annotate copies; the cached stops stay untouched.
		annotated := make([]*model.Stop, 0, len(stops))
		for _, s := range stops {
			c := *s
			c.Distance = storage.Haversine(lat, lon, s.Lat, s.Lon)
			if f.Distance > 0 && c.Distance > f.Distance {
				continue
			}
			annotated = append(annotated, &c)
		}

		sort.SliceStable(annotated, func(i, j int) bool {
			return annotated[i].Distance < annotated[j].Distance
		})

		if f.Count > 0 && len(annotated) > f.Count {
			annotated = annotated[:f.Count]
		}
		return annotated, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Stop), nil
}

func sortStopsByName(stops []*model.Stop) {
	sort.SliceStable(stops, func(i, j int) bool {
		if stops[i].Name != stops[j].Name {
			return stops[i].Name < stops[j].Name
		}
		return stops[i].ID < stops[j].ID
	})
}
