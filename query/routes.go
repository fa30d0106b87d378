package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/right-track/right-track-core-sub000/model"
)

// Route returns a route by id, with its agency attached.
func (db *DB) Route(ctx context.Context, id string) (*model.Route, error) {
	v, err := db.cached(ctx, key("route", id), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT `+routeColumns+routeJoin+`
WHERE r.route_id = ?`, id)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.Route)(nil), nil
		}
		return routeFromRow(row), nil
	})
	if err != nil {
		return nil, err
	}
	route := v.(*model.Route)
	if route == nil {
		return nil, fmt.Errorf("%w: route %q", ErrNotFound, id)
	}
	return route, nil
}

// RoutesByID resolves a list of route ids. Any missing id fails the
// whole read.
func (db *DB) RoutesByID(ctx context.Context, ids []string) ([]*model.Route, error) {
	out := make([]*model.Route, 0, len(ids))
	for _, id := range ids {
		r, err := db.Route(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Routes returns every route, sorted by long name.
func (db *DB) Routes(ctx context.Context) ([]*model.Route, error) {
	v, err := db.cached(ctx, key("routes"), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT `+routeColumns+routeJoin+`
ORDER BY r.route_id`)
		if err != nil {
			return nil, err
		}

		routes := make([]*model.Route, 0, len(rows))
		for _, r := range rows {
			routes = append(routes, routeFromRow(r))
		}
		sort.SliceStable(routes, func(i, j int) bool {
			if routes[i].LongName != routes[j].LongName {
				return routes[i].LongName < routes[j].LongName
			}
			return routes[i].ID < routes[j].ID
		})
		return routes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Route), nil
}
