package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

// Shape returns a shape's points in sequence order.
func (db *DB) Shape(ctx context.Context, id string) (*model.Shape, error) {
	v, err := db.cached(ctx, key("shape", id), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT shape_pt_lat, shape_pt_lon, shape_pt_sequence, shape_dist_traveled
FROM gtfs_shapes
WHERE shape_id = ?
ORDER BY shape_pt_sequence`, id)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return (*model.Shape)(nil), nil
		}

		shape := &model.Shape{ID: id, Points: make([]model.ShapePoint, 0, len(rows))}
		for _, r := range rows {
			shape.Points = append(shape.Points, shapePointFromRow(r))
		}
		return shape, nil
	})
	if err != nil {
		return nil, err
	}
	shape := v.(*model.Shape)
	if shape == nil {
		return nil, fmt.Errorf("%w: shape %q", ErrNotFound, id)
	}
	return shape, nil
}

// Shapes returns every shape, ordered by id, points in sequence order.
func (db *DB) Shapes(ctx context.Context) ([]*model.Shape, error) {
	v, err := db.cached(ctx, key("shapes"), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence, shape_dist_traveled
FROM gtfs_shapes
ORDER BY shape_id, shape_pt_sequence`)
		if err != nil {
			return nil, err
		}

		var shapes []*model.Shape
		for _, r := range rows {
			id := r.String("shape_id")
			if len(shapes) == 0 || shapes[len(shapes)-1].ID != id {
				shapes = append(shapes, &model.Shape{ID: id})
			}
			last := shapes[len(shapes)-1]
			last.Points = append(last.Points, shapePointFromRow(r))
		}
		return shapes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Shape), nil
}

// ShapeRoutes returns the routes whose trips reference the shape.
// With an empty id, every route referencing any shape comes back.
func (db *DB) ShapeRoutes(ctx context.Context, shapeID string) ([]*model.Route, error) {
	v, err := db.cached(ctx, key("shape_routes", shapeID), func(ctx context.Context) (any, error) {
		q := `
SELECT DISTINCT route_id
FROM gtfs_trips
WHERE shape_id IS NOT NULL AND shape_id <> ''`
		var args []any
		if shapeID != "" {
			q += `
  AND shape_id = ?`
			args = append(args, shapeID)
		}
		q += `
ORDER BY route_id`

		rows, err := db.store.Select(ctx, q, args...)
		if err != nil {
			return nil, err
		}

		routes := make([]*model.Route, 0, len(rows))
		for _, r := range rows {
			route, err := db.Route(ctx, r.String("route_id"))
			if err != nil {
				return nil, err
			}
			routes = append(routes, route)
		}
		sort.Slice(routes, func(i, j int) bool {
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

type shapeCenter struct {
	lat float64
	lon float64
}

// ShapeCenter returns the mean point of a shape, or of every shape
// point in the database when the id is empty.
func (db *DB) ShapeCenter(ctx context.Context, shapeID string) (lat, lon float64, err error) {
	v, err := db.cached(ctx, key("shape_center", shapeID), func(ctx context.Context) (any, error) {
		q := `
SELECT shape_pt_lat, shape_pt_lon
FROM gtfs_shapes`
		var args []any
		if shapeID != "" {
			q += `
WHERE shape_id = ?`
			args = append(args, shapeID)
		}

		rows, err := db.store.Select(ctx, q, args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return (*shapeCenter)(nil), nil
		}

		c := &shapeCenter{}
		for _, r := range rows {
			c.lat += r.Float("shape_pt_lat")
			c.lon += r.Float("shape_pt_lon")
		}
		n := float64(len(rows))
		c.lat /= n
		c.lon /= n
		return c, nil
	})
	if err != nil {
		return 0, 0, err
	}
	c := v.(*shapeCenter)
	if c == nil {
		if shapeID == "" {
			return 0, 0, fmt.Errorf("%w: no shape points", ErrNotFound)
		}
		return 0, 0, fmt.Errorf("%w: shape %q", ErrNotFound, shapeID)
	}
	return c.lat, c.lon, nil
}

func shapePointFromRow(r storage.Row) model.ShapePoint {
	return model.ShapePoint{
		Lat:          r.Float("shape_pt_lat"),
		Lon:          r.Float("shape_pt_lon"),
		Sequence:     r.Int("shape_pt_sequence"),
		DistTraveled: r.Float("shape_dist_traveled"),
	}
}
