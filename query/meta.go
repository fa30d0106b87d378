package query

import (
	"context"
	"fmt"

	"github.com/right-track/right-track-core-sub000/model"
)

// Agencies returns every agency in the feed, ordered by id.
func (db *DB) Agencies(ctx context.Context) ([]*model.Agency, error) {
	v, err := db.cached(ctx, key("agencies"), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT agency_id, agency_name, agency_url, agency_timezone,
       agency_lang, agency_phone, agency_fare_url, agency_email
FROM gtfs_agency
ORDER BY agency_id`)
		if err != nil {
			return nil, err
		}
		agencies := make([]*model.Agency, 0, len(rows))
		for _, r := range rows {
			agencies = append(agencies, agencyFromRow(r))
		}
		return agencies, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Agency), nil
}

// Agency returns one agency by id. Most feeds carry a single agency;
// an empty id returns it.
func (db *DB) Agency(ctx context.Context, id string) (*model.Agency, error) {
	agencies, err := db.Agencies(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" && len(agencies) == 1 {
		return agencies[0], nil
	}
	for _, a := range agencies {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: agency %q", ErrNotFound, id)
}

// About returns the schedule database's metadata row.
func (db *DB) About(ctx context.Context) (*model.About, error) {
	v, err := db.cached(ctx, key("about"), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT compile_date, gtfs_publish_date, start_date, end_date, version, notes
FROM rt_about`)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.About)(nil), nil
		}
		return aboutFromRow(row), nil
	})
	if err != nil {
		return nil, err
	}
	about := v.(*model.About)
	if about == nil {
		return nil, fmt.Errorf("%w: no about row", ErrNotFound)
	}
	return about, nil
}

// Direction returns the description for a GTFS direction id.
func (db *DB) Direction(ctx context.Context, id int) (*model.Direction, error) {
	v, err := db.cached(ctx, key("direction", id), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT direction_id, description
FROM gtfs_directions
WHERE direction_id = ?`, id)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.Direction)(nil), nil
		}
		return directionFromRow(row), nil
	})
	if err != nil {
		return nil, err
	}
	direction := v.(*model.Direction)
	if direction == nil {
		return nil, fmt.Errorf("%w: direction %d", ErrNotFound, id)
	}
	return direction, nil
}

// Directions returns every described direction, ordered by id.
func (db *DB) Directions(ctx context.Context) ([]*model.Direction, error) {
	v, err := db.cached(ctx, key("directions"), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT direction_id, description
FROM gtfs_directions
ORDER BY direction_id`)
		if err != nil {
			return nil, err
		}
		directions := make([]*model.Direction, 0, len(rows))
		for _, r := range rows {
			directions = append(directions, directionFromRow(r))
		}
		return directions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Direction), nil
}

// Links returns every operator link, grouped by category.
func (db *DB) Links(ctx context.Context) ([]*model.Link, error) {
	v, err := db.cached(ctx, key("links"), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT link_category_title, link_title, link_description, link_url
FROM rt_links
ORDER BY link_category_title, link_title`)
		if err != nil {
			return nil, err
		}
		links := make([]*model.Link, 0, len(rows))
		for _, r := range rows {
			links = append(links, linkFromRow(r))
		}
		return links, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Link), nil
}

// LinkCategories returns the distinct link category titles, sorted.
func (db *DB) LinkCategories(ctx context.Context) ([]string, error) {
	v, err := db.cached(ctx, key("link_categories"), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT DISTINCT link_category_title
FROM rt_links
ORDER BY link_category_title`)
		if err != nil {
			return nil, err
		}
		categories := make([]string, 0, len(rows))
		for _, r := range rows {
			categories = append(categories, r.String("link_category_title"))
		}
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// LinksByCategory returns the links in one category, ordered by title.
func (db *DB) LinksByCategory(ctx context.Context, category string) ([]*model.Link, error) {
	v, err := db.cached(ctx, key("links_by_category", category), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT link_category_title, link_title, link_description, link_url
FROM rt_links
WHERE link_category_title = ?
ORDER BY link_title`, category)
		if err != nil {
			return nil, err
		}
		links := make([]*model.Link, 0, len(rows))
		for _, r := range rows {
			links = append(links, linkFromRow(r))
		}
		return links, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Link), nil
}
