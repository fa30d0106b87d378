package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Desc      string `csv:"route_desc"`
	Type      int    `csv:"route_type"`
	URL       string `csv:"route_url"`
	Color     string `csv:"route_color"`
	TextColor string `csv:"route_text_color"`
	SortOrder int    `csv:"route_sort_order"`
}

// ParseRoutes writes routes.txt and returns the set of route ids.
func ParseRoutes(w *storage.Writer, data io.Reader, agencies map[string]bool) (map[string]bool, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling csv: %w", err)
	}

	routes := map[string]bool{}
	for _, r := range routeCsv {
		if r.ID == "" {
			return nil, fmt.Errorf("empty route_id")
		}
		if routes[r.ID] {
			return nil, fmt.Errorf("repeated route_id '%s'", r.ID)
		}
		routes[r.ID] = true

		if !agencies[r.AgencyID] {
			return nil, fmt.Errorf("route '%s' references unknown agency_id '%s'", r.ID, r.AgencyID)
		}
		if r.ShortName == "" && r.LongName == "" {
			return nil, fmt.Errorf("route '%s' has neither short nor long name", r.ID)
		}
		if !model.RouteType(r.Type).IsValid() {
			return nil, fmt.Errorf("route '%s' has invalid route_type %d", r.ID, r.Type)
		}

		err := w.WriteRoute(&storage.RouteRecord{
			ID:        r.ID,
			AgencyID:  r.AgencyID,
			ShortName: r.ShortName,
			LongName:  r.LongName,
			Desc:      r.Desc,
			Type:      r.Type,
			URL:       r.URL,
			Color:     r.Color,
			TextColor: r.TextColor,
			SortOrder: r.SortOrder,
		})
		if err != nil {
			return nil, fmt.Errorf("writing route '%s': %w", r.ID, err)
		}
	}

	return routes, nil
}
