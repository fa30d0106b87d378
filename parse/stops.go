package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

type StopCSV struct {
	ID            string  `csv:"stop_id"`
	Code          string  `csv:"stop_code"`
	Name          string  `csv:"stop_name"`
	Desc          string  `csv:"stop_desc"`
	Lat           float64 `csv:"stop_lat"`
	Lon           float64 `csv:"stop_lon"`
	ZoneID        string  `csv:"zone_id"`
	URL           string  `csv:"stop_url"`
	LocationType  int     `csv:"location_type"`
	ParentStation string  `csv:"parent_station"`
	Timezone      string  `csv:"stop_timezone"`
	Wheelchair    int     `csv:"wheelchair_boarding"`
}

// ParseStops writes stops.txt and returns the set of stop ids.
func ParseStops(w *storage.Writer, data io.Reader) (map[string]bool, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling csv: %w", err)
	}

	stops := map[string]bool{}
	parentRef := map[string]string{}
	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if stops[st.ID] {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}
		stops[st.ID] = true

		locationType := model.LocationType(st.LocationType)

		// Name and coordinates are optional only for generic nodes
		// and boarding areas.
		if locationType != model.LocationTypeGenericNode && locationType != model.LocationTypeBoardingArea {
			if st.Name == "" {
				return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
			}
			if st.Lat == 0 || st.Lon == 0 {
				return nil, fmt.Errorf("empty stop_lat or stop_lon for stop_id '%s'", st.ID)
			}
		}

		if !model.WheelchairBoarding(st.Wheelchair).IsValid() {
			return nil, fmt.Errorf("stop '%s' has invalid wheelchair_boarding %d", st.ID, st.Wheelchair)
		}

		if st.ParentStation != "" {
			parentRef[st.ID] = st.ParentStation
		}

		err := w.WriteStop(&storage.StopRecord{
			ID:            st.ID,
			Code:          st.Code,
			Name:          st.Name,
			Desc:          st.Desc,
			Lat:           st.Lat,
			Lon:           st.Lon,
			ZoneID:        st.ZoneID,
			URL:           st.URL,
			LocationType:  st.LocationType,
			ParentStation: st.ParentStation,
			Timezone:      st.Timezone,
			Wheelchair:    st.Wheelchair,
		})
		if err != nil {
			return nil, fmt.Errorf("writing stop '%s': %w", st.ID, err)
		}
	}

	for stopID, parentID := range parentRef {
		if !stops[parentID] {
			return nil, fmt.Errorf("stop '%s' references unknown parent_station '%s'", stopID, parentID)
		}
	}

	return stops, nil
}
