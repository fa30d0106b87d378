package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

type TripCSV struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	ShortName   string `csv:"trip_short_name"`
	DirectionID int    `csv:"direction_id"`
	BlockID     string `csv:"block_id"`
	ShapeID     string `csv:"shape_id"`
	Wheelchair  int    `csv:"wheelchair_accessible"`
	Bikes       int    `csv:"bikes_allowed"`

	// Operator feeds carry the peak indicator under either name.
	Peak        string `csv:"peak"`
	PeakOffpeak string `csv:"peak_offpeak"`
}

// ParseTrips writes trips.txt and returns the set of trip ids.
func ParseTrips(w *storage.Writer, data io.Reader, routes, services map[string]bool) (map[string]bool, error) {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling csv: %w", err)
	}

	trips := map[string]bool{}
	for _, tr := range tripCsv {
		if tr.ID == "" {
			return nil, fmt.Errorf("empty trip_id")
		}
		if trips[tr.ID] {
			return nil, fmt.Errorf("repeated trip_id '%s'", tr.ID)
		}
		trips[tr.ID] = true

		if !routes[tr.RouteID] {
			return nil, fmt.Errorf("trip '%s' references unknown route_id '%s'", tr.ID, tr.RouteID)
		}
		if !services[tr.ServiceID] {
			return nil, fmt.Errorf("trip '%s' references unknown service_id '%s'", tr.ID, tr.ServiceID)
		}
		if !model.WheelchairBoarding(tr.Wheelchair).IsValid() {
			return nil, fmt.Errorf("trip '%s' has invalid wheelchair_accessible %d", tr.ID, tr.Wheelchair)
		}
		if !model.Bikes(tr.Bikes).IsValid() {
			return nil, fmt.Errorf("trip '%s' has invalid bikes_allowed %d", tr.ID, tr.Bikes)
		}

		peak, err := parsePeak(tr.Peak, tr.PeakOffpeak)
		if err != nil {
			return nil, fmt.Errorf("trip '%s': %w", tr.ID, err)
		}

		err = w.WriteTrip(&storage.TripRecord{
			ID:          tr.ID,
			RouteID:     tr.RouteID,
			ServiceID:   tr.ServiceID,
			Headsign:    tr.Headsign,
			ShortName:   tr.ShortName,
			DirectionID: tr.DirectionID,
			BlockID:     tr.BlockID,
			ShapeID:     tr.ShapeID,
			Wheelchair:  tr.Wheelchair,
			Bikes:       tr.Bikes,
			Peak:        peak,
		})
		if err != nil {
			return nil, fmt.Errorf("writing trip '%s': %w", tr.ID, err)
		}
	}

	return trips, nil
}

func parsePeak(peak, peakOffpeak string) (int, error) {
	v := peak
	if v == "" {
		v = peakOffpeak
	}
	switch v {
	case "", "0":
		return 0, nil
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	default:
		return 0, fmt.Errorf("invalid peak value '%s'", v)
	}
}
