package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

type StopTimeCSV struct {
	TripID        string  `csv:"trip_id"`
	ArrivalTime   string  `csv:"arrival_time"`
	DepartureTime string  `csv:"departure_time"`
	StopID        string  `csv:"stop_id"`
	StopSequence  int     `csv:"stop_sequence"`
	Headsign      string  `csv:"stop_headsign"`
	Pickup        int     `csv:"pickup_type"`
	DropOff       int     `csv:"drop_off_type"`
	ShapeDist     float64 `csv:"shape_dist_traveled"`
	Timepoint     int     `csv:"timepoint"`
}

// ParseStopTimes writes stop_times.txt, streaming row by row since the
// file tends to be very large. Both the clock string and the derived
// seconds column are stored, so readers never have to reparse times.
// Returns the row count.
func ParseStopTimes(w *storage.Writer, data io.Reader, trips, stops map[string]bool) (int, error) {
	stopSeq := map[string]map[int]bool{}

	i := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *StopTimeCSV) error {
		i++
		if !trips[st.TripID] {
			return fmt.Errorf("unknown trip_id '%s' (row %d)", st.TripID, i)
		}
		if st.StopID == "" {
			return fmt.Errorf("missing stop_id (row %d)", i)
		}
		if !stops[st.StopID] {
			return fmt.Errorf("unknown stop_id '%s' (row %d)", st.StopID, i)
		}
		if st.StopSequence < 1 {
			return fmt.Errorf("stop_sequence %d is not 1-based (row %d)", st.StopSequence, i)
		}
		if !model.PickupType(st.Pickup).IsValid() {
			return fmt.Errorf("invalid pickup_type %d (row %d)", st.Pickup, i)
		}
		if !model.DropOffType(st.DropOff).IsValid() {
			return fmt.Errorf("invalid drop_off_type %d (row %d)", st.DropOff, i)
		}
		if !model.Timepoint(st.Timepoint).IsValid() {
			return fmt.Errorf("invalid timepoint %d (row %d)", st.Timepoint, i)
		}

		// A row may omit one of the two times; the other stands in.
		arrivalStr, departureStr := st.ArrivalTime, st.DepartureTime
		if arrivalStr == "" {
			arrivalStr = departureStr
		}
		if departureStr == "" {
			departureStr = arrivalStr
		}
		if arrivalStr == "" {
			return fmt.Errorf("missing arrival_time and departure_time (row %d)", i)
		}

		arrivalSecs, err := gtime.ParseClock(arrivalStr)
		if err != nil {
			return errors.Wrapf(err, "parsing arrival_time (row %d)", i)
		}
		departureSecs, err := gtime.ParseClock(departureStr)
		if err != nil {
			return errors.Wrapf(err, "parsing departure_time (row %d)", i)
		}
		if departureSecs < arrivalSecs {
			return fmt.Errorf("departure before arrival at stop '%s' (row %d)", st.StopID, i)
		}

		if stopSeq[st.TripID] == nil {
			stopSeq[st.TripID] = map[int]bool{}
		}
		if stopSeq[st.TripID][st.StopSequence] {
			return fmt.Errorf("duplicate stop_sequence %d for trip '%s'", st.StopSequence, st.TripID)
		}
		stopSeq[st.TripID][st.StopSequence] = true

		err = w.WriteStopTime(&storage.StopTimeRecord{
			TripID:        st.TripID,
			Arrival:       clockString(arrivalSecs),
			ArrivalSecs:   arrivalSecs,
			Departure:     clockString(departureSecs),
			DepartureSecs: departureSecs,
			StopID:        st.StopID,
			Sequence:      st.StopSequence,
			Headsign:      st.Headsign,
			Pickup:        st.Pickup,
			DropOff:       st.DropOff,
			ShapeDist:     st.ShapeDist,
			Timepoint:     st.Timepoint,
		})
		if err != nil {
			return errors.Wrapf(err, "writing stop_time (row %d)", i)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "unmarshaling stop_times csv")
	}

	return i, nil
}

// clockString renders seconds-past-midnight as "HH:MM:SS"; hours may
// exceed 24 for times past midnight.
func clockString(secs int) string {
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
