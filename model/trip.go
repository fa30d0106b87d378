package model

import (
	"fmt"
	"sort"

	"github.com/right-track/right-track-core-sub000/gtime"
)

// StopTime is one scheduled call of a trip at a stop. Arrival and
// Departure carry the trip's service date, so times past midnight
// (seconds >= 86400) resolve to instants on the following calendar
// day.
type StopTime struct {
	Stop      *Stop
	Arrival   gtime.DateTime
	Departure gtime.DateTime
	Sequence  int
	Headsign  string
	Pickup    PickupType
	DropOff   DropOffType
	ShapeDist float64
	Timepoint Timepoint
}

// StopTimeConfig collects the inputs to NewStopTime. Zero values are
// fine for the optional fields.
type StopTimeConfig struct {
	Stop      *Stop
	Arrival   gtime.DateTime
	Departure gtime.DateTime
	Sequence  int
	Headsign  string
	Pickup    PickupType
	DropOff   DropOffType
	ShapeDist float64
	Timepoint Timepoint
}

func NewStopTime(cfg StopTimeConfig) (*StopTime, error) {
	if cfg.Stop == nil {
		return nil, fmt.Errorf("stop time: nil stop")
	}
	if cfg.Sequence < 1 {
		return nil, fmt.Errorf("stop time at %s: sequence %d is not 1-based", cfg.Stop.ID, cfg.Sequence)
	}
	if !cfg.Pickup.IsValid() {
		return nil, fmt.Errorf("stop time at %s: pickup type %d out of range", cfg.Stop.ID, cfg.Pickup)
	}
	if !cfg.DropOff.IsValid() {
		return nil, fmt.Errorf("stop time at %s: drop-off type %d out of range", cfg.Stop.ID, cfg.DropOff)
	}
	if !cfg.Timepoint.IsValid() {
		return nil, fmt.Errorf("stop time at %s: timepoint %d out of range", cfg.Stop.ID, cfg.Timepoint)
	}
	if cfg.ShapeDist < 0 {
		return nil, fmt.Errorf("stop time at %s: negative shape distance %f", cfg.Stop.ID, cfg.ShapeDist)
	}
	if cfg.Departure.Before(cfg.Arrival) {
		return nil, fmt.Errorf("stop time at %s: departure %s before arrival %s",
			cfg.Stop.ID, cfg.Departure.Clock(), cfg.Arrival.Clock())
	}
	return &StopTime{
		Stop:      cfg.Stop,
		Arrival:   cfg.Arrival,
		Departure: cfg.Departure,
		Sequence:  cfg.Sequence,
		Headsign:  cfg.Headsign,
		Pickup:    cfg.Pickup,
		DropOff:   cfg.DropOff,
		ShapeDist: cfg.ShapeDist,
		Timepoint: cfg.Timepoint,
	}, nil
}

// ServiceDate returns the YYYYMMDD service date the stop time was
// scheduled under.
func (st *StopTime) ServiceDate() int {
	return st.Departure.Date()
}

// Trip is a scheduled run over an ordered list of stop times. Peak is
// the effective flag for the trip's service date, resolved from the
// stored peak indicator and the holiday calendar when the trip is
// read.
type Trip struct {
	ID         string
	Route      *Route
	Service    *Service
	StopTimes  []*StopTime
	Headsign   string
	ShortName  string
	Direction  Direction
	BlockID    string
	ShapeID    string
	Wheelchair WheelchairBoarding
	Bikes      Bikes
	Peak       bool
}

type TripConfig struct {
	ID         string
	Route      *Route
	Service    *Service
	StopTimes  []*StopTime
	Headsign   string
	ShortName  string
	Direction  Direction
	BlockID    string
	ShapeID    string
	Wheelchair WheelchairBoarding
	Bikes      Bikes
	Peak       bool
}

// NewTrip validates the config and sorts the stop times by sequence.
// The caller's slice is not retained.
func NewTrip(cfg TripConfig) (*Trip, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("trip: empty id")
	}
	if cfg.Route == nil {
		return nil, fmt.Errorf("trip %s: nil route", cfg.ID)
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("trip %s: nil service", cfg.ID)
	}
	if !cfg.Wheelchair.IsValid() {
		return nil, fmt.Errorf("trip %s: wheelchair code %d out of range", cfg.ID, cfg.Wheelchair)
	}
	if !cfg.Bikes.IsValid() {
		return nil, fmt.Errorf("trip %s: bikes code %d out of range", cfg.ID, cfg.Bikes)
	}

	sts := make([]*StopTime, len(cfg.StopTimes))
	copy(sts, cfg.StopTimes)
	sort.SliceStable(sts, func(i, j int) bool {
		return sts[i].Sequence < sts[j].Sequence
	})
	for i := 1; i < len(sts); i++ {
		if sts[i].Sequence == sts[i-1].Sequence {
			return nil, fmt.Errorf("trip %s: duplicate stop sequence %d", cfg.ID, sts[i].Sequence)
		}
		if !sts[i].Departure.After(sts[i-1].Departure) {
			return nil, fmt.Errorf("trip %s: departure %s at sequence %d does not advance past %s",
				cfg.ID, sts[i].Departure.Clock(), sts[i].Sequence, sts[i-1].Departure.Clock())
		}
	}

	return &Trip{
		ID:         cfg.ID,
		Route:      cfg.Route,
		Service:    cfg.Service,
		StopTimes:  sts,
		Headsign:   cfg.Headsign,
		ShortName:  cfg.ShortName,
		Direction:  cfg.Direction,
		BlockID:    cfg.BlockID,
		ShapeID:    cfg.ShapeID,
		Wheelchair: cfg.Wheelchair,
		Bikes:      cfg.Bikes,
		Peak:       cfg.Peak,
	}, nil
}

// StopTimeAt returns the trip's first stop time at the stop.
func (t *Trip) StopTimeAt(stopID string) (*StopTime, bool) {
	for _, st := range t.StopTimes {
		if st.Stop.ID == stopID {
			return st, true
		}
	}
	return nil, false
}

// Visits reports whether the trip calls at the stop.
func (t *Trip) Visits(stopID string) bool {
	_, ok := t.StopTimeAt(stopID)
	return ok
}

// Connects returns the boarding and alighting stop times when the trip
// visits origin and, strictly later in sequence, destination.
func (t *Trip) Connects(originID, destinationID string) (enter, exit *StopTime, ok bool) {
	enter, ok = t.StopTimeAt(originID)
	if !ok {
		return nil, nil, false
	}
	for _, st := range t.StopTimes {
		if st.Sequence > enter.Sequence && st.Stop.ID == destinationID {
			return enter, st, true
		}
	}
	return nil, nil, false
}

// StopTimesAfter returns the stop times strictly after the given
// sequence number, in order.
func (t *Trip) StopTimesAfter(sequence int) []*StopTime {
	var out []*StopTime
	for _, st := range t.StopTimes {
		if st.Sequence > sequence {
			out = append(out, st)
		}
	}
	return out
}

// Destination returns the trip's final stop time, or nil for a trip
// with no stop times.
func (t *Trip) Destination() *StopTime {
	if len(t.StopTimes) == 0 {
		return nil
	}
	return t.StopTimes[len(t.StopTimes)-1]
}
