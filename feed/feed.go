// Package feed models live station departure boards. A Provider
// builds a StationFeed for one stop; agencies without a real-time
// source report ErrNotSupported.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
)

// ErrNotSupported marks a stop or agency without live departure
// information.
var ErrNotSupported = errors.New("station feed not supported")

const (
	StatusOnTime    = "On Time"
	StatusCancelled = "Cancelled"
)

// StatusDelayed renders the status for a late departure. Delays under
// a minute read as on time.
func StatusDelayed(by time.Duration) string {
	mins := int(by / time.Minute)
	switch {
	case mins < 1:
		return StatusOnTime
	case mins == 1:
		return "Delayed 1 Minute"
	default:
		return fmt.Sprintf("Delayed %d Minutes", mins)
	}
}

// Position describes where a departure boards.
type Position struct {
	// Track is the platform or track assignment.
	Track string

	// Scheduled is true when the track comes from the schedule
	// rather than a live assignment.
	Scheduled bool

	// Remarks carries free-form operator notes.
	Remarks string
}

// Departure is one upcoming boarding at a stop.
type Departure struct {
	// Departure is the scheduled departure time.
	Departure gtime.DateTime

	// Estimated is the expected departure once real-time data is
	// applied; equal to Departure when there is none.
	Estimated gtime.DateTime

	Trip *model.Trip

	// Headsign names where the trip is going.
	Headsign string

	// Status is the operator's word on the departure, such as
	// "On Time", "Delayed 5 Minutes" or "Cancelled".
	Status string

	// Position is nil when the source carries no boarding location.
	Position *Position
}

// Delay is how far the estimate has drifted from the schedule.
// Negative means early.
func (d Departure) Delay() time.Duration {
	return d.Estimated.Sub(d.Departure)
}

// DepartureBuilder assembles a Departure in steps, collecting the
// optional pieces before Build validates the whole. The zero-valued
// optional fields never have to be spelled out.
type DepartureBuilder struct {
	d         Departure
	estimated bool
	err       error
}

// NewDeparture starts a builder for a trip leaving at its scheduled
// time.
func NewDeparture(trip *model.Trip, departure gtime.DateTime) *DepartureBuilder {
	b := &DepartureBuilder{}
	b.d.Trip = trip
	b.d.Departure = departure
	if trip == nil {
		b.err = errors.New("departure: nil trip")
	}
	return b
}

// Headsign overrides the destination name shown on the board.
func (b *DepartureBuilder) Headsign(h string) *DepartureBuilder {
	b.d.Headsign = h
	return b
}

// Status sets the operator's status line.
func (b *DepartureBuilder) Status(s string) *DepartureBuilder {
	b.d.Status = s
	return b
}

// Estimated sets the expected departure time.
func (b *DepartureBuilder) Estimated(at gtime.DateTime) *DepartureBuilder {
	b.d.Estimated = at
	b.estimated = true
	return b
}

// Track attaches a boarding track. scheduled marks an assignment from
// the timetable rather than a live one.
func (b *DepartureBuilder) Track(track string, scheduled bool) *DepartureBuilder {
	if b.d.Position == nil {
		b.d.Position = &Position{}
	}
	b.d.Position.Track = track
	b.d.Position.Scheduled = scheduled
	return b
}

// Remarks attaches operator notes to the boarding position.
func (b *DepartureBuilder) Remarks(r string) *DepartureBuilder {
	if b.d.Position == nil {
		b.d.Position = &Position{}
	}
	b.d.Position.Remarks = r
	return b
}

// Build finalizes the departure. Unset optionals get their defaults:
// the estimate follows the schedule, the status follows the delay,
// and the headsign falls back to the trip's headsign or its final
// stop.
func (b *DepartureBuilder) Build() (Departure, error) {
	if b.err != nil {
		return Departure{}, b.err
	}
	d := b.d
	if err := gtime.ValidDate(d.Departure.Date()); err != nil {
		return Departure{}, fmt.Errorf("departure for trip %s: %w", d.Trip.ID, err)
	}
	if !b.estimated {
		d.Estimated = d.Departure
	}
	if d.Status == "" {
		d.Status = StatusDelayed(d.Delay())
	}
	if d.Headsign == "" {
		d.Headsign = d.Trip.Headsign
	}
	if d.Headsign == "" {
		if dest := d.Trip.Destination(); dest != nil {
			d.Headsign = dest.Stop.Name
		}
	}
	return d, nil
}

// StationFeed is one stop's live departure board.
type StationFeed struct {
	Stop       *model.Stop
	UpdatedAt  time.Time
	Departures []Departure
}

// SortDepartures orders a board by estimated departure, then
// scheduled departure, then trip id.
func SortDepartures(deps []Departure) {
	sort.Slice(deps, func(i, j int) bool {
		if !deps[i].Estimated.Equal(deps[j].Estimated) {
			return deps[i].Estimated.Before(deps[j].Estimated)
		}
		if !deps[i].Departure.Equal(deps[j].Departure) {
			return deps[i].Departure.Before(deps[j].Departure)
		}
		return deps[i].Trip.ID < deps[j].Trip.ID
	})
}

// Provider builds live departure boards. Implementations combine the
// static schedule with an agency's real-time source. at anchors the
// board's horizon; callers pass the current time.
type Provider interface {
	StationFeed(ctx context.Context, stopID string, at gtime.DateTime) (*StationFeed, error)
}
