// Package search plans journeys between two stops: direct rides plus
// transfer itineraries assembled over the line graph, bounded by a
// time window around the requested departure.
package search

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/linegraph"
	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/query"
)

// maxTransferStops caps how many transfer stops are tried per
// expansion step, keeping the highest transfer weights.
const maxTransferStops = 3

// Search plans journeys from origin to destination that board and
// arrive inside the window [departure - PreDepartureHours, departure
// + PostDepartureHours]. Results come back deduplicated and sorted by
// boarding time. An empty schedule yields an empty slice, not an
// error; unknown stop ids and bad options fail fast.
func Search(ctx context.Context, db *query.DB, originID, destinationID string, departure gtime.DateTime, opts Options) ([]Result, error) {
	if strings.TrimSpace(originID) == "" {
		return nil, fmt.Errorf("%w: blank origin stop id", ErrInvalidRequest)
	}
	if strings.TrimSpace(destinationID) == "" {
		return nil, fmt.Errorf("%w: blank destination stop id", ErrInvalidRequest)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if _, err := db.Stop(ctx, originID); err != nil {
		return nil, fmt.Errorf("origin stop %s: %w", originID, err)
	}
	if _, err := db.Stop(ctx, destinationID); err != nil {
		return nil, fmt.Errorf("destination stop %s: %w", destinationID, err)
	}
	graph, err := db.LineGraph(ctx)
	if err != nil {
		return nil, err
	}

	departure = departure.Normalize()
	s := &searcher{
		db:            db,
		graph:         graph,
		opts:          opts,
		originID:      originID,
		destinationID: destinationID,
		from:          departure.Add(-time.Duration(opts.PreDepartureHours) * time.Hour),
		to:            departure.Add(time.Duration(opts.PostDepartureHours) * time.Hour),
	}
	return s.run(ctx)
}

// searcher carries one search invocation. Everything but found is
// read-only once run starts.
type searcher struct {
	db            *query.DB
	graph         *linegraph.Graph
	opts          Options
	originID      string
	destinationID string
	from, to      gtime.DateTime
	reverse       bool

	mu    sync.Mutex
	found []Result
}

// candidate is a trip harvested at a reference stop, with the stop
// time the trip calls there.
type candidate struct {
	trip *model.Trip
	at   *model.StopTime
}

// sideCandidates is one endpoint's harvest, split into trips that
// connect origin to destination on their own and trips that need a
// transfer.
type sideCandidates struct {
	direct   []candidate
	indirect []candidate
}

func (cs sideCandidates) size() int {
	return len(cs.direct) + len(cs.indirect)
}

func (s *searcher) run(ctx context.Context) ([]Result, error) {
	fromOrigin, err := s.candidates(ctx, s.originID, false)
	if err != nil {
		return nil, err
	}
	fromDestination, err := s.candidates(ctx, s.destinationID, true)
	if err != nil {
		return nil, err
	}

	// Expansion cost follows candidate fan-out, so drive the search
	// from the endpoint with fewer candidates.
	side := fromOrigin
	if fromDestination.size() < fromOrigin.size() {
		s.reverse = true
		side = fromDestination
	}
	return s.enumerate(ctx, side)
}

// enumerate emits one-segment results for the driving side's direct
// candidates and fans its indirect candidates out over a bounded
// worker group. Any failure cancels the group; no partial results
// survive an error.
func (s *searcher) enumerate(ctx context.Context, side sideCandidates) ([]Result, error) {
	s.found = nil

	for _, c := range side.direct {
		enter, exit, ok := c.trip.Connects(s.originID, s.destinationID)
		if !ok {
			continue
		}
		if err := s.complete([]Segment{{Trip: c.trip, Enter: enter, Exit: exit}}); err != nil {
			return nil, err
		}
	}

	if s.opts.AllowTransfers && s.opts.MaxTransfers > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(searchWorkers())
		for _, c := range side.indirect {
			c := c
			g.Go(func() error {
				if s.reverse {
					return s.expandBackward(gctx, c.trip, c.at, nil)
				}
				return s.expandForward(gctx, c.trip, c.at, nil)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return dedupe(s.found), nil
}

func searchWorkers() int {
	if n := runtime.NumCPU(); n > 4 {
		return n
	}
	return 4
}

// candidates harvests trips calling at a search endpoint across the
// initial windows. The origin side matches boardable departures, the
// destination side alightable arrivals.
func (s *searcher) candidates(ctx context.Context, stopID string, arriving bool) (sideCandidates, error) {
	wins, err := s.db.StopWindows(ctx, stopID, s.from, s.to)
	if err != nil {
		return sideCandidates{}, err
	}

	var out sideCandidates
	for _, w := range wins {
		var trips []*model.Trip
		if arriving {
			trips, err = s.db.TripsArrivingBetween(ctx, w)
		} else {
			trips, err = s.db.TripsDepartingBetween(ctx, w)
		}
		if err != nil {
			return sideCandidates{}, err
		}
		for _, t := range trips {
			at, ok := t.StopTimeAt(stopID)
			if !ok {
				continue
			}
			c := candidate{trip: t, at: at}
			if _, _, ok := t.Connects(s.originID, s.destinationID); ok {
				out.direct = append(out.direct, c)
			} else {
				out.indirect = append(out.indirect, c)
			}
		}
	}
	return out, nil
}

// expandForward grows a partial journey whose latest boarding was at
// enter on trip. Each viable transfer stop appends a leg; trips
// leaving that stop inside the layover window either finish the
// journey or recurse. A step that finds any direct continuation does
// not recurse further, and recursion stops once the transfer cap
// leaves no room for a finishing leg.
func (s *searcher) expandForward(ctx context.Context, trip *model.Trip, enter *model.StopTime, prefix []Segment) error {
	for _, exit := range s.transferStops(trip, enter, false) {
		segs := make([]Segment, len(prefix), len(prefix)+1)
		copy(segs, prefix)
		segs = append(segs, Segment{Trip: trip, Enter: enter, Exit: exit})
		if len(segs) > s.opts.MaxTransfers {
			continue
		}

		wins, err := s.db.StopWindows(ctx, exit.Stop.ID,
			exit.Arrival.Add(-time.Duration(s.opts.MinLayoverMins)*time.Minute),
			exit.Arrival.Add(time.Duration(s.opts.MaxLayoverMins)*time.Minute))
		if err != nil {
			return err
		}

		used := usedTrips(segs)
		foundDirect := false
		var indirect []candidate
		for _, w := range wins {
			trips, err := s.db.TripsDepartingBetween(ctx, w)
			if err != nil {
				return err
			}
			for _, t := range trips {
				if used[t.ID] {
					continue
				}
				board, ok := t.StopTimeAt(exit.Stop.ID)
				if !ok {
					continue
				}
				if enter2, exit2, ok := t.Connects(exit.Stop.ID, s.destinationID); ok {
					foundDirect = true
					if enter2.Departure.Before(exit.Arrival) {
						continue
					}
					full := append(append([]Segment{}, segs...), Segment{Trip: t, Enter: enter2, Exit: exit2})
					if err := s.complete(full); err != nil {
						return err
					}
					continue
				}
				if board.Departure.Before(exit.Arrival) {
					continue
				}
				indirect = append(indirect, candidate{trip: t, at: board})
			}
		}

		if foundDirect || len(segs) >= s.opts.MaxTransfers {
			continue
		}
		for _, c := range indirect {
			if !s.keepsDirection(c.trip, c.at, false) {
				continue
			}
			if err := s.expandForward(ctx, c.trip, c.at, segs); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandBackward mirrors expandForward for searches driven from the
// destination. exit is where the partial journey boards its earliest
// trip; predecessors arriving at a transfer stop within the layover
// window either start the journey at the origin or recurse further
// back in time.
func (s *searcher) expandBackward(ctx context.Context, trip *model.Trip, exit *model.StopTime, suffix []Segment) error {
	for _, enter := range s.transferStops(trip, exit, true) {
		segs := make([]Segment, 0, len(suffix)+1)
		segs = append(segs, Segment{Trip: trip, Enter: enter, Exit: exit})
		segs = append(segs, suffix...)
		if len(segs) > s.opts.MaxTransfers {
			continue
		}

		wins, err := s.db.StopWindows(ctx, enter.Stop.ID,
			enter.Departure.Add(-time.Duration(s.opts.MaxLayoverMins)*time.Minute),
			enter.Departure.Add(time.Duration(s.opts.MinLayoverMins)*time.Minute))
		if err != nil {
			return err
		}

		used := usedTrips(segs)
		foundDirect := false
		var indirect []candidate
		for _, w := range wins {
			trips, err := s.db.TripsArrivingBetween(ctx, w)
			if err != nil {
				return err
			}
			for _, t := range trips {
				if used[t.ID] {
					continue
				}
				alight, ok := t.StopTimeAt(enter.Stop.ID)
				if !ok {
					continue
				}
				if enter2, exit2, ok := t.Connects(s.originID, enter.Stop.ID); ok {
					foundDirect = true
					if exit2.Arrival.After(enter.Departure) {
						continue
					}
					full := append([]Segment{{Trip: t, Enter: enter2, Exit: exit2}}, segs...)
					if err := s.complete(full); err != nil {
						return err
					}
					continue
				}
				if alight.Arrival.After(enter.Departure) {
					continue
				}
				indirect = append(indirect, candidate{trip: t, at: alight})
			}
		}

		if foundDirect || len(segs) >= s.opts.MaxTransfers {
			continue
		}
		for _, c := range indirect {
			if !s.keepsDirection(c.trip, c.at, true) {
				continue
			}
			if err := s.expandBackward(ctx, c.trip, c.at, segs); err != nil {
				return err
			}
		}
	}
	return nil
}

// transferStops picks where to leave the current trip: stops still
// ahead on the trip that the line graph places between the reference
// stop and the search goal, keeping the maxTransferStops highest
// transfer weights. With rev set the trip is ridden up to ref, so
// ahead means earlier in sequence and the graph is walked from the
// destination back toward the origin.
func (s *searcher) transferStops(t *model.Trip, ref *model.StopTime, rev bool) []*model.StopTime {
	onTrip := map[string]*model.StopTime{}
	var next []linegraph.Vertex
	if rev {
		next = s.graph.NextStops(s.destinationID, s.originID, ref.Stop.ID)
		for _, st := range t.StopTimes {
			if st.Sequence < ref.Sequence && st.Pickup != model.PickupNone {
				onTrip[st.Stop.ID] = st
			}
		}
	} else {
		next = s.graph.NextStops(s.originID, s.destinationID, ref.Stop.ID)
		for _, st := range t.StopTimesAfter(ref.Sequence) {
			if st.DropOff == model.DropOffNone {
				continue
			}
			if _, ok := onTrip[st.Stop.ID]; !ok {
				onTrip[st.Stop.ID] = st
			}
		}
	}

	var out []*model.StopTime
	for _, v := range next {
		if st, ok := onTrip[v.StopID]; ok {
			out = append(out, st)
			if len(out) == maxTransferStops {
				break
			}
		}
	}
	return out
}

// keepsDirection reports whether a continuation trip boarded (or, in
// reverse, left) at the given stop time still moves along the line
// graph toward the search goal. Only consulted when direction changes
// are disallowed.
func (s *searcher) keepsDirection(t *model.Trip, at *model.StopTime, rev bool) bool {
	if s.opts.AllowChangeInDirection {
		return true
	}
	var ahead []linegraph.Vertex
	if rev {
		ahead = s.graph.NextStops(s.destinationID, s.originID, at.Stop.ID)
	} else {
		ahead = s.graph.NextStops(s.originID, s.destinationID, at.Stop.ID)
	}
	for _, v := range ahead {
		st, ok := t.StopTimeAt(v.StopID)
		if !ok {
			continue
		}
		if rev && st.Sequence < at.Sequence {
			return true
		}
		if !rev && st.Sequence > at.Sequence {
			return true
		}
	}
	return false
}

// complete validates a finished chain and keeps it when the journey
// boards a boardable origin row, alights an alightable destination
// row, and both ends land inside the search window. Bounding both
// ends keeps the result set identical no matter which endpoint drove
// the enumeration.
func (s *searcher) complete(segments []Segment) error {
	r, err := newResult(segments)
	if err != nil {
		return err
	}
	if r.Origin().Pickup == model.PickupNone || r.Destination().DropOff == model.DropOffNone {
		return nil
	}
	if r.Origin().Departure.Before(s.from) || r.Origin().Departure.After(s.to) {
		return nil
	}
	if r.Destination().Arrival.Before(s.from) || r.Destination().Arrival.After(s.to) {
		return nil
	}

	s.mu.Lock()
	s.found = append(s.found, r)
	s.mu.Unlock()
	return nil
}

func usedTrips(segs []Segment) map[string]bool {
	used := make(map[string]bool, len(segs))
	for _, seg := range segs {
		used[seg.Trip.ID] = true
	}
	return used
}
