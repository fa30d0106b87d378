package search

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
)

// Segment is one ride on a single trip: board at Enter, alight at
// Exit.
type Segment struct {
	Trip  *model.Trip
	Enter *model.StopTime
	Exit  *model.StopTime
}

// Transfer is the change of trips between two consecutive segments.
// Arrival is when the earlier trip reaches the stop, Departure when
// the later one leaves it.
type Transfer struct {
	Stop      *model.Stop
	Arrival   gtime.DateTime
	Departure gtime.DateTime
}

// Layover is the wait between alighting and boarding.
func (tr Transfer) Layover() time.Duration {
	return tr.Departure.Sub(tr.Arrival)
}

// Result is one planned journey. Segments run in travel order;
// Transfers[i] sits between Segments[i] and Segments[i+1].
type Result struct {
	Segments  []Segment
	Transfers []Transfer
}

// newResult assembles a result from chained segments. Consecutive
// segments must hand over at the same stop, and no trip may leave a
// transfer stop before the previous one arrives.
func newResult(segments []Segment) (Result, error) {
	if len(segments) == 0 {
		return Result{}, fmt.Errorf("result: no segments")
	}
	for i, seg := range segments {
		if seg.Trip == nil || seg.Enter == nil || seg.Exit == nil {
			return Result{}, fmt.Errorf("result: segment %d incomplete", i)
		}
		if seg.Enter.Sequence >= seg.Exit.Sequence {
			return Result{}, fmt.Errorf("result: trip %s exits at sequence %d without passing boarding sequence %d",
				seg.Trip.ID, seg.Exit.Sequence, seg.Enter.Sequence)
		}
	}

	transfers := make([]Transfer, 0, len(segments)-1)
	for i := 1; i < len(segments); i++ {
		prev, cur := segments[i-1], segments[i]
		if prev.Exit.Stop.ID != cur.Enter.Stop.ID {
			return Result{}, fmt.Errorf("result: trip %s exits at %s but trip %s boards at %s",
				prev.Trip.ID, prev.Exit.Stop.ID, cur.Trip.ID, cur.Enter.Stop.ID)
		}
		if cur.Enter.Departure.Before(prev.Exit.Arrival) {
			return Result{}, fmt.Errorf("result: trip %s leaves %s at %s before trip %s arrives at %s",
				cur.Trip.ID, cur.Enter.Stop.ID, cur.Enter.Departure, prev.Trip.ID, prev.Exit.Arrival)
		}
		transfers = append(transfers, Transfer{
			Stop:      cur.Enter.Stop,
			Arrival:   prev.Exit.Arrival,
			Departure: cur.Enter.Departure,
		})
	}

	return Result{Segments: segments, Transfers: transfers}, nil
}

// Origin is the boarding stop time of the first segment.
func (r Result) Origin() *model.StopTime {
	return r.Segments[0].Enter
}

// Destination is the alighting stop time of the last segment.
func (r Result) Destination() *model.StopTime {
	return r.Segments[len(r.Segments)-1].Exit
}

// TravelTime spans first boarding to final arrival, layovers
// included.
func (r Result) TravelTime() time.Duration {
	return r.Destination().Arrival.Sub(r.Origin().Departure)
}

// key identifies the journey: per segment, the trip, where it was
// boarded and left, and the boarding instant to separate runs of the
// same trip on different service dates.
func (r Result) key() string {
	parts := make([]string, 0, len(r.Segments)*4)
	for _, seg := range r.Segments {
		parts = append(parts,
			seg.Trip.ID,
			seg.Enter.Stop.ID,
			strconv.FormatInt(seg.Enter.Departure.Instant(), 10),
			seg.Exit.Stop.ID,
		)
	}
	return strings.Join(parts, "\x1f")
}

// dedupe applies dominance pruning: per boarding instant only the
// earliest-arriving journey survives, and per arrival instant only
// the latest-departing one. Survivors sort by boarding instant.
func dedupe(results []Result) []Result {
	byDeparture := map[int64]Result{}
	for _, r := range results {
		at := r.Origin().Departure.Instant()
		held, ok := byDeparture[at]
		if !ok || dominatesSameDeparture(r, held) {
			byDeparture[at] = r
		}
	}

	byArrival := map[int64]Result{}
	for _, r := range byDeparture {
		at := r.Destination().Arrival.Instant()
		held, ok := byArrival[at]
		if !ok || dominatesSameArrival(r, held) {
			byArrival[at] = r
		}
	}

	out := make([]Result, 0, len(byArrival))
	for _, r := range byArrival {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Origin().Departure.Before(out[j].Origin().Departure)
	})
	return out
}

// dominatesSameDeparture reports whether a beats b for riders
// boarding at the same instant: earlier arrival, then fewer
// segments. The journey key settles exact ties so concurrent
// expansion order cannot leak into results.
func dominatesSameDeparture(a, b Result) bool {
	if c := a.Destination().Arrival.Compare(b.Destination().Arrival); c != 0 {
		return c < 0
	}
	if len(a.Segments) != len(b.Segments) {
		return len(a.Segments) < len(b.Segments)
	}
	return a.key() < b.key()
}

// dominatesSameArrival reports whether a beats b for riders arriving
// at the same instant: later departure, then fewer segments.
func dominatesSameArrival(a, b Result) bool {
	if c := a.Origin().Departure.Compare(b.Origin().Departure); c != 0 {
		return c > 0
	}
	if len(a.Segments) != len(b.Segments) {
		return len(a.Segments) < len(b.Segments)
	}
	return a.key() < b.key()
}
