package parse

import (
	"fmt"
	"time"

	rtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	proto "google.golang.org/protobuf/proto"
)

// UpdateKind classifies a stop time update.
type UpdateKind int

const (
	// UpdateScheduled means the trip calls the stop per schedule,
	// possibly with a delay.
	UpdateScheduled UpdateKind = iota
	// UpdateSkipped means the trip will not call the stop.
	UpdateSkipped
	// UpdateNoData means the feed has no prediction for the stop;
	// the static schedule applies.
	UpdateNoData
)

// TimeUpdate is one side (arrival or departure) of a stop time
// update. Set reports whether the feed carried the side at all; Time
// is zero when only a delay was provided.
type TimeUpdate struct {
	Set   bool
	Time  time.Time
	Delay time.Duration
}

// StopTimeUpdate is one stop-level prediction from a TripUpdates
// feed. Feeds may reference the stop by id, by sequence, or both.
type StopTimeUpdate struct {
	TripID    string
	StopID    string
	Sequence  int
	Arrival   TimeUpdate
	Departure TimeUpdate
	Kind      UpdateKind
}

// Realtime is the merged content of one or more GTFS Realtime
// TripUpdates payloads.
type Realtime struct {
	// Header timestamp. With multiple payloads the last one wins.
	Timestamp time.Time

	// Trips cancelled outright.
	CancelledTrips map[string]bool

	// Stop-level updates, in feed order.
	Updates []*StopTimeUpdate

	// Entities with schedule relationships this parser does not
	// handle (added, unscheduled, duplicated trips).
	Unsupported int
}

// ParseRealtime decodes GTFS Realtime feed payloads. Only full-dataset
// TripUpdates feeds are supported; trips without a trip_id are
// dropped, since matching on route and start time is not implemented.
func ParseRealtime(feeds [][]byte) (*Realtime, error) {
	rt := &Realtime{
		CancelledTrips: map[string]bool{},
		Updates:        []*StopTimeUpdate{},
	}

	for _, feed := range feeds {
		msg := &rtpb.FeedMessage{}
		if err := proto.Unmarshal(feed, msg); err != nil {
			return nil, fmt.Errorf("unmarshaling protobuf: %w", err)
		}

		header := msg.GetHeader()
		if v := header.GetGtfsRealtimeVersion(); v != "1.0" && v != "2.0" {
			return nil, fmt.Errorf("gtfs-realtime version %q not supported", v)
		}
		if inc := header.GetIncrementality(); inc != rtpb.FeedHeader_FULL_DATASET {
			return nil, fmt.Errorf("feed incrementality %s not supported", inc)
		}
		if ts := header.GetTimestamp(); ts > 0 {
			rt.Timestamp = time.Unix(int64(ts), 0).UTC()
		}

		if err := rt.addEntities(msg.GetEntity()); err != nil {
			return nil, err
		}
	}

	return rt, nil
}

func (rt *Realtime) addEntities(entities []*rtpb.FeedEntity) error {
	for _, entity := range entities {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		trip := tu.GetTrip()
		if trip == nil {
			return fmt.Errorf("trip_update missing trip descriptor")
		}
		if trip.GetTripId() == "" {
			continue
		}

		switch trip.GetScheduleRelationship() {
		case rtpb.TripDescriptor_SCHEDULED:
			for _, stu := range tu.GetStopTimeUpdate() {
				if err := rt.addStopTimeUpdate(trip.GetTripId(), stu); err != nil {
					return err
				}
			}
		case rtpb.TripDescriptor_CANCELED:
			rt.CancelledTrips[trip.GetTripId()] = true
		default:
			rt.Unsupported++
		}
	}
	return nil
}

func (rt *Realtime) addStopTimeUpdate(tripID string, stu *rtpb.TripUpdate_StopTimeUpdate) error {
	up := &StopTimeUpdate{
		TripID:    tripID,
		StopID:    stu.GetStopId(),
		Sequence:  int(stu.GetStopSequence()),
		Arrival:   timeUpdate(stu.GetArrival()),
		Departure: timeUpdate(stu.GetDeparture()),
	}
	if up.StopID == "" && up.Sequence == 0 {
		// Sequence 0 alone is ambiguous with "unset"; feeds we
		// consume are 1-based.
		return fmt.Errorf("trip %s: stop_time_update missing stop_id and stop_sequence", tripID)
	}

	switch stu.GetScheduleRelationship() {
	case rtpb.TripUpdate_StopTimeUpdate_SCHEDULED:
		up.Kind = UpdateScheduled
	case rtpb.TripUpdate_StopTimeUpdate_SKIPPED:
		up.Kind = UpdateSkipped
	case rtpb.TripUpdate_StopTimeUpdate_NO_DATA:
		up.Kind = UpdateNoData
	default:
		// Frequency-based (UNSCHEDULED) updates are not supported.
		return nil
	}

	rt.Updates = append(rt.Updates, up)
	return nil
}

func timeUpdate(ev *rtpb.TripUpdate_StopTimeEvent) TimeUpdate {
	if ev == nil {
		return TimeUpdate{}
	}
	up := TimeUpdate{
		Set:   true,
		Delay: time.Duration(ev.GetDelay()) * time.Second,
	}
	if unix := ev.GetTime(); unix != 0 {
		up.Time = time.Unix(unix, 0).UTC()
	}
	return up
}
