package query

import (
	"fmt"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

// Row hydration. Readers select gtfs_stops joined with rt_stops_extra
// so stops always carry their operator extras; missing extras fall
// back to the sentinel status, zero transfer weight, and the GTFS
// name.

const stopColumns = `
s.stop_id, s.stop_code, s.stop_name, s.stop_desc, s.stop_lat, s.stop_lon,
s.zone_id, s.stop_url, s.location_type, s.parent_station, s.stop_timezone,
s.wheelchair_boarding, e.status_id, e.display_name, e.transfer_weight`

const stopJoin = `
FROM gtfs_stops s
LEFT JOIN rt_stops_extra e ON s.stop_id = e.stop_id`

func stopFromRow(r storage.Row) *model.Stop {
	name := r.String("display_name")
	if name == "" {
		name = r.String("stop_name")
	}
	statusID := r.String("status_id")
	if statusID == "" {
		statusID = model.StatusIDNone
	}

	return &model.Stop{
		ID:             r.String("stop_id"),
		Code:           r.String("stop_code"),
		Name:           name,
		Desc:           r.String("stop_desc"),
		Lat:            r.Float("stop_lat"),
		Lon:            r.Float("stop_lon"),
		ZoneID:         r.String("zone_id"),
		URL:            r.String("stop_url"),
		LocationType:   model.LocationType(r.Int("location_type")),
		ParentStation:  r.String("parent_station"),
		Timezone:       r.String("stop_timezone"),
		Wheelchair:     model.WheelchairBoarding(r.Int("wheelchair_boarding")),
		StatusID:       statusID,
		TransferWeight: r.Int("transfer_weight"),
	}
}

const routeColumns = `
r.route_id, r.agency_id, r.route_short_name, r.route_long_name,
r.route_desc, r.route_type, r.route_url, r.route_color,
r.route_text_color, r.route_sort_order, a.agency_name, a.agency_url,
a.agency_timezone, a.agency_lang, a.agency_phone, a.agency_fare_url,
a.agency_email`

const routeJoin = `
FROM gtfs_routes r
LEFT JOIN gtfs_agency a ON r.agency_id = a.agency_id`

func routeFromRow(r storage.Row) *model.Route {
	var agency *model.Agency
	if r.Has("agency_name") {
		agency = agencyFromRow(r)
	}

	return &model.Route{
		ID:        r.String("route_id"),
		Agency:    agency,
		ShortName: r.String("route_short_name"),
		LongName:  r.String("route_long_name"),
		Desc:      r.String("route_desc"),
		Type:      model.RouteType(r.Int("route_type")),
		URL:       r.String("route_url"),
		Color:     r.String("route_color"),
		TextColor: r.String("route_text_color"),
		SortOrder: r.Int("route_sort_order"),
	}
}

const stopTimeColumns = `
st.arrival_time, st.arrival_time_seconds, st.departure_time,
st.departure_time_seconds, st.stop_sequence, st.stop_headsign,
st.pickup_type, st.drop_off_type, st.shape_dist_traveled, st.timepoint,` + stopColumns

const stopTimeJoin = `
FROM gtfs_stop_times st
JOIN gtfs_stops s ON st.stop_id = s.stop_id
LEFT JOIN rt_stops_extra e ON s.stop_id = e.stop_id`

func serviceFromRow(r storage.Row, exceptions []*model.ServiceException) *model.Service {
	return &model.Service{
		ID: r.String("service_id"),
		Weekday: model.WeekdayMask(
			r.Int("monday"), r.Int("tuesday"), r.Int("wednesday"),
			r.Int("thursday"), r.Int("friday"), r.Int("saturday"),
			r.Int("sunday"),
		),
		StartDate:  r.Int("start_date"),
		EndDate:    r.Int("end_date"),
		Exceptions: exceptions,
	}
}

func exceptionFromRow(r storage.Row) *model.ServiceException {
	return &model.ServiceException{
		ServiceID: r.String("service_id"),
		Date:      r.Int("date"),
		Type:      model.ExceptionType(r.Int("exception_type")),
	}
}

// stopTimeFromRow hydrates a stop_times row joined with its stop. The
// seconds columns are preferred; absent those, seconds are recomputed
// from the clock strings.
func stopTimeFromRow(r storage.Row, date int) (*model.StopTime, error) {
	arrivalSecs, err := rowSeconds(r, "arrival_time_seconds", "arrival_time")
	if err != nil {
		return nil, err
	}
	departureSecs, err := rowSeconds(r, "departure_time_seconds", "departure_time")
	if err != nil {
		return nil, err
	}

	arrival, err := gtime.FromSeconds(arrivalSecs, date)
	if err != nil {
		return nil, fmt.Errorf("stop time arrival: %w", err)
	}
	departure, err := gtime.FromSeconds(departureSecs, date)
	if err != nil {
		return nil, fmt.Errorf("stop time departure: %w", err)
	}

	return model.NewStopTime(model.StopTimeConfig{
		Stop:      stopFromRow(r),
		Arrival:   arrival,
		Departure: departure,
		Sequence:  r.Int("stop_sequence"),
		Headsign:  r.String("stop_headsign"),
		Pickup:    model.PickupType(r.Int("pickup_type")),
		DropOff:   model.DropOffType(r.Int("drop_off_type")),
		ShapeDist: r.Float("shape_dist_traveled"),
		Timepoint: model.Timepoint(r.Int("timepoint")),
	})
}

func rowSeconds(r storage.Row, secondsCol, clockCol string) (int, error) {
	if r.Has(secondsCol) {
		return r.Int(secondsCol), nil
	}
	secs, err := gtime.ParseClock(r.String(clockCol))
	if err != nil {
		return 0, fmt.Errorf("recomputing %s: %w", secondsCol, err)
	}
	return secs, nil
}

func holidayFromRow(r storage.Row) *model.Holiday {
	return &model.Holiday{
		Date:        r.Int("date"),
		Name:        r.String("holiday_name"),
		Peak:        r.Bool("peak"),
		ServiceInfo: r.String("service_info"),
	}
}

func directionFromRow(r storage.Row) *model.Direction {
	return &model.Direction{
		ID:          r.Int("direction_id"),
		Description: r.String("description"),
	}
}

func linkFromRow(r storage.Row) *model.Link {
	return &model.Link{
		Category:    r.String("link_category_title"),
		Title:       r.String("link_title"),
		Description: r.String("link_description"),
		URL:         r.String("link_url"),
	}
}

func agencyFromRow(r storage.Row) *model.Agency {
	return &model.Agency{
		ID:       r.String("agency_id"),
		Name:     r.String("agency_name"),
		URL:      r.String("agency_url"),
		Timezone: r.String("agency_timezone"),
		Lang:     r.String("agency_lang"),
		Phone:    r.String("agency_phone"),
		FareURL:  r.String("agency_fare_url"),
		Email:    r.String("agency_email"),
	}
}

func aboutFromRow(r storage.Row) *model.About {
	return &model.About{
		CompileDate:     r.Int("compile_date"),
		GTFSPublishDate: r.Int("gtfs_publish_date"),
		StartDate:       r.Int("start_date"),
		EndDate:         r.Int("end_date"),
		Version:         r.Int("version"),
		Notes:           r.String("notes"),
	}
}
