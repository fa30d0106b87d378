// Package model holds the typed schedule records the query layer
// returns. Values are immutable after construction and safe to share
// across goroutines; the only exception is the query-scoped Distance
// annotation on Stop copies.
package model

import (
	"time"
)

type LocationType int

const (
	LocationTypeStop LocationType = iota
	LocationTypeStation
	LocationTypeEntranceExit
	LocationTypeGenericNode
	LocationTypeBoardingArea
)

type RouteType int

const (
	RouteTypeLightRail RouteType = 0
	RouteTypeSubway    RouteType = 1
	RouteTypeRail      RouteType = 2
	RouteTypeBus       RouteType = 3
	RouteTypeFerry     RouteType = 4
	RouteTypeCableCar  RouteType = 5
	RouteTypeGondola   RouteType = 6
	RouteTypeFunicular RouteType = 7
)

func (rt RouteType) IsValid() bool {
	return rt >= RouteTypeLightRail && rt <= RouteTypeFunicular
}

// WheelchairBoarding and Bikes share the GTFS unknown/yes/no encoding.
type WheelchairBoarding int

const (
	WheelchairUnknown WheelchairBoarding = 0
	WheelchairYes     WheelchairBoarding = 1
	WheelchairNo      WheelchairBoarding = 2
)

func (w WheelchairBoarding) IsValid() bool {
	return w >= WheelchairUnknown && w <= WheelchairNo
}

type Bikes int

const (
	BikesUnknown Bikes = 0
	BikesYes     Bikes = 1
	BikesNo      Bikes = 2
)

func (b Bikes) IsValid() bool {
	return b >= BikesUnknown && b <= BikesNo
}

// PickupType and DropOffType describe boarding rules at a stop time.
type PickupType int

const (
	PickupRegular     PickupType = 0
	PickupNone        PickupType = 1
	PickupPhoneAgency PickupType = 2
	PickupCoordinate  PickupType = 3
)

func (p PickupType) IsValid() bool {
	return p >= PickupRegular && p <= PickupCoordinate
}

type DropOffType int

const (
	DropOffRegular     DropOffType = 0
	DropOffNone        DropOffType = 1
	DropOffPhoneAgency DropOffType = 2
	DropOffCoordinate  DropOffType = 3
)

func (d DropOffType) IsValid() bool {
	return d >= DropOffRegular && d <= DropOffCoordinate
}

type Timepoint int

const (
	TimepointApproximate Timepoint = 0
	TimepointExact       Timepoint = 1
)

func (tp Timepoint) IsValid() bool {
	return tp == TimepointApproximate || tp == TimepointExact
}

// ExceptionType marks a calendar-date override as adding or removing a
// service on its date.
type ExceptionType int

const (
	ServiceAdded   ExceptionType = 1
	ServiceRemoved ExceptionType = 2
)

func (e ExceptionType) IsValid() bool {
	return e == ServiceAdded || e == ServiceRemoved
}

// PeakIndicator is the base peak flag stored on a trip. The effective
// peak boolean is resolved per service date against the holiday table.
type PeakIndicator int

const (
	PeakNever    PeakIndicator = 0
	PeakAlways   PeakIndicator = 1
	PeakWeekdays PeakIndicator = 2
)

func (p PeakIndicator) IsValid() bool {
	return p >= PeakNever && p <= PeakWeekdays
}

// StatusIDNone is the rt_stops_extra sentinel for stops without
// real-time feed support.
const StatusIDNone = "-1"

type Agency struct {
	ID       string
	Name     string
	URL      string
	Timezone string
	Lang     string
	Phone    string
	FareURL  string
	Email    string
}

type Route struct {
	ID        string
	Agency    *Agency
	ShortName string
	LongName  string
	Desc      string
	Type      RouteType
	URL       string
	Color     string
	TextColor string
	SortOrder int
}

// Stop is a GTFS stop merged with its rt_stops_extra record. Name is
// the effective display name: the operator display name when set,
// otherwise the GTFS stop name.
type Stop struct {
	ID             string
	Code           string
	Name           string
	Desc           string
	Lat            float64
	Lon            float64
	ZoneID         string
	URL            string
	LocationType   LocationType
	ParentStation  string
	Timezone       string
	Wheelchair     WheelchairBoarding
	StatusID       string
	TransferWeight int

	// Distance from a location query, in miles. Only set on copies
	// returned by StopsByLocation; zero otherwise.
	Distance float64
}

// HasFeed reports whether the stop supports real-time station feeds.
func (s *Stop) HasFeed() bool {
	return s.StatusID != "" && s.StatusID != StatusIDNone
}

// Service is a calendar row with its calendar-date exceptions. Weekday
// is a bitmask indexed by time.Weekday.
type Service struct {
	ID         string
	Weekday    int8
	StartDate  int
	EndDate    int
	Exceptions []*ServiceException
}

// RunsOn reports whether the base calendar includes the weekday.
func (s *Service) RunsOn(wd time.Weekday) bool {
	return s.Weekday&(1<<wd) != 0
}

// WeekdayMask folds the seven calendar flag columns into the bitmask
// Service.Weekday carries.
func WeekdayMask(mon, tue, wed, thu, fri, sat, sun int) int8 {
	var mask int8
	for wd, v := range map[time.Weekday]int{
		time.Monday: mon, time.Tuesday: tue, time.Wednesday: wed,
		time.Thursday: thu, time.Friday: fri, time.Saturday: sat,
		time.Sunday: sun,
	} {
		if v == 1 {
			mask |= 1 << wd
		}
	}
	return mask
}

// InRange reports whether date falls inside the service span,
// inclusive on both ends.
func (s *Service) InRange(date int) bool {
	return s.StartDate <= date && date <= s.EndDate
}

type ServiceException struct {
	ServiceID string
	Date      int
	Type      ExceptionType
}

type Holiday struct {
	Date        int
	Name        string
	Peak        bool
	ServiceInfo string
}

// Direction pairs a GTFS direction_id with its operator description.
type Direction struct {
	ID          int
	Description string
}

type ShapePoint struct {
	Lat          float64
	Lon          float64
	Sequence     int
	DistTraveled float64
}

type Shape struct {
	ID     string
	Points []ShapePoint
}

// Center returns the mean latitude and longitude of the shape points.
func (s *Shape) Center() (lat, lon float64) {
	if len(s.Points) == 0 {
		return 0, 0
	}
	for _, p := range s.Points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(s.Points))
	return lat / n, lon / n
}

type Link struct {
	Category    string
	Title       string
	Description string
	URL         string
}

// About is the rt_about metadata row describing the schedule database.
type About struct {
	CompileDate     int
	GTFSPublishDate int
	StartDate       int
	EndDate         int
	Version         int
	Notes           string
}
