package storage

import (
	"database/sql"
	"fmt"
)

// schemaDDL creates the schedule tables. Type names are chosen to
// carry the right affinity on SQLite and the right types on Postgres.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS gtfs_agency (
    agency_id TEXT PRIMARY KEY,
    agency_name TEXT NOT NULL,
    agency_url TEXT NOT NULL,
    agency_timezone TEXT NOT NULL,
    agency_lang TEXT,
    agency_phone TEXT,
    agency_fare_url TEXT,
    agency_email TEXT
);

CREATE TABLE IF NOT EXISTS gtfs_routes (
    route_id TEXT PRIMARY KEY,
    agency_id TEXT,
    route_short_name TEXT,
    route_long_name TEXT,
    route_desc TEXT,
    route_type INTEGER NOT NULL,
    route_url TEXT,
    route_color TEXT,
    route_text_color TEXT,
    route_sort_order INTEGER
);

CREATE TABLE IF NOT EXISTS gtfs_stops (
    stop_id TEXT PRIMARY KEY,
    stop_code TEXT,
    stop_name TEXT NOT NULL,
    stop_desc TEXT,
    stop_lat DOUBLE PRECISION NOT NULL,
    stop_lon DOUBLE PRECISION NOT NULL,
    zone_id TEXT,
    stop_url TEXT,
    location_type INTEGER,
    parent_station TEXT,
    stop_timezone TEXT,
    wheelchair_boarding INTEGER
);

CREATE TABLE IF NOT EXISTS gtfs_stop_times (
    trip_id TEXT NOT NULL,
    arrival_time TEXT NOT NULL,
    arrival_time_seconds INTEGER,
    departure_time TEXT NOT NULL,
    departure_time_seconds INTEGER,
    stop_id TEXT NOT NULL,
    stop_sequence INTEGER NOT NULL,
    stop_headsign TEXT,
    pickup_type INTEGER,
    drop_off_type INTEGER,
    shape_dist_traveled DOUBLE PRECISION,
    timepoint INTEGER,
    PRIMARY KEY (trip_id, stop_sequence)
);

CREATE TABLE IF NOT EXISTS gtfs_trips (
    trip_id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL,
    service_id TEXT NOT NULL,
    trip_headsign TEXT,
    trip_short_name TEXT,
    direction_id INTEGER,
    block_id TEXT,
    shape_id TEXT,
    wheelchair_accessible INTEGER,
    bikes_allowed INTEGER,
    peak INTEGER
);

CREATE TABLE IF NOT EXISTS gtfs_calendar (
    service_id TEXT PRIMARY KEY,
    monday INTEGER NOT NULL,
    tuesday INTEGER NOT NULL,
    wednesday INTEGER NOT NULL,
    thursday INTEGER NOT NULL,
    friday INTEGER NOT NULL,
    saturday INTEGER NOT NULL,
    sunday INTEGER NOT NULL,
    start_date INTEGER NOT NULL,
    end_date INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS gtfs_calendar_dates (
    service_id TEXT NOT NULL,
    date INTEGER NOT NULL,
    exception_type INTEGER NOT NULL,
    PRIMARY KEY (service_id, date)
);

CREATE TABLE IF NOT EXISTS gtfs_directions (
    direction_id INTEGER PRIMARY KEY,
    description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS gtfs_shapes (
    shape_id TEXT NOT NULL,
    shape_pt_lat DOUBLE PRECISION NOT NULL,
    shape_pt_lon DOUBLE PRECISION NOT NULL,
    shape_pt_sequence INTEGER NOT NULL,
    shape_dist_traveled DOUBLE PRECISION,
    PRIMARY KEY (shape_id, shape_pt_sequence)
);

CREATE TABLE IF NOT EXISTS rt_stops_extra (
    stop_id TEXT PRIMARY KEY,
    status_id TEXT NOT NULL,
    display_name TEXT,
    transfer_weight INTEGER NOT NULL,
    zone_id TEXT
);

CREATE TABLE IF NOT EXISTS rt_alt_stop_names (
    stop_id TEXT NOT NULL,
    alt_stop_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rt_holidays (
    date INTEGER PRIMARY KEY,
    holiday_name TEXT NOT NULL,
    peak INTEGER NOT NULL,
    service_info TEXT
);

CREATE TABLE IF NOT EXISTS rt_links (
    link_category_title TEXT NOT NULL,
    link_title TEXT NOT NULL,
    link_description TEXT,
    link_url TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rt_line_graph (
    stop1_id TEXT NOT NULL,
    stop2_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rt_route_graph (
    stop1_id TEXT NOT NULL,
    stop2_id TEXT NOT NULL,
    direction_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rt_about (
    compile_date INTEGER NOT NULL,
    gtfs_publish_date INTEGER NOT NULL,
    start_date INTEGER NOT NULL,
    end_date INTEGER NOT NULL,
    version INTEGER NOT NULL,
    notes TEXT
);

CREATE TABLE IF NOT EXISTS rt_feed (
    feed_url TEXT PRIMARY KEY,
    feed_hash TEXT NOT NULL,
    feed_headers TEXT,
    retrieved_at INTEGER NOT NULL,
    refreshed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stop_times_trip ON gtfs_stop_times (trip_id);
CREATE INDEX IF NOT EXISTS idx_stop_times_stop_departure ON gtfs_stop_times (stop_id, departure_time_seconds);
CREATE INDEX IF NOT EXISTS idx_stop_times_stop_arrival ON gtfs_stop_times (stop_id, arrival_time_seconds);
CREATE INDEX IF NOT EXISTS idx_trips_service ON gtfs_trips (service_id);
CREATE INDEX IF NOT EXISTS idx_trips_route ON gtfs_trips (route_id);
CREATE INDEX IF NOT EXISTS idx_calendar_dates_date ON gtfs_calendar_dates (date);
CREATE INDEX IF NOT EXISTS idx_shapes_shape ON gtfs_shapes (shape_id);
`

// CreateSchema creates the schedule tables and indexes if they do not
// already exist.
func CreateSchema(store *SQLStore) error {
	if _, err := store.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schedule schema: %w", err)
	}
	return nil
}

var scheduleTables = []string{
	"gtfs_agency",
	"gtfs_routes",
	"gtfs_stops",
	"gtfs_stop_times",
	"gtfs_trips",
	"gtfs_calendar",
	"gtfs_calendar_dates",
	"gtfs_directions",
	"gtfs_shapes",
	"rt_stops_extra",
	"rt_alt_stop_names",
	"rt_holidays",
	"rt_links",
	"rt_line_graph",
	"rt_route_graph",
	"rt_about",
	"rt_feed",
}

// ResetSchema drops every schedule table and recreates the schema,
// leaving an empty database ready for a fresh load.
func ResetSchema(store *SQLStore) error {
	for _, table := range scheduleTables {
		if _, err := store.db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return CreateSchema(store)
}

// Flat records the loader writes. Column encodings (weekday flags,
// enum ints, seconds columns) match the table layout, not the typed
// entity model.

type AgencyRecord struct {
	ID       string
	Name     string
	URL      string
	Timezone string
	Lang     string
	Phone    string
	FareURL  string
	Email    string
}

type RouteRecord struct {
	ID        string
	AgencyID  string
	ShortName string
	LongName  string
	Desc      string
	Type      int
	URL       string
	Color     string
	TextColor string
	SortOrder int
}

type StopRecord struct {
	ID            string
	Code          string
	Name          string
	Desc          string
	Lat           float64
	Lon           float64
	ZoneID        string
	URL           string
	LocationType  int
	ParentStation string
	Timezone      string
	Wheelchair    int
}

type TripRecord struct {
	ID          string
	RouteID     string
	ServiceID   string
	Headsign    string
	ShortName   string
	DirectionID int
	BlockID     string
	ShapeID     string
	Wheelchair  int
	Bikes       int
	Peak        int
}

type StopTimeRecord struct {
	TripID        string
	Arrival       string
	ArrivalSecs   int
	Departure     string
	DepartureSecs int
	StopID        string
	Sequence      int
	Headsign      string
	Pickup        int
	DropOff       int
	ShapeDist     float64
	Timepoint     int
}

type CalendarRecord struct {
	ServiceID string
	Monday    int
	Tuesday   int
	Wednesday int
	Thursday  int
	Friday    int
	Saturday  int
	Sunday    int
	StartDate int
	EndDate   int
}

type CalendarDateRecord struct {
	ServiceID string
	Date      int
	Exception int
}

type DirectionRecord struct {
	ID          int
	Description string
}

type ShapePointRecord struct {
	ShapeID      string
	Lat          float64
	Lon          float64
	Sequence     int
	DistTraveled float64
}

type StopExtraRecord struct {
	StopID         string
	StatusID       string
	DisplayName    string
	TransferWeight int
	ZoneID         string
}

type AltStopNameRecord struct {
	StopID  string
	AltName string
}

type HolidayRecord struct {
	Date        int
	Name        string
	Peak        int
	ServiceInfo string
}

type LinkRecord struct {
	Category    string
	Title       string
	Description string
	URL         string
}

type LineGraphEdgeRecord struct {
	Stop1ID string
	Stop2ID string
}

type RouteGraphEdgeRecord struct {
	Stop1ID     string
	Stop2ID     string
	DirectionID int
}

type AboutRecord struct {
	CompileDate     int
	GTFSPublishDate int
	StartDate       int
	EndDate         int
	Version         int
	Notes           string
}

// FeedRecord tracks the zip a database was loaded from. Timestamps are
// unix seconds. One row per database.
type FeedRecord struct {
	URL         string
	Hash        string
	Headers     string
	RetrievedAt int64
	RefreshedAt int64
}

// Writer inserts schedule records. stop_times and shapes tend to be
// very large, so their writes run inside an explicit
// Begin/Write/End transaction with a prepared statement.
type Writer struct {
	store *SQLStore

	stopTimesTx   *sql.Tx
	stopTimesStmt *sql.Stmt

	shapesTx   *sql.Tx
	shapesStmt *sql.Stmt
}

func NewWriter(store *SQLStore) *Writer {
	return &Writer{store: store}
}

func (w *Writer) exec(query string, args ...any) error {
	if _, err := w.store.db.Exec(w.store.db.Rebind(query), args...); err != nil {
		return &StoreError{Query: query, Err: err}
	}
	return nil
}

func (w *Writer) WriteAgency(a *AgencyRecord) error {
	return w.exec(`
INSERT INTO gtfs_agency (agency_id, agency_name, agency_url, agency_timezone, agency_lang, agency_phone, agency_fare_url, agency_email)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.URL, a.Timezone, a.Lang, a.Phone, a.FareURL, a.Email)
}

func (w *Writer) WriteRoute(r *RouteRecord) error {
	return w.exec(`
INSERT INTO gtfs_routes (route_id, agency_id, route_short_name, route_long_name, route_desc, route_type, route_url, route_color, route_text_color, route_sort_order)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AgencyID, r.ShortName, r.LongName, r.Desc, r.Type, r.URL, r.Color, r.TextColor, r.SortOrder)
}

func (w *Writer) WriteStop(s *StopRecord) error {
	return w.exec(`
INSERT INTO gtfs_stops (stop_id, stop_code, stop_name, stop_desc, stop_lat, stop_lon, zone_id, stop_url, location_type, parent_station, stop_timezone, wheelchair_boarding)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Code, s.Name, s.Desc, s.Lat, s.Lon, s.ZoneID, s.URL, s.LocationType, s.ParentStation, s.Timezone, s.Wheelchair)
}

func (w *Writer) WriteTrip(t *TripRecord) error {
	return w.exec(`
INSERT INTO gtfs_trips (trip_id, route_id, service_id, trip_headsign, trip_short_name, direction_id, block_id, shape_id, wheelchair_accessible, bikes_allowed, peak)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.RouteID, t.ServiceID, t.Headsign, t.ShortName, t.DirectionID, t.BlockID, t.ShapeID, t.Wheelchair, t.Bikes, t.Peak)
}

func (w *Writer) WriteCalendar(c *CalendarRecord) error {
	return w.exec(`
INSERT INTO gtfs_calendar (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ServiceID, c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday, c.StartDate, c.EndDate)
}

func (w *Writer) WriteCalendarDate(cd *CalendarDateRecord) error {
	return w.exec(`
INSERT INTO gtfs_calendar_dates (service_id, date, exception_type)
VALUES (?, ?, ?)`,
		cd.ServiceID, cd.Date, cd.Exception)
}

func (w *Writer) WriteDirection(d *DirectionRecord) error {
	return w.exec(`
INSERT INTO gtfs_directions (direction_id, description)
VALUES (?, ?)`,
		d.ID, d.Description)
}

func (w *Writer) WriteStopExtra(e *StopExtraRecord) error {
	return w.exec(`
INSERT INTO rt_stops_extra (stop_id, status_id, display_name, transfer_weight, zone_id)
VALUES (?, ?, ?, ?, ?)`,
		e.StopID, e.StatusID, e.DisplayName, e.TransferWeight, e.ZoneID)
}

func (w *Writer) WriteAltStopName(a *AltStopNameRecord) error {
	return w.exec(`
INSERT INTO rt_alt_stop_names (stop_id, alt_stop_name)
VALUES (?, ?)`,
		a.StopID, a.AltName)
}

func (w *Writer) WriteHoliday(h *HolidayRecord) error {
	return w.exec(`
INSERT INTO rt_holidays (date, holiday_name, peak, service_info)
VALUES (?, ?, ?, ?)`,
		h.Date, h.Name, h.Peak, h.ServiceInfo)
}

func (w *Writer) WriteLink(l *LinkRecord) error {
	return w.exec(`
INSERT INTO rt_links (link_category_title, link_title, link_description, link_url)
VALUES (?, ?, ?, ?)`,
		l.Category, l.Title, l.Description, l.URL)
}

func (w *Writer) WriteLineGraphEdge(e *LineGraphEdgeRecord) error {
	return w.exec(`
INSERT INTO rt_line_graph (stop1_id, stop2_id)
VALUES (?, ?)`,
		e.Stop1ID, e.Stop2ID)
}

func (w *Writer) WriteRouteGraphEdge(e *RouteGraphEdgeRecord) error {
	return w.exec(`
INSERT INTO rt_route_graph (stop1_id, stop2_id, direction_id)
VALUES (?, ?, ?)`,
		e.Stop1ID, e.Stop2ID, e.DirectionID)
}

func (w *Writer) WriteAbout(a *AboutRecord) error {
	return w.exec(`
INSERT INTO rt_about (compile_date, gtfs_publish_date, start_date, end_date, version, notes)
VALUES (?, ?, ?, ?, ?, ?)`,
		a.CompileDate, a.GTFSPublishDate, a.StartDate, a.EndDate, a.Version, a.Notes)
}

// WriteFeed replaces the feed record. The table holds a single row.
func (w *Writer) WriteFeed(f *FeedRecord) error {
	if err := w.exec(`DELETE FROM rt_feed`); err != nil {
		return err
	}
	return w.exec(`
INSERT INTO rt_feed (feed_url, feed_hash, feed_headers, retrieved_at, refreshed_at)
VALUES (?, ?, ?, ?, ?)`,
		f.URL, f.Hash, f.Headers, f.RetrievedAt, f.RefreshedAt)
}

const stopTimeInsert = `
INSERT INTO gtfs_stop_times (trip_id, arrival_time, arrival_time_seconds, departure_time, departure_time_seconds, stop_id, stop_sequence, stop_headsign, pickup_type, drop_off_type, shape_dist_traveled, timepoint)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (w *Writer) BeginStopTimes() error {
	tx, err := w.store.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning stop_times transaction: %w", err)
	}
	stmt, err := tx.Prepare(w.store.db.Rebind(stopTimeInsert))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing stop_times insert: %w", err)
	}
	w.stopTimesTx = tx
	w.stopTimesStmt = stmt
	return nil
}

func (w *Writer) WriteStopTime(st *StopTimeRecord) error {
	_, err := w.stopTimesStmt.Exec(
		st.TripID,
		st.Arrival,
		st.ArrivalSecs,
		st.Departure,
		st.DepartureSecs,
		st.StopID,
		st.Sequence,
		st.Headsign,
		st.Pickup,
		st.DropOff,
		st.ShapeDist,
		st.Timepoint,
	)
	if err != nil {
		w.stopTimesStmt.Close()
		w.stopTimesTx.Rollback()
		w.stopTimesTx = nil
		w.stopTimesStmt = nil
		return fmt.Errorf("inserting stop_time: %w", err)
	}
	return nil
}

func (w *Writer) EndStopTimes() error {
	w.stopTimesStmt.Close()
	if err := w.stopTimesTx.Commit(); err != nil {
		return fmt.Errorf("committing stop_times transaction: %w", err)
	}
	w.stopTimesTx = nil
	w.stopTimesStmt = nil
	return nil
}

const shapePointInsert = `
INSERT INTO gtfs_shapes (shape_id, shape_pt_lat, shape_pt_lon, shape_pt_sequence, shape_dist_traveled)
VALUES (?, ?, ?, ?, ?)`

func (w *Writer) BeginShapes() error {
	tx, err := w.store.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning shapes transaction: %w", err)
	}
	stmt, err := tx.Prepare(w.store.db.Rebind(shapePointInsert))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing shapes insert: %w", err)
	}
	w.shapesTx = tx
	w.shapesStmt = stmt
	return nil
}

func (w *Writer) WriteShapePoint(p *ShapePointRecord) error {
	_, err := w.shapesStmt.Exec(p.ShapeID, p.Lat, p.Lon, p.Sequence, p.DistTraveled)
	if err != nil {
		w.shapesStmt.Close()
		w.shapesTx.Rollback()
		w.shapesTx = nil
		w.shapesStmt = nil
		return fmt.Errorf("inserting shape point: %w", err)
	}
	return nil
}

func (w *Writer) EndShapes() error {
	w.shapesStmt.Close()
	if err := w.shapesTx.Commit(); err != nil {
		return fmt.Errorf("committing shapes transaction: %w", err)
	}
	w.shapesTx = nil
	w.shapesStmt = nil
	return nil
}
