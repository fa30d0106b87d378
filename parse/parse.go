// Package parse loads a GTFS zip, plus the operator extension files,
// into a schedule database. Feeds are validated as they load: unknown
// references and malformed rows abort the load.
package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"github.com/right-track/right-track-core-sub000/storage"
)

// Summary reports what a load wrote.
type Summary struct {
	Agencies          int
	Routes            int
	Services          int
	ServiceExceptions int
	Trips             int
	Stops             int
	StopTimes         int
	Directions        int
	ShapePoints       int
	StopsExtra        int
	AltStopNames      int
	Holidays          int
	Links             int
	LineGraphEdges    int

	// Calendar span across calendar.txt and calendar_dates.txt,
	// as YYYYMMDD.
	StartDate int
	EndDate   int
}

// LoadFile loads the GTFS zip at path into the store.
func LoadFile(store *storage.SQLStore, path string) (*Summary, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return LoadZip(store, buf)
}

// LoadZip loads a GTFS zip from memory into the store. The standard
// GTFS files are required (calendar.txt or calendar_dates.txt may
// stand alone); directions.txt, shapes.txt and the rt_* extension
// files load when present.
func LoadZip(store *storage.SQLStore, buf []byte) (*Summary, error) {
	file := map[string]io.ReadCloser{
		"agency.txt":            nil,
		"routes.txt":            nil,
		"stops.txt":             nil,
		"trips.txt":             nil,
		"stop_times.txt":        nil,
		"calendar.txt":          nil,
		"calendar_dates.txt":    nil,
		"directions.txt":        nil,
		"shapes.txt":            nil,
		"rt_stops_extra.txt":    nil,
		"rt_alt_stop_names.txt": nil,
		"rt_holidays.txt":       nil,
		"rt_links.txt":          nil,
		"rt_line_graph.txt":     nil,
		"rt_route_graph.txt":    nil,
		"rt_about.txt":          nil,
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// Some agencies wrap the feed in a subdirectory.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if _, found := file[fName]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
	}

	if file["calendar.txt"] == nil && file["calendar_dates.txt"] == nil {
		return nil, fmt.Errorf("missing calendar.txt and calendar_dates.txt")
	}
	for _, required := range []string{"agency.txt", "routes.txt", "stops.txt", "trips.txt", "stop_times.txt"} {
		if file[required] == nil {
			return nil, fmt.Errorf("missing %s", required)
		}
	}

	// LazyCSVReader survives sloppy quoting; the BOM reader strips
	// unicode BOMs.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	if err := storage.CreateSchema(store); err != nil {
		return nil, err
	}

	sum := &Summary{}
	w := storage.NewWriter(store)

	agencies, err := ParseAgencies(w, file["agency.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing agency.txt: %w", err)
	}
	sum.Agencies = len(agencies)

	routes, err := ParseRoutes(w, file["routes.txt"], agencies)
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}
	sum.Routes = len(routes)

	services := map[string]bool{}
	if file["calendar.txt"] != nil {
		calServices, start, end, err := ParseCalendar(w, file["calendar.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar.txt: %w", err)
		}
		services = calServices
		sum.StartDate, sum.EndDate = start, end
	}
	if file["calendar_dates.txt"] != nil {
		cdServices, count, minDate, maxDate, err := ParseCalendarDates(w, file["calendar_dates.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing calendar_dates.txt: %w", err)
		}
		for serviceID := range cdServices {
			services[serviceID] = true
		}
		sum.ServiceExceptions = count
		if sum.StartDate == 0 || (minDate != 0 && minDate < sum.StartDate) {
			sum.StartDate = minDate
		}
		if maxDate > sum.EndDate {
			sum.EndDate = maxDate
		}
	}
	sum.Services = len(services)

	trips, err := ParseTrips(w, file["trips.txt"], routes, services)
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}
	sum.Trips = len(trips)

	stops, err := ParseStops(w, file["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}
	sum.Stops = len(stops)

	if err := w.BeginStopTimes(); err != nil {
		return nil, fmt.Errorf("beginning stop_times: %w", err)
	}
	sum.StopTimes, err = ParseStopTimes(w, file["stop_times.txt"], trips, stops)
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}
	if err := w.EndStopTimes(); err != nil {
		return nil, fmt.Errorf("ending stop_times: %w", err)
	}

	if file["directions.txt"] != nil {
		sum.Directions, err = ParseDirections(w, file["directions.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing directions.txt: %w", err)
		}
	}

	if file["shapes.txt"] != nil {
		if err := w.BeginShapes(); err != nil {
			return nil, fmt.Errorf("beginning shapes: %w", err)
		}
		sum.ShapePoints, err = ParseShapes(w, file["shapes.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing shapes.txt: %w", err)
		}
		if err := w.EndShapes(); err != nil {
			return nil, fmt.Errorf("ending shapes: %w", err)
		}
	}

	if file["rt_stops_extra.txt"] != nil {
		sum.StopsExtra, err = ParseStopsExtra(w, file["rt_stops_extra.txt"], stops)
		if err != nil {
			return nil, fmt.Errorf("parsing rt_stops_extra.txt: %w", err)
		}
	}
	if file["rt_alt_stop_names.txt"] != nil {
		sum.AltStopNames, err = ParseAltStopNames(w, file["rt_alt_stop_names.txt"], stops)
		if err != nil {
			return nil, fmt.Errorf("parsing rt_alt_stop_names.txt: %w", err)
		}
	}
	if file["rt_holidays.txt"] != nil {
		sum.Holidays, err = ParseHolidays(w, file["rt_holidays.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing rt_holidays.txt: %w", err)
		}
	}
	if file["rt_links.txt"] != nil {
		sum.Links, err = ParseLinks(w, file["rt_links.txt"])
		if err != nil {
			return nil, fmt.Errorf("parsing rt_links.txt: %w", err)
		}
	}
	if file["rt_line_graph.txt"] != nil {
		sum.LineGraphEdges, err = ParseLineGraph(w, file["rt_line_graph.txt"], stops)
		if err != nil {
			return nil, fmt.Errorf("parsing rt_line_graph.txt: %w", err)
		}
	}
	if file["rt_route_graph.txt"] != nil {
		if err := ParseRouteGraph(w, file["rt_route_graph.txt"], stops); err != nil {
			return nil, fmt.Errorf("parsing rt_route_graph.txt: %w", err)
		}
	}

	if err := writeAbout(w, file["rt_about.txt"], sum); err != nil {
		return nil, fmt.Errorf("writing about record: %w", err)
	}

	return sum, nil
}

// writeAbout stores the rt_about row, synthesizing one from the
// calendar span when the feed ships no rt_about.txt.
func writeAbout(w *storage.Writer, data io.Reader, sum *Summary) error {
	if data != nil {
		about, err := ParseAbout(data)
		if err != nil {
			return err
		}
		return w.WriteAbout(about)
	}

	now := time.Now()
	today := now.Year()*10000 + int(now.Month())*100 + now.Day()
	return w.WriteAbout(&storage.AboutRecord{
		CompileDate:     today,
		GTFSPublishDate: sum.StartDate,
		StartDate:       sum.StartDate,
		EndDate:         sum.EndDate,
		Version:         today,
		Notes:           "compiled from GTFS feed",
	})
}
