package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

// Parsers for the operator extension files (rt_*). All are optional
// in a feed; when present their stop references must resolve.

type StopExtraCSV struct {
	StopID         string `csv:"stop_id"`
	StatusID       string `csv:"status_id"`
	DisplayName    string `csv:"display_name"`
	TransferWeight int    `csv:"transfer_weight"`
	ZoneID         string `csv:"zone_id"`
}

type AltStopNameCSV struct {
	StopID      string `csv:"stop_id"`
	AltStopName string `csv:"alt_stop_name"`
}

type HolidayCSV struct {
	Date        int    `csv:"date"`
	Name        string `csv:"holiday_name"`
	Peak        int    `csv:"peak"`
	ServiceInfo string `csv:"service_info"`
}

type LinkCSV struct {
	Category    string `csv:"link_category_title"`
	Title       string `csv:"link_title"`
	Description string `csv:"link_description"`
	URL         string `csv:"link_url"`
}

type LineGraphCSV struct {
	Stop1ID string `csv:"stop1_id"`
	Stop2ID string `csv:"stop2_id"`
}

type RouteGraphCSV struct {
	Stop1ID     string `csv:"stop1_id"`
	Stop2ID     string `csv:"stop2_id"`
	DirectionID int    `csv:"direction_id"`
}

type AboutCSV struct {
	CompileDate     int    `csv:"compile_date"`
	GTFSPublishDate int    `csv:"gtfs_publish_date"`
	StartDate       int    `csv:"start_date"`
	EndDate         int    `csv:"end_date"`
	Version         int    `csv:"version"`
	Notes           string `csv:"notes"`
}

func ParseStopsExtra(w *storage.Writer, data io.Reader, stops map[string]bool) (int, error) {
	rows := []*StopExtraCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	seen := map[string]bool{}
	for _, e := range rows {
		if !stops[e.StopID] {
			return 0, fmt.Errorf("rt_stops_extra references unknown stop_id '%s'", e.StopID)
		}
		if seen[e.StopID] {
			return 0, fmt.Errorf("repeated stop_id '%s'", e.StopID)
		}
		seen[e.StopID] = true

		if e.TransferWeight < 0 {
			return 0, fmt.Errorf("stop '%s' has negative transfer_weight %d", e.StopID, e.TransferWeight)
		}
		if e.StatusID == "" {
			e.StatusID = model.StatusIDNone
		}

		err := w.WriteStopExtra(&storage.StopExtraRecord{
			StopID:         e.StopID,
			StatusID:       e.StatusID,
			DisplayName:    e.DisplayName,
			TransferWeight: e.TransferWeight,
			ZoneID:         e.ZoneID,
		})
		if err != nil {
			return 0, fmt.Errorf("writing stop extra '%s': %w", e.StopID, err)
		}
	}

	return len(rows), nil
}

func ParseAltStopNames(w *storage.Writer, data io.Reader, stops map[string]bool) (int, error) {
	rows := []*AltStopNameCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	for _, a := range rows {
		if !stops[a.StopID] {
			return 0, fmt.Errorf("rt_alt_stop_names references unknown stop_id '%s'", a.StopID)
		}
		if a.AltStopName == "" {
			return 0, fmt.Errorf("empty alt_stop_name for stop '%s'", a.StopID)
		}

		err := w.WriteAltStopName(&storage.AltStopNameRecord{
			StopID:  a.StopID,
			AltName: a.AltStopName,
		})
		if err != nil {
			return 0, fmt.Errorf("writing alt stop name '%s': %w", a.StopID, err)
		}
	}

	return len(rows), nil
}

func ParseHolidays(w *storage.Writer, data io.Reader) (int, error) {
	rows := []*HolidayCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	seen := map[int]bool{}
	for _, h := range rows {
		if err := gtime.ValidDate(h.Date); err != nil {
			return 0, fmt.Errorf("bad holiday date: %w", err)
		}
		if seen[h.Date] {
			return 0, fmt.Errorf("repeated holiday date %d", h.Date)
		}
		seen[h.Date] = true

		if h.Name == "" {
			return 0, fmt.Errorf("empty holiday_name for %d", h.Date)
		}
		if h.Peak != 0 && h.Peak != 1 {
			return 0, fmt.Errorf("invalid peak value %d for holiday %d", h.Peak, h.Date)
		}

		err := w.WriteHoliday(&storage.HolidayRecord{
			Date:        h.Date,
			Name:        h.Name,
			Peak:        h.Peak,
			ServiceInfo: h.ServiceInfo,
		})
		if err != nil {
			return 0, fmt.Errorf("writing holiday %d: %w", h.Date, err)
		}
	}

	return len(rows), nil
}

func ParseLinks(w *storage.Writer, data io.Reader) (int, error) {
	rows := []*LinkCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	for _, l := range rows {
		if l.Category == "" || l.Title == "" || l.URL == "" {
			return 0, fmt.Errorf("link missing category, title or url")
		}

		err := w.WriteLink(&storage.LinkRecord{
			Category:    l.Category,
			Title:       l.Title,
			Description: l.Description,
			URL:         l.URL,
		})
		if err != nil {
			return 0, fmt.Errorf("writing link '%s': %w", l.Title, err)
		}
	}

	return len(rows), nil
}

func ParseLineGraph(w *storage.Writer, data io.Reader, stops map[string]bool) (int, error) {
	rows := []*LineGraphCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	for _, e := range rows {
		if !stops[e.Stop1ID] {
			return 0, fmt.Errorf("rt_line_graph references unknown stop_id '%s'", e.Stop1ID)
		}
		if !stops[e.Stop2ID] {
			return 0, fmt.Errorf("rt_line_graph references unknown stop_id '%s'", e.Stop2ID)
		}
		if e.Stop1ID == e.Stop2ID {
			return 0, fmt.Errorf("rt_line_graph self-loop at stop '%s'", e.Stop1ID)
		}

		err := w.WriteLineGraphEdge(&storage.LineGraphEdgeRecord{
			Stop1ID: e.Stop1ID,
			Stop2ID: e.Stop2ID,
		})
		if err != nil {
			return 0, fmt.Errorf("writing line graph edge: %w", err)
		}
	}

	return len(rows), nil
}

func ParseRouteGraph(w *storage.Writer, data io.Reader, stops map[string]bool) error {
	rows := []*RouteGraphCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("unmarshaling csv: %w", err)
	}

	for _, e := range rows {
		if !stops[e.Stop1ID] || !stops[e.Stop2ID] {
			return fmt.Errorf("rt_route_graph references unknown stop")
		}

		err := w.WriteRouteGraphEdge(&storage.RouteGraphEdgeRecord{
			Stop1ID:     e.Stop1ID,
			Stop2ID:     e.Stop2ID,
			DirectionID: e.DirectionID,
		})
		if err != nil {
			return fmt.Errorf("writing route graph edge: %w", err)
		}
	}

	return nil
}

func ParseAbout(data io.Reader) (*storage.AboutRecord, error) {
	rows := []*AboutCSV{}
	if err := gocsv.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling csv: %w", err)
	}

	if len(rows) != 1 {
		return nil, fmt.Errorf("rt_about must hold exactly one row, found %d", len(rows))
	}
	a := rows[0]
	for _, d := range []int{a.CompileDate, a.StartDate, a.EndDate} {
		if err := gtime.ValidDate(d); err != nil {
			return nil, fmt.Errorf("bad rt_about date: %w", err)
		}
	}

	return &storage.AboutRecord{
		CompileDate:     a.CompileDate,
		GTFSPublishDate: a.GTFSPublishDate,
		StartDate:       a.StartDate,
		EndDate:         a.EndDate,
		Version:         a.Version,
		Notes:           a.Notes,
	}, nil
}
