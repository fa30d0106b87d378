package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
	"github.com/right-track/right-track-core-sub000/storage"
)

type CalendarCSV struct {
	ServiceID string `csv:"service_id"`
	StartDate int    `csv:"start_date"`
	EndDate   int    `csv:"end_date"`
	Monday    int    `csv:"monday"`
	Tuesday   int    `csv:"tuesday"`
	Wednesday int    `csv:"wednesday"`
	Thursday  int    `csv:"thursday"`
	Friday    int    `csv:"friday"`
	Saturday  int    `csv:"saturday"`
	Sunday    int    `csv:"sunday"`
}

type CalendarDateCSV struct {
	ServiceID string `csv:"service_id"`
	Date      int    `csv:"date"`
	Exception int    `csv:"exception_type"`
}

// ParseCalendar writes calendar.txt. Returns the set of service ids
// and the min/max dates seen.
func ParseCalendar(w *storage.Writer, data io.Reader) (map[string]bool, int, int, error) {
	calendarCsv := []*CalendarCSV{}
	if err := gocsv.Unmarshal(data, &calendarCsv); err != nil {
		return nil, 0, 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	services := map[string]bool{}
	var minDate, maxDate int

	for _, c := range calendarCsv {
		if c.ServiceID == "" {
			return nil, 0, 0, fmt.Errorf("empty service_id")
		}
		if services[c.ServiceID] {
			return nil, 0, 0, fmt.Errorf("repeated service_id '%s'", c.ServiceID)
		}
		services[c.ServiceID] = true

		for wd, v := range map[string]int{
			"monday": c.Monday, "tuesday": c.Tuesday, "wednesday": c.Wednesday,
			"thursday": c.Thursday, "friday": c.Friday, "saturday": c.Saturday,
			"sunday": c.Sunday,
		} {
			if v != 0 && v != 1 {
				return nil, 0, 0, fmt.Errorf("service '%s': invalid %s value %d", c.ServiceID, wd, v)
			}
		}

		if err := gtime.ValidDate(c.StartDate); err != nil {
			return nil, 0, 0, fmt.Errorf("service '%s': bad start_date: %w", c.ServiceID, err)
		}
		if err := gtime.ValidDate(c.EndDate); err != nil {
			return nil, 0, 0, fmt.Errorf("service '%s': bad end_date: %w", c.ServiceID, err)
		}

		if minDate == 0 || c.StartDate < minDate {
			minDate = c.StartDate
		}
		if c.EndDate > maxDate {
			maxDate = c.EndDate
		}

		err := w.WriteCalendar(&storage.CalendarRecord{
			ServiceID: c.ServiceID,
			Monday:    c.Monday,
			Tuesday:   c.Tuesday,
			Wednesday: c.Wednesday,
			Thursday:  c.Thursday,
			Friday:    c.Friday,
			Saturday:  c.Saturday,
			Sunday:    c.Sunday,
			StartDate: c.StartDate,
			EndDate:   c.EndDate,
		})
		if err != nil {
			return nil, 0, 0, fmt.Errorf("writing calendar '%s': %w", c.ServiceID, err)
		}
	}

	return services, minDate, maxDate, nil
}

// ParseCalendarDates writes calendar_dates.txt. Returns the set of
// service ids seen, the row count, and the min/max dates.
func ParseCalendarDates(w *storage.Writer, data io.Reader) (map[string]bool, int, int, int, error) {
	cdCsv := []*CalendarDateCSV{}
	if err := gocsv.Unmarshal(data, &cdCsv); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	services := map[string]bool{}
	seen := map[string]map[int]bool{}
	var minDate, maxDate int

	for _, cd := range cdCsv {
		if cd.ServiceID == "" {
			return nil, 0, 0, 0, fmt.Errorf("empty service_id")
		}
		if err := gtime.ValidDate(cd.Date); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("service '%s': bad date: %w", cd.ServiceID, err)
		}
		if !model.ExceptionType(cd.Exception).IsValid() {
			return nil, 0, 0, 0, fmt.Errorf("service '%s': invalid exception_type %d", cd.ServiceID, cd.Exception)
		}
		if seen[cd.ServiceID][cd.Date] {
			return nil, 0, 0, 0, fmt.Errorf("repeated exception for service '%s' on %d", cd.ServiceID, cd.Date)
		}
		if seen[cd.ServiceID] == nil {
			seen[cd.ServiceID] = map[int]bool{}
		}
		seen[cd.ServiceID][cd.Date] = true
		services[cd.ServiceID] = true

		if minDate == 0 || cd.Date < minDate {
			minDate = cd.Date
		}
		if cd.Date > maxDate {
			maxDate = cd.Date
		}

		err := w.WriteCalendarDate(&storage.CalendarDateRecord{
			ServiceID: cd.ServiceID,
			Date:      cd.Date,
			Exception: cd.Exception,
		})
		if err != nil {
			return nil, 0, 0, 0, fmt.Errorf("writing calendar date '%s'/%d: %w", cd.ServiceID, cd.Date, err)
		}
	}

	return services, len(cdCsv), minDate, maxDate, nil
}
