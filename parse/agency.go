package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/right-track/right-track-core-sub000/storage"
)

type AgencyCSV struct {
	ID       string `csv:"agency_id"`
	Name     string `csv:"agency_name"`
	URL      string `csv:"agency_url"`
	Timezone string `csv:"agency_timezone"`
	Lang     string `csv:"agency_lang"`
	Phone    string `csv:"agency_phone"`
	FareURL  string `csv:"agency_fare_url"`
	Email    string `csv:"agency_email"`
}

// ParseAgencies writes agency.txt and returns the set of agency ids.
// A single agency may omit its id, per GTFS; it is stored under "".
func ParseAgencies(w *storage.Writer, data io.Reader) (map[string]bool, error) {
	agencyCsv := []*AgencyCSV{}
	if err := gocsv.Unmarshal(data, &agencyCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling csv: %w", err)
	}

	if len(agencyCsv) == 0 {
		return nil, fmt.Errorf("no agency records")
	}

	agencies := map[string]bool{}
	for _, a := range agencyCsv {
		if agencies[a.ID] {
			return nil, fmt.Errorf("repeated agency_id '%s'", a.ID)
		}
		if a.ID == "" && len(agencyCsv) > 1 {
			return nil, fmt.Errorf("empty agency_id with multiple agencies")
		}
		if a.Name == "" {
			return nil, fmt.Errorf("empty agency_name")
		}
		if a.Timezone == "" {
			return nil, fmt.Errorf("empty agency_timezone for '%s'", a.Name)
		}
		agencies[a.ID] = true

		err := w.WriteAgency(&storage.AgencyRecord{
			ID:       a.ID,
			Name:     a.Name,
			URL:      a.URL,
			Timezone: a.Timezone,
			Lang:     a.Lang,
			Phone:    a.Phone,
			FareURL:  a.FareURL,
			Email:    a.Email,
		})
		if err != nil {
			return nil, fmt.Errorf("writing agency '%s': %w", a.ID, err)
		}
	}

	return agencies, nil
}
