package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/right-track/right-track-core-sub000/storage"
)

type DirectionCSV struct {
	ID          int    `csv:"direction_id"`
	Description string `csv:"description"`

	// Some feeds label the column "direction".
	Direction string `csv:"direction"`
}

type ShapeCSV struct {
	ShapeID      string  `csv:"shape_id"`
	Lat          float64 `csv:"shape_pt_lat"`
	Lon          float64 `csv:"shape_pt_lon"`
	Sequence     int     `csv:"shape_pt_sequence"`
	DistTraveled float64 `csv:"shape_dist_traveled"`
}

// ParseDirections writes directions.txt. Returns the row count.
func ParseDirections(w *storage.Writer, data io.Reader) (int, error) {
	dirCsv := []*DirectionCSV{}
	if err := gocsv.Unmarshal(data, &dirCsv); err != nil {
		return 0, fmt.Errorf("unmarshaling csv: %w", err)
	}

	seen := map[int]bool{}
	for _, d := range dirCsv {
		if seen[d.ID] {
			return 0, fmt.Errorf("repeated direction_id %d", d.ID)
		}
		seen[d.ID] = true

		desc := d.Description
		if desc == "" {
			desc = d.Direction
		}
		if desc == "" {
			return 0, fmt.Errorf("direction %d has no description", d.ID)
		}

		err := w.WriteDirection(&storage.DirectionRecord{ID: d.ID, Description: desc})
		if err != nil {
			return 0, fmt.Errorf("writing direction %d: %w", d.ID, err)
		}
	}

	return len(dirCsv), nil
}

// ParseShapes writes shapes.txt, streaming row by row. Returns the
// point count.
func ParseShapes(w *storage.Writer, data io.Reader) (int, error) {
	seen := map[string]map[int]bool{}

	i := 0
	err := gocsv.UnmarshalToCallbackWithError(data, func(p *ShapeCSV) error {
		i++
		if p.ShapeID == "" {
			return fmt.Errorf("empty shape_id (row %d)", i)
		}
		if seen[p.ShapeID] == nil {
			seen[p.ShapeID] = map[int]bool{}
		}
		if seen[p.ShapeID][p.Sequence] {
			return fmt.Errorf("duplicate shape_pt_sequence %d for shape '%s'", p.Sequence, p.ShapeID)
		}
		seen[p.ShapeID][p.Sequence] = true

		err := w.WriteShapePoint(&storage.ShapePointRecord{
			ShapeID:      p.ShapeID,
			Lat:          p.Lat,
			Lon:          p.Lon,
			Sequence:     p.Sequence,
			DistTraveled: p.DistTraveled,
		})
		if err != nil {
			return errors.Wrapf(err, "writing shape point (row %d)", i)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "unmarshaling shapes csv")
	}

	return i, nil
}
