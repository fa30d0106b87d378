package search

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks a search whose inputs cannot be served:
// blank stop ids or out-of-range options.
var ErrInvalidRequest = errors.New("invalid search request")

// Options tune a single search. The zero value forbids transfers and
// gives a zero-width window; start from DefaultOptions.
type Options struct {
	// AllowTransfers enables multi-trip itineraries. When false only
	// direct trips are returned.
	AllowTransfers bool

	// AllowChangeInDirection permits continuing on trips that leave
	// the line-graph corridor toward the destination.
	AllowChangeInDirection bool

	// PreDepartureHours and PostDepartureHours bound the search
	// window around the requested departure.
	PreDepartureHours  int
	PostDepartureHours int

	// MinLayoverMins and MaxLayoverMins bound the wait at every
	// transfer stop.
	MinLayoverMins int
	MaxLayoverMins int

	// MaxTransfers caps the trip changes per result.
	MaxTransfers int
}

// DefaultOptions returns the stock search tuning.
func DefaultOptions() Options {
	return Options{
		AllowTransfers:         true,
		AllowChangeInDirection: true,
		PreDepartureHours:      3,
		PostDepartureHours:     6,
		MinLayoverMins:         0,
		MaxLayoverMins:         30,
		MaxTransfers:           2,
	}
}

func (o Options) validate() error {
	switch {
	case o.PreDepartureHours < 0:
		return fmt.Errorf("%w: negative pre-departure hours %d", ErrInvalidRequest, o.PreDepartureHours)
	case o.PostDepartureHours < 0:
		return fmt.Errorf("%w: negative post-departure hours %d", ErrInvalidRequest, o.PostDepartureHours)
	case o.MinLayoverMins < 0:
		return fmt.Errorf("%w: negative minimum layover %d", ErrInvalidRequest, o.MinLayoverMins)
	case o.MaxLayoverMins < o.MinLayoverMins:
		return fmt.Errorf("%w: maximum layover %d under minimum %d", ErrInvalidRequest, o.MaxLayoverMins, o.MinLayoverMins)
	case o.MaxTransfers < 0:
		return fmt.Errorf("%w: negative transfer cap %d", ErrInvalidRequest, o.MaxTransfers)
	}
	return nil
}
