package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/right-track/right-track-core-sub000/gtime"
	"github.com/right-track/right-track-core-sub000/model"
)

// Service returns a calendar service with its calendar-date
// exceptions. Services that exist only as exceptions (no base
// calendar row) get the exceptions' date range as their effective
// span and no weekday availability.
func (db *DB) Service(ctx context.Context, id string) (*model.Service, error) {
	v, err := db.cached(ctx, key("service", id), func(ctx context.Context) (any, error) {
		return db.readService(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Service), nil
}

func (db *DB) readService(ctx context.Context, id string) (*model.Service, error) {
	row, err := db.store.Get(ctx, `
SELECT service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date
FROM gtfs_calendar
WHERE service_id = ?`, id)
	if err != nil {
		return nil, err
	}

	exRows, err := db.store.Select(ctx, `
SELECT service_id, date, exception_type
FROM gtfs_calendar_dates
WHERE service_id = ?
ORDER BY date`, id)
	if err != nil {
		return nil, err
	}
	exceptions := make([]*model.ServiceException, 0, len(exRows))
	for _, r := range exRows {
		exceptions = append(exceptions, exceptionFromRow(r))
	}

	if row != nil {
		return serviceFromRow(row, exceptions), nil
	}
	if len(exceptions) == 0 {
		return nil, fmt.Errorf("%w: service %q", ErrNotFound, id)
	}

	// Exception-only service: runs on its added dates alone.
	return &model.Service{
		ID:         id,
		StartDate:  exceptions[0].Date,
		EndDate:    exceptions[len(exceptions)-1].Date,
		Exceptions: exceptions,
	}, nil
}

// Services resolves a list of service ids. Any missing id fails the
// whole read.
func (db *DB) Services(ctx context.Context, ids []string) ([]*model.Service, error) {
	out := make([]*model.Service, 0, len(ids))
	for _, id := range ids {
		s, err := db.Service(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ServicesDefault returns the services whose base calendar covers the
// date: the date's weekday flag is set and the date falls inside
// [start_date, end_date]. Exceptions are not applied here.
func (db *DB) ServicesDefault(ctx context.Context, date int) ([]*model.Service, error) {
	weekday, err := gtime.WeekdayName(date)
	if err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("services_default", date), func(ctx context.Context) (any, error) {
		// The weekday column name comes from the validated date, never
		// from the caller, so it is safe to splice into the query.
		rows, err := db.store.Select(ctx, `
SELECT service_id
FROM gtfs_calendar
WHERE `+weekday+` = 1 AND start_date <= ? AND end_date >= ?
ORDER BY service_id`, date, date)
		if err != nil {
			return nil, err
		}

		services := make([]*model.Service, 0, len(rows))
		for _, r := range rows {
			s, err := db.readService(ctx, r.String("service_id"))
			if err != nil {
				return nil, err
			}
			services = append(services, s)
		}
		return services, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Service), nil
}

// ServiceExceptions returns the calendar-date overrides on a date.
func (db *DB) ServiceExceptions(ctx context.Context, date int) ([]*model.ServiceException, error) {
	if err := gtime.ValidDate(date); err != nil {
		return nil, err
	}

	v, err := db.cached(ctx, key("service_exceptions", date), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT service_id, date, exception_type
FROM gtfs_calendar_dates
WHERE date = ?
ORDER BY service_id`, date)
		if err != nil {
			return nil, err
		}
		exceptions := make([]*model.ServiceException, 0, len(rows))
		for _, r := range rows {
			exceptions = append(exceptions, exceptionFromRow(r))
		}
		return exceptions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.ServiceException), nil
}

// ServicesEffective resolves what actually runs on a date: the
// default services, plus services added by exception, minus services
// removed by exception. This is the authoritative set the trip search
// filters against. Results order by service id.
func (db *DB) ServicesEffective(ctx context.Context, date int) ([]*model.Service, error) {
	v, err := db.cached(ctx, key("services_effective", date), func(ctx context.Context) (any, error) {
		defaults, err := db.ServicesDefault(ctx, date)
		if err != nil {
			return nil, err
		}
		exceptions, err := db.ServiceExceptions(ctx, date)
		if err != nil {
			return nil, err
		}

		effective := map[string]*model.Service{}
		for _, s := range defaults {
			effective[s.ID] = s
		}
		for _, e := range exceptions {
			if e.Type != model.ServiceAdded {
				continue
			}
			if _, ok := effective[e.ServiceID]; ok {
				continue
			}
			s, err := db.Service(ctx, e.ServiceID)
			if err != nil {
				return nil, err
			}
			effective[s.ID] = s
		}
		for _, e := range exceptions {
			if e.Type == model.ServiceRemoved {
				delete(effective, e.ServiceID)
			}
		}

		services := make([]*model.Service, 0, len(effective))
		for _, s := range effective {
			services = append(services, s)
		}
		sort.Slice(services, func(i, j int) bool {
			return services[i].ID < services[j].ID
		})
		return services, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Service), nil
}

// ServiceIDsEffective is ServicesEffective reduced to the ids, in the
// same order.
func (db *DB) ServiceIDsEffective(ctx context.Context, date int) ([]string, error) {
	services, err := db.ServicesEffective(ctx, date)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(services))
	for i, s := range services {
		ids[i] = s.ID
	}
	return ids, nil
}

// Holiday returns the holiday on a date, or ErrNotFound.
func (db *DB) Holiday(ctx context.Context, date int) (*model.Holiday, error) {
	v, err := db.cached(ctx, key("holiday", date), func(ctx context.Context) (any, error) {
		row, err := db.store.Get(ctx, `
SELECT date, holiday_name, peak, service_info
FROM rt_holidays
WHERE date = ?`, date)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return (*model.Holiday)(nil), nil
		}
		return holidayFromRow(row), nil
	})
	if err != nil {
		return nil, err
	}
	holiday := v.(*model.Holiday)
	if holiday == nil {
		return nil, fmt.Errorf("%w: no holiday on %d", ErrNotFound, date)
	}
	return holiday, nil
}

// IsHoliday reports whether the date is an operator holiday.
func (db *DB) IsHoliday(ctx context.Context, date int) (bool, error) {
	_, err := db.Holiday(ctx, date)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Holidays returns every operator holiday, ordered by date.
func (db *DB) Holidays(ctx context.Context) ([]*model.Holiday, error) {
	v, err := db.cached(ctx, key("holidays"), func(ctx context.Context) (any, error) {
		rows, err := db.store.Select(ctx, `
SELECT date, holiday_name, peak, service_info
FROM rt_holidays
ORDER BY date`)
		if err != nil {
			return nil, err
		}
		holidays := make([]*model.Holiday, 0, len(rows))
		for _, r := range rows {
			holidays = append(holidays, holidayFromRow(r))
		}
		return holidays, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*model.Holiday), nil
}
