// Package gtime handles GTFS-style times and dates.
//
// A GTFS time is a number of seconds past local midnight on a service
// date. Trips that run past midnight list times beyond 24:00:00 (eg
// "25:30:00"), so seconds range up to 48 hours. Dates are YYYYMMDD
// integers. A DateTime pairs the two, and comparisons are done on the
// absolute instant they describe: 25:30:00 on March 4th is the same
// instant as 01:30:00 on March 5th.
package gtime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxSeconds is the largest representable time of day: 48 hours
	// past midnight.
	MaxSeconds = 48 * 3600

	// MinDate and MaxDate bound the supported date range.
	MinDate = 19700101
	MaxDate = 21001231
)

var (
	ErrInvalidTime = errors.New("invalid time format")
	ErrInvalidDate = errors.New("invalid date")
)

var (
	reHMS  = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})$`)
	reHM   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	reHHMM = regexp.MustCompile(`^(\d{3,4})$`)
	re12H  = regexp.MustCompile(`^(\d{1,2}):(\d{2}) ?([APap])[Mm]$`)
)

// DateTime is a time of day bound to a service date. The zero value is
// midnight on the zero date and is not valid; build values through the
// constructors. DateTime is a plain value: assignment is cloning.
type DateTime struct {
	secs int // seconds past local midnight, 0..MaxSeconds
	date int // YYYYMMDD
}

// FromSeconds builds a DateTime from seconds past midnight and a
// YYYYMMDD date.
func FromSeconds(secs int, date int) (DateTime, error) {
	if secs < 0 || secs > MaxSeconds {
		return DateTime{}, fmt.Errorf("%w: %d seconds out of range", ErrInvalidTime, secs)
	}
	if err := ValidDate(date); err != nil {
		return DateTime{}, err
	}
	return DateTime{secs: secs, date: date}, nil
}

// Parse builds a DateTime from a time string and a YYYYMMDD date. The
// time may be "HH:mm:ss", "HH:mm", "HHmm" or 12-hour "h:mm AM"/"h:mmpm"
// (case-insensitive, optional space). Hours may run up to 48 in the
// 24-hour forms.
func Parse(tm string, date int) (DateTime, error) {
	secs, err := ParseClock(tm)
	if err != nil {
		return DateTime{}, err
	}
	return FromSeconds(secs, date)
}

// FromTime builds a DateTime from the wall-clock reading of t.
func FromTime(t time.Time) DateTime {
	return DateTime{
		secs: t.Hour()*3600 + t.Minute()*60 + t.Second(),
		date: t.Year()*10000 + int(t.Month())*100 + t.Day(),
	}
}

// ParseClock parses a time-of-day string into seconds past midnight.
// Accepts the same forms as Parse.
func ParseClock(tm string) (int, error) {
	s := strings.TrimSpace(tm)

	if m := reHMS.FindStringSubmatch(s); m != nil {
		return clockSeconds(m[1], m[2], m[3])
	}
	if m := reHM.FindStringSubmatch(s); m != nil {
		return clockSeconds(m[1], m[2], "0")
	}
	if m := reHHMM.FindStringSubmatch(s); m != nil {
		return clockSeconds(m[1][:len(m[1])-2], m[1][len(m[1])-2:], "0")
	}
	if m := re12H.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h < 1 || h > 12 {
			return 0, fmt.Errorf("%w: hour %d in %q", ErrInvalidTime, h, tm)
		}
		if h == 12 {
			h = 0
		}
		if m[3] == "P" || m[3] == "p" {
			h += 12
		}
		return clockSeconds(strconv.Itoa(h), m[2], "0")
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidTime, tm)
}

func clockSeconds(hs, ms, ss string) (int, error) {
	h, _ := strconv.Atoi(hs)
	m, _ := strconv.Atoi(ms)
	s, _ := strconv.Atoi(ss)
	if m > 59 {
		return 0, fmt.Errorf("%w: minute %d", ErrInvalidTime, m)
	}
	if s > 59 {
		return 0, fmt.Errorf("%w: second %d", ErrInvalidTime, s)
	}
	secs := h*3600 + m*60 + s
	if secs > MaxSeconds {
		return 0, fmt.Errorf("%w: %02d:%02d:%02d past 48:00:00", ErrInvalidTime, h, m, s)
	}
	return secs, nil
}

// ValidDate reports whether date is a real calendar day inside the
// supported range.
func ValidDate(date int) error {
	if date < MinDate || date > MaxDate {
		return fmt.Errorf("%w: %d out of range", ErrInvalidDate, date)
	}
	y, m, d := splitDate(date)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return fmt.Errorf("%w: %d is not a calendar day", ErrInvalidDate, date)
	}
	return nil
}

func splitDate(date int) (y, m, d int) {
	return date / 10000, (date / 100) % 100, date % 100
}

func joinDate(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// midnight returns the proleptic UTC midnight of a YYYYMMDD date. Dates
// are treated as agency-local without a timezone database; UTC keeps
// the arithmetic uniform.
func midnight(date int) time.Time {
	y, m, d := splitDate(date)
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a YYYYMMDD date by n calendar days.
func AddDays(date int, n int) (int, error) {
	if err := ValidDate(date); err != nil {
		return 0, err
	}
	next := joinDate(midnight(date).AddDate(0, 0, n))
	if err := ValidDate(next); err != nil {
		return 0, err
	}
	return next, nil
}

// WeekdayOf returns the day of week of a YYYYMMDD date.
func WeekdayOf(date int) (time.Weekday, error) {
	if err := ValidDate(date); err != nil {
		return 0, err
	}
	return midnight(date).Weekday(), nil
}

// WeekdayName returns the lowercase English weekday name of a date,
// matching the gtfs_calendar column names.
func WeekdayName(date int) (string, error) {
	wd, err := WeekdayOf(date)
	if err != nil {
		return "", err
	}
	return strings.ToLower(wd.String()), nil
}

// Seconds returns the seconds past midnight, which may exceed 86400.
func (dt DateTime) Seconds() int { return dt.secs }

// Date returns the YYYYMMDD service date.
func (dt DateTime) Date() int { return dt.date }

// Instant returns the absolute instant as Unix seconds: the date's
// proleptic UTC midnight plus the seconds of day. Two DateTimes order
// by Instant.
func (dt DateTime) Instant() int64 {
	return midnight(dt.date).Unix() + int64(dt.secs)
}

func (dt DateTime) Before(o DateTime) bool { return dt.Instant() < o.Instant() }
func (dt DateTime) After(o DateTime) bool  { return dt.Instant() > o.Instant() }

// Equal reports whether two DateTimes describe the same instant;
// 25:30:00 on a date equals 01:30:00 the next day.
func (dt DateTime) Equal(o DateTime) bool { return dt.Instant() == o.Instant() }

// Compare returns -1, 0 or 1 ordering by instant.
func (dt DateTime) Compare(o DateTime) int {
	a, b := dt.Instant(), o.Instant()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Sub returns the duration from o to dt.
func (dt DateTime) Sub(o DateTime) time.Duration {
	return time.Duration(dt.Instant()-o.Instant()) * time.Second
}

// AddDays shifts the date by n days, preserving the seconds of day
// (including hours past 24).
func (dt DateTime) AddDays(n int) (DateTime, error) {
	date, err := AddDays(dt.date, n)
	if err != nil {
		return DateTime{}, err
	}
	return DateTime{secs: dt.secs, date: date}, nil
}

// AddMins shifts by n minutes. The result is renormalized: the date
// rolls so that seconds land inside [0, 86400).
func (dt DateTime) AddMins(n int) DateTime {
	return dt.Add(time.Duration(n) * time.Minute)
}

// Add shifts by a duration, renormalizing like AddMins.
func (dt DateTime) Add(d time.Duration) DateTime {
	instant := dt.Instant() + int64(d/time.Second)
	days := instant / 86400
	secs := instant % 86400
	if secs < 0 {
		days--
		secs += 86400
	}
	return DateTime{
		secs: int(secs),
		date: joinDate(time.Unix(days*86400, 0).UTC()),
	}
}

// Normalize returns an equivalent DateTime with seconds inside
// [0, 86400), rolling the date forward for hours past 24.
func (dt DateTime) Normalize() DateTime {
	return dt.Add(0)
}

// Clock renders the GTFS "HH:mm:ss" form. Hours past 24 stay as
// listed ("25:30:00").
func (dt DateTime) Clock() string {
	return fmt.Sprintf("%02d:%02d:%02d", dt.secs/3600, (dt.secs%3600)/60, dt.secs%60)
}

// TimeInt renders the HHmm integer form, eg 805 for 08:05 and 2530 for
// 25:30.
func (dt DateTime) TimeInt() int {
	return (dt.secs/3600)*100 + (dt.secs%3600)/60
}

// String12 renders the human-readable 12-hour form, eg "12:05 AM".
// Rollover hours map to the next morning: 25:30 renders "1:30 AM".
func (dt DateTime) String12() string {
	h := dt.secs / 3600 % 24
	m := (dt.secs % 3600) / 60
	half := "AM"
	if h >= 12 {
		half = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, half)
}

// DateString renders the date as "YYYYMMDD".
func (dt DateTime) DateString() string {
	return strconv.Itoa(dt.date)
}

// Weekday returns the day of week of the service date.
func (dt DateTime) Weekday() time.Weekday {
	return midnight(dt.date).Weekday()
}

// WeekdayName returns the lowercase weekday name of the service date.
func (dt DateTime) WeekdayName() string {
	return strings.ToLower(dt.Weekday().String())
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%d %s", dt.date, dt.Clock())
}
