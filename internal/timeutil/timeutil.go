// Package timeutil converts between user-entered wall-clock values and
// absolute UTC instants. All conversions go through the IANA timezone
// database shipped with the Go runtime, so DST offsets are resolved per
// date, not assumed constant.
package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidDateTime = errors.New("invalid date/time")
)

// localLayouts are the wall-clock formats accepted by ParseFlexible when
// the value is not already an RFC3339 instant.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadLocation resolves an IANA timezone identifier. The empty string is
// rejected rather than defaulting to UTC the way time.LoadLocation does.
func LoadLocation(tz string) (*time.Location, error) {
	if strings.TrimSpace(tz) == "" {
		return nil, fmt.Errorf("%w: timezone is required", ErrInvalidTimezone)
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}

	return loc, nil
}

// CombineLocalDateTime interprets dateStr ("2006-01-02") and timeStr
// ("15:04") as a wall clock reading in tz and returns the matching UTC
// instant.
func CombineLocalDateTime(dateStr, timeStr, tz string) (time.Time, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}

	date, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be formatted as YYYY-MM-DD", ErrInvalidDateTime, dateStr)
	}

	clock, err := time.Parse(TimeLayout, timeStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q must be formatted as HH:mm", ErrInvalidDateTime, timeStr)
	}

	local := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return local.UTC(), nil
}

// ProjectToLocal renders an absolute instant as the calendar date and
// time-of-day a wall clock in tz would show.
func ProjectToLocal(instant time.Time, tz string) (string, string, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return "", "", err
	}

	local := instant.In(loc)
	return local.Format(DateLayout), local.Format(TimeLayout), nil
}

// ParseFlexible parses a request date string into a UTC instant. RFC3339
// values carry their own offset and are taken as-is; plain wall-clock
// values are interpreted in tz.
func ParseFlexible(value, tz string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}

	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, value)
}

// IsAfter reports whether a is strictly after b.
func IsAfter(a, b time.Time) bool {
	return a.After(b)
}

// SameInstant compares two instants at millisecond precision, the
// granularity MongoDB stores dates at. Sub-millisecond drift between a
// parsed request value and a stored value must not register as a change.
func SameInstant(a, b time.Time) bool {
	return a.UnixMilli() == b.UnixMilli()
}
