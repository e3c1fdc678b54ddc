package quota

import (
	"fmt"
	"time"
)

// PeriodStart returns the first instant of the calendar month containing now, as seen
// in loc. A nil loc means UTC.
func PeriodStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

// LoadLocation resolves a time zone name. Empty means UTC.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid leads period time zone %q: %w", name, err)
	}
	return loc, nil
}
