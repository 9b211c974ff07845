// internal/assembler/hours.go
package assembler

import (
	"strings"
	"time"
)

// OpenStatus is the open/closed state of a location at a point in time.
type OpenStatus string

const (
	StatusOpen    OpenStatus = "open now"
	StatusClosed  OpenStatus = "closed now"
	StatusUnknown OpenStatus = "hours unknown"
)

// bakuOffset is used when the timezone database is unavailable. Azerbaijan
// has not observed daylight saving time since 2016.
const bakuOffset = 4 * 60 * 60

// LoadLocation resolves a timezone name, falling back to a fixed UTC+4 zone.
func LoadLocation(name string) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.FixedZone("UTC+4", bakuOffset)
}

func dayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// StatusAt evaluates working hours at t. Hours are keyed by lowercase English
// weekday; values are "24/7", "closed", or one or more "HH:MM-HH:MM" ranges
// separated by commas. A range that ends before it starts runs past midnight.
func StatusAt(hours map[string]string, t time.Time) OpenStatus {
	if len(hours) == 0 {
		return StatusUnknown
	}
	value, ok := hours[dayName(t)]
	if !ok {
		return StatusClosed
	}
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "24/7", "00:00-24:00", "00:00-23:59":
		return StatusOpen
	case "", "closed", "off":
		return StatusClosed
	}

	minute := t.Hour()*60 + t.Minute()
	parsed := false
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		from, to, ok := parseRange(strings.TrimSpace(part))
		if !ok {
			continue
		}
		parsed = true
		if to > from && minute >= from && minute < to {
			return StatusOpen
		}
		if to <= from && (minute >= from || minute < to) {
			return StatusOpen
		}
	}
	if !parsed {
		return StatusUnknown
	}
	return StatusClosed
}

func parseRange(s string) (from, to int, ok bool) {
	a, b, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	if from, ok = parseClock(a); !ok {
		return 0, 0, false
	}
	if to, ok = parseClock(b); !ok {
		return 0, 0, false
	}
	return from, to, true
}

func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "24:00" {
		return 24 * 60, true
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
