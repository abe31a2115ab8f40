package timeutil

import (
	"time"
)

// PT is the Pacific Time location, the company's home timezone and the
// default for recipients without a configured zone.
var PT *time.Location

func init() {
	var err error
	PT, err = time.LoadLocation("America/Los_Angeles")
	if err != nil {
		// Fallback: fixed zone if the tz database is unavailable
		PT = time.FixedZone("PST", -8*60*60)
	}
}

// Now returns the current time in PT
func Now() time.Time {
	return time.Now().In(PT)
}

// ToPT converts any time to PT
func ToPT(t time.Time) time.Time {
	return t.In(PT)
}

// Location resolves a named timezone, falling back to PT when the name is
// empty or unknown.
func Location(name string) *time.Location {
	if name == "" {
		return PT
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return PT
	}
	return loc
}

// InWindow reports whether t falls inside a daily [start, end) window given
// as "15:04" strings in the provided location. Windows crossing midnight
// (start after end, e.g. 22:00-07:00) wrap correctly. Malformed bounds
// report false.
func InWindow(t time.Time, start, end string, loc *time.Location) bool {
	startM, ok1 := parseHHMM(start)
	endM, ok2 := parseHHMM(end)
	if !ok1 || !ok2 || startM == endM {
		return false
	}

	local := t.In(loc)
	cur := local.Hour()*60 + local.Minute()

	if startM < endM {
		return cur >= startM && cur < endM
	}
	// Overnight window
	return cur >= startM || cur < endM
}

// NextDailyAt returns the given clock time on the day after t, in loc.
func NextDailyAt(t time.Time, hour, minute int, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
}

func parseHHMM(s string) (minutes int, ok bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
