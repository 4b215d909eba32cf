package memory

import "time"

// ParseDateRange resolves a query date range into an inclusive
// [start, end] pair of local midnights. Only a two-element slice of valid
// ISO dates is honored; everything else falls back to today.
func ParseDateRange(dateRange []string, now time.Time) (time.Time, time.Time) {
	today := truncateDay(now)
	if len(dateRange) != 2 {
		return today, today
	}
	start, err := time.ParseInLocation(DateLayout, dateRange[0], time.Local)
	if err != nil {
		return today, today
	}
	end, err := time.ParseInLocation(DateLayout, dateRange[1], time.Local)
	if err != nil {
		return today, today
	}
	return start, end
}

// inRange reports whether the day key lies within [start, end].
// Malformed keys never match.
func inRange(day string, start, end time.Time) bool {
	d, err := time.ParseInLocation(DateLayout, day, time.Local)
	if err != nil {
		return false
	}
	return !d.Before(start) && !d.After(end)
}

func truncateDay(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}
