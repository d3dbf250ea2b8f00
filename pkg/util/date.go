package util

import "time"

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// storeLayouts are the textual timestamp forms drivers hand back for DATETIME columns.
var storeLayouts = []string{
	DateTimeLayout,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05 -0700 MST",
	DateLayout,
}

// StartOfDayUTC truncates t to midnight UTC.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// TrailingWindow returns [start of day (now - days), now] in UTC.
func TrailingWindow(now time.Time, days int) (time.Time, time.Time) {
	end := now.UTC()
	return StartOfDayUTC(end.AddDate(0, 0, -days)), end
}

// FormatDateTime renders t as a UTC "YYYY-MM-DD HH:MM:SS" string.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(DateTimeLayout)
}

// WallClockUTC reinterprets the wall clock of t as UTC, discarding the zone the
// driver attached. Stored timestamps carry no zone and are UTC by convention.
func WallClockUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// EpochMillis returns t as milliseconds since the Unix epoch.
func EpochMillis(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

// ParseStoreTime parses a textual timestamp returned by a driver. Zone-less
// values are read as UTC.
func ParseStoreTime(s string) (time.Time, bool) {
	for _, layout := range storeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
