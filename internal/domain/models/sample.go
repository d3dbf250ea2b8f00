package models

// RawSample is one row read from the samples table. Values are keyed by column name
// and hold whatever the driver returned (time.Time, int64, float64, string, ...).
type RawSample struct {
	Origin      string
	Destination string
	Values      map[string]any
}
