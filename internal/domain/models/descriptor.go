package models

import "time"

// DateWindow is an inclusive UTC time range bounding the store query.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// QueryDescriptor is the canonical, validated form of one chart request.
// It is owned by a single request and never shared.
type QueryDescriptor struct {
	Origin      string     `json:"origin" validate:"required"`
	Destination string     `json:"destination" validate:"required"`
	DisplayName string     `json:"name" validate:"required"`
	SeriesType  string     `json:"type" validate:"required"`
	Window      DateWindow `json:"window"`
	// Bounded is false for the all-time statistics mode, which omits the date filter.
	Bounded bool     `json:"bounded"`
	Fields  []string `json:"fields" validate:"min=1,dive,required"`
}

// DefaultDisplayName is the series name used when the request does not name it.
func DefaultDisplayName(origin, destination string) string {
	return origin + " -> " + destination
}

// DefaultSeriesType is the chart type used when the request does not set one.
const DefaultSeriesType = "area"

// TimestampMode selects how time values are encoded in the chart payload.
type TimestampMode string

const (
	EpochMillis       TimestampMode = "epoch_millis"
	FormattedDate     TimestampMode = "formatted_date"
	FormattedDateTime TimestampMode = "formatted_datetime"
)

// Valid reports whether m is a known mode.
func (m TimestampMode) Valid() bool {
	switch m {
	case EpochMillis, FormattedDate, FormattedDateTime:
		return true
	default:
		return false
	}
}
