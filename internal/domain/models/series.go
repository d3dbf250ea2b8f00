package models

// XAxis describes the chart's horizontal axis.
type XAxis struct {
	Type string `json:"type"`
}

// Series is one named, typed sequence of data points.
// Each point is either [x, y] or, in multi-field mode, the ordered field values.
type Series struct {
	Type string  `json:"type"`
	Name string  `json:"name"`
	Data [][]any `json:"data"`
}

// SeriesStats is emitted by the statistics profile.
type SeriesStats struct {
	Count int `json:"count"`
}

// ChartSeries is the success payload.
type ChartSeries struct {
	XAxis  XAxis        `json:"x_axis"`
	Series []Series     `json:"series"`
	Stats  *SeriesStats `json:"stats,omitempty"`
}

// NewChartSeries returns an envelope holding one empty series.
func NewChartSeries(name, seriesType string) ChartSeries {
	return ChartSeries{
		XAxis:  XAxis{Type: "datetime"},
		Series: []Series{{Type: seriesType, Name: name, Data: [][]any{}}},
	}
}
