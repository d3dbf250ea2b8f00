package usecase

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"CommuteTrends/internal/domain/models"
	"CommuteTrends/pkg/util"
)

// Rounding selects how seconds are converted to whole minutes.
type Rounding string

const (
	// RoundFloor truncates toward negative infinity, as integer division does.
	RoundFloor Rounding = "floor"
	// RoundNearest rounds half to even.
	RoundNearest Rounding = "round"
)

// TransformerOption configures Transformer.
type TransformerOption func(*Transformer)

// Transformer reshapes raw samples into a chart envelope.
type Transformer struct {
	durationColumns   map[string]struct{}
	timestampColumn   string
	standardFields    []string
	rounding          Rounding
	deriveNameFromRow bool
	includeStats      bool
}

// NewTransformer creates a transformer for the commute table layout.
func NewTransformer(opts ...TransformerOption) *Transformer {
	t := &Transformer{
		durationColumns: map[string]struct{}{"duration_in_traffic": {}, "harmonic_mean": {}},
		timestampColumn: "timestamp",
		standardFields:  []string{"timestamp", "duration_in_traffic"},
		rounding:        RoundFloor,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithDurationColumns sets the columns holding seconds that are emitted as minutes.
func WithDurationColumns(cols []string) TransformerOption {
	return func(t *Transformer) {
		t.durationColumns = make(map[string]struct{}, len(cols))
		for _, c := range cols {
			t.durationColumns[c] = struct{}{}
		}
	}
}

// WithTimestampColumn sets the name of the sample time column.
func WithTimestampColumn(col string) TransformerOption {
	return func(t *Transformer) {
		if col != "" {
			t.timestampColumn = col
		}
	}
}

// WithPairFields sets the standard field list. Every entry but the last is an
// x column; a selection with exactly one other column produces [x, y] pairs.
func WithPairFields(fields []string) TransformerOption {
	return func(t *Transformer) {
		if len(fields) > 0 {
			t.standardFields = append([]string(nil), fields...)
		}
	}
}

// WithRounding sets the minutes rounding rule.
func WithRounding(r Rounding) TransformerOption {
	return func(t *Transformer) {
		if r != "" {
			t.rounding = r
		}
	}
}

// WithDeriveNameFromRow names the series after the first row's origin and
// destination instead of the descriptor's display name.
func WithDeriveNameFromRow(enabled bool) TransformerOption {
	return func(t *Transformer) {
		t.deriveNameFromRow = enabled
	}
}

// WithStats adds the row count to the envelope.
func WithStats(enabled bool) TransformerOption {
	return func(t *Transformer) {
		t.includeStats = enabled
	}
}

// Transform builds exactly one series from rows. Empty input yields empty data.
func (t *Transformer) Transform(rows []models.RawSample, d models.QueryDescriptor, mode models.TimestampMode) (models.ChartSeries, error) {
	if !mode.Valid() {
		return models.ChartSeries{}, models.NewError(models.KindInternal, fmt.Sprintf("unsupported timestamp mode %q", mode), nil)
	}

	name := d.DisplayName
	if t.deriveNameFromRow && len(rows) > 0 && rows[0].Origin != "" && rows[0].Destination != "" {
		name = models.DefaultDisplayName(rows[0].Origin, rows[0].Destination)
	}
	seriesType := d.SeriesType
	if seriesType == "" {
		seriesType = models.DefaultSeriesType
	}

	out := models.NewChartSeries(name, seriesType)
	if t.includeStats {
		out.Stats = &models.SeriesStats{Count: len(rows)}
	}

	yCol, pair := t.pairColumn(d.Fields)
	data := make([][]any, 0, len(rows))
	for i, row := range rows {
		var (
			point []any
			err   error
		)
		if pair {
			point, err = t.pairPoint(row, yCol, mode)
		} else {
			point, err = t.fieldsPoint(row, d.Fields, mode)
		}
		if err != nil {
			return models.ChartSeries{}, models.NewError(models.KindStoreError, "malformed sample", fmt.Errorf("row %d: %w", i, err))
		}
		data = append(data, point)
	}
	out.Series[0].Data = data
	return out, nil
}

// pairColumn reports the y column when fields hold exactly one value column
// besides the time columns, in any order.
func (t *Transformer) pairColumn(fields []string) (string, bool) {
	var y string
	n := 0
	for _, f := range fields {
		if t.isTimeColumn(f) || f == y {
			continue
		}
		y = f
		n++
	}
	return y, n == 1
}

func (t *Transformer) isTimeColumn(col string) bool {
	if col == t.timestampColumn {
		return true
	}
	for _, c := range t.standardFields[:len(t.standardFields)-1] {
		if c == col {
			return true
		}
	}
	return false
}

func (t *Transformer) pairPoint(row models.RawSample, yCol string, mode models.TimestampMode) ([]any, error) {
	ts, err := t.rowTime(row)
	if err != nil {
		return nil, err
	}
	y, err := t.value(yCol, row.Values[yCol], mode)
	if err != nil {
		return nil, err
	}
	return []any{encodeTime(ts, mode), y}, nil
}

func (t *Transformer) fieldsPoint(row models.RawSample, fields []string, mode models.TimestampMode) ([]any, error) {
	point := make([]any, 0, len(fields))
	for _, f := range fields {
		v, err := t.value(f, row.Values[f], mode)
		if err != nil {
			return nil, err
		}
		point = append(point, v)
	}
	return point, nil
}

// rowTime reads the timestamp column, or composes a date from year/month/day
// for aggregated rows that have none.
func (t *Transformer) rowTime(row models.RawSample) (time.Time, error) {
	if raw, ok := row.Values[t.timestampColumn]; ok && raw != nil {
		return toTime(raw)
	}
	y, okY := toInt(row.Values["year"])
	m, okM := toInt(row.Values["month"])
	dd, okD := toInt(row.Values["day"])
	if !okY || !okM || !okD {
		return time.Time{}, fmt.Errorf("no %s or year/month/day values", t.timestampColumn)
	}
	return time.Date(int(y), time.Month(m), int(dd), 0, 0, 0, 0, time.UTC), nil
}

func (t *Transformer) value(col string, raw any, mode models.TimestampMode) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if col == t.timestampColumn {
		ts, err := toTime(raw)
		if err != nil {
			return nil, err
		}
		return encodeTime(ts, mode), nil
	}
	if _, ok := t.durationColumns[col]; ok {
		secs, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("%s: non-numeric duration %v", col, raw)
		}
		return t.minutes(secs), nil
	}
	return normalize(raw, mode), nil
}

func (t *Transformer) minutes(secs float64) float64 {
	if t.rounding == RoundNearest {
		return math.RoundToEven(secs / 60)
	}
	return math.Floor(secs / 60)
}

func encodeTime(ts time.Time, mode models.TimestampMode) any {
	switch mode {
	case models.FormattedDate:
		return ts.Format(util.DateLayout)
	case models.FormattedDateTime:
		return ts.Format(util.DateTimeLayout)
	default:
		return util.EpochMillis(ts)
	}
}

// toTime reads a stored timestamp. The stored wall clock is UTC regardless of
// the zone the driver attaches.
func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return util.WallClockUTC(v), nil
	case string:
		if ts, ok := util.ParseStoreTime(v); ok {
			return util.WallClockUTC(ts), nil
		}
	case []byte:
		if ts, ok := util.ParseStoreTime(string(v)); ok {
			return util.WallClockUTC(ts), nil
		}
	case int64:
		return time.Unix(v, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unreadable timestamp %v (%T)", raw, raw)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(raw any) (int64, bool) {
	f, ok := toFloat(raw)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// normalize makes driver values JSON friendly: text bytes become numbers when
// they parse as such, strings otherwise.
func normalize(raw any, mode models.TimestampMode) any {
	switch v := raw.(type) {
	case []byte:
		s := string(v)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	case time.Time:
		return encodeTime(util.WallClockUTC(v), mode)
	case float32:
		return float64(v)
	default:
		return v
	}
}
