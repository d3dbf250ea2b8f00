package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CommuteTrends/internal/domain/models"
	"CommuteTrends/pkg/util"
	"CommuteTrends/pkg/validation"
)

const (
	ParamID          = "id"
	ParamOrigin      = "origin"
	ParamDestination = "destination"
	ParamName        = "name"
	ParamType        = "type"
	ParamFields      = "fields"
)

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// Resolver turns raw request parameters into a QueryDescriptor.
type Resolver struct {
	windowDays     int
	bounded        bool
	standardFields []string
	columns        map[string]struct{}
	aliases        map[string]string
	prefix         string
	now            func() time.Time
}

// NewResolver creates a resolver with a bounded 365 day window and the
// commute table's standard columns.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		windowDays:     365,
		bounded:        true,
		standardFields: []string{"timestamp", "duration_in_traffic"},
		aliases: map[string]string{
			"duration": "duration_in_traffic",
			"mean":     "harmonic_mean",
			"time":     "timestamp",
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.columns == nil {
		r.columns = make(map[string]struct{}, len(r.standardFields))
		for _, f := range r.standardFields {
			r.columns[f] = struct{}{}
		}
	}
	return r
}

// WithWindowDays sets the trailing window length in days.
func WithWindowDays(days int) ResolverOption {
	return func(r *Resolver) {
		if days > 0 {
			r.windowDays = days
		}
	}
}

// WithUnboundedWindow drops the date filter (all-time statistics).
func WithUnboundedWindow() ResolverOption {
	return func(r *Resolver) {
		r.bounded = false
	}
}

// WithStandardFields sets the fields used when neither request nor route names any.
func WithStandardFields(fields []string) ResolverOption {
	return func(r *Resolver) {
		if len(fields) > 0 {
			r.standardFields = append([]string(nil), fields...)
		}
	}
}

// WithColumns sets the allow-list of selectable columns.
func WithColumns(cols []string) ResolverOption {
	return func(r *Resolver) {
		r.columns = make(map[string]struct{}, len(cols))
		for _, c := range cols {
			r.columns[c] = struct{}{}
		}
	}
}

// WithFieldAliases replaces the request-name to column alias table.
func WithFieldAliases(aliases map[string]string) ResolverOption {
	return func(r *Resolver) {
		if aliases != nil {
			r.aliases = aliases
		}
	}
}

// WithFieldPrefix sets the storage prefix applied to non-aliased field names.
func WithFieldPrefix(prefix string) ResolverOption {
	return func(r *Resolver) {
		r.prefix = prefix
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WindowDays returns the trailing window length, or 0 when unbounded.
func (r *Resolver) WindowDays() int {
	if !r.bounded {
		return 0
	}
	return r.windowDays
}

// StandardFields returns a copy of the default field list.
func (r *Resolver) StandardFields() []string {
	return append([]string(nil), r.standardFields...)
}

// ParseRouteInput classifies how params name the route. An id always wins.
func ParseRouteInput(params map[string]string) (models.RouteInput, error) {
	if id := strings.TrimSpace(params[ParamID]); id != "" {
		return models.RouteInput{Kind: models.RouteByID, ID: id}, nil
	}
	in := models.RouteInput{
		Kind:        models.RouteExplicit,
		Origin:      strings.TrimSpace(params[ParamOrigin]),
		Destination: strings.TrimSpace(params[ParamDestination]),
	}
	if in.Origin == "" {
		return in, invalidArgs(ParamOrigin)
	}
	if in.Destination == "" {
		return in, invalidArgs(ParamDestination)
	}
	return in, nil
}

// Resolve builds the canonical descriptor. Request values override route defaults.
func (r *Resolver) Resolve(params map[string]string, routes models.RouteTable) (models.QueryDescriptor, error) {
	in, err := ParseRouteInput(params)
	if err != nil {
		return models.QueryDescriptor{}, err
	}

	var d models.QueryDescriptor
	var seedFields []string

	switch in.Kind {
	case models.RouteByID:
		entry, ok := routes[in.ID]
		if !ok {
			return d, models.NewError(models.KindUnknownRoute, fmt.Sprintf("unknown route (%s)", in.ID), nil)
		}
		if strings.TrimSpace(entry.Origin) == "" || strings.TrimSpace(entry.Destination) == "" {
			return d, models.InvalidArgumentf("invalid arguments (route %s is missing origin or destination)", in.ID)
		}
		d.Origin = strings.TrimSpace(entry.Origin)
		d.Destination = strings.TrimSpace(entry.Destination)
		seedFields = entry.DefaultFields
	case models.RouteExplicit:
		d.Origin = in.Origin
		d.Destination = in.Destination
	}

	d.DisplayName = models.DefaultDisplayName(d.Origin, d.Destination)
	if v, ok := params[ParamName]; ok && strings.TrimSpace(v) != "" {
		d.DisplayName = v
	}
	d.SeriesType = models.DefaultSeriesType
	if v, ok := params[ParamType]; ok && strings.TrimSpace(v) != "" {
		d.SeriesType = strings.TrimSpace(v)
	}

	switch raw, ok := params[ParamFields]; {
	case ok:
		d.Fields, err = r.mapFields(util.SplitCSV(raw))
	case len(seedFields) > 0:
		d.Fields, err = r.mapFields(seedFields)
	default:
		d.Fields, err = r.mapFields(r.standardFields)
	}
	if err != nil {
		return models.QueryDescriptor{}, err
	}

	now := r.now()
	d.Bounded = r.bounded
	if r.bounded {
		d.Window.Start, d.Window.End = util.TrailingWindow(now, r.windowDays)
	} else {
		d.Window.End = now.UTC()
	}

	if err := validateDescriptor(d); err != nil {
		return models.QueryDescriptor{}, err
	}
	return d, nil
}

func (r *Resolver) mapFields(names []string) ([]string, error) {
	out := make([]string, 0, len(names)+len(r.standardFields))
	seen := make(map[string]struct{}, len(names))
	var values []string
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		col := r.column(name)
		if _, ok := r.columns[col]; !ok {
			return nil, models.InvalidArgumentf("invalid arguments (fields: %s)", name)
		}
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		if !r.isAxisColumn(col) {
			values = append(values, col)
		}
		out = append(out, col)
	}
	if len(out) == 0 {
		return nil, invalidArgs(ParamFields)
	}
	// A single value column is charted against time, so the x columns are
	// always selected alongside it.
	if len(values) == 1 {
		return append(r.axisColumns(), values[0]), nil
	}
	return out, nil
}

// axisColumns returns the x columns of the standard field list: every entry
// but the last.
func (r *Resolver) axisColumns() []string {
	if len(r.standardFields) < 2 {
		return nil
	}
	return append([]string(nil), r.standardFields[:len(r.standardFields)-1]...)
}

func (r *Resolver) isAxisColumn(col string) bool {
	for _, c := range r.axisColumns() {
		if c == col {
			return true
		}
	}
	return false
}

func (r *Resolver) column(name string) string {
	if col, ok := r.aliases[name]; ok {
		return col
	}
	if _, ok := r.columns[name]; ok {
		return name
	}
	return r.prefix + name
}

func validateDescriptor(d models.QueryDescriptor) error {
	if err := validation.Struct(context.Background(), &d); err != nil {
		return models.NewError(models.KindInvalidArgument, "invalid arguments ("+err.Error()+")", err)
	}
	if d.Bounded && d.Window.Start.After(d.Window.End) {
		return models.InvalidArgumentf("invalid arguments (window)")
	}
	return nil
}

func invalidArgs(key string) *models.Error {
	return models.InvalidArgumentf("invalid arguments (%s)", key)
}
