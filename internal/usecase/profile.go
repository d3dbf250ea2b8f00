package usecase

import "CommuteTrends/internal/domain/models"

const (
	ProfileCommute = "commute"
	ProfileStats   = "stats"
)

// Profile bundles the resolver and transformer settings of one chart endpoint.
type Profile struct {
	Name        string
	Mode        models.TimestampMode
	Resolver    *Resolver
	Transformer *Transformer
}

// ProfileSettings is the flat description of a profile, usually built from config.
type ProfileSettings struct {
	Name              string
	Mode              models.TimestampMode
	WindowDays        int
	Unbounded         bool
	Rounding          Rounding
	StandardFields    []string
	DeriveNameFromRow bool
	IncludeStats      bool

	Columns         []string
	Aliases         map[string]string
	Prefix          string
	DurationColumns []string
	TimestampColumn string
}

// NewProfile builds a profile. Extra resolver options (a test clock, say) are applied last.
func NewProfile(s ProfileSettings, opts ...ResolverOption) Profile {
	ropts := []ResolverOption{
		WithWindowDays(s.WindowDays),
		WithStandardFields(s.StandardFields),
		WithFieldPrefix(s.Prefix),
		WithFieldAliases(s.Aliases),
	}
	if s.Unbounded {
		ropts = append(ropts, WithUnboundedWindow())
	}
	if len(s.Columns) > 0 {
		cols := append([]string(nil), s.Columns...)
		ropts = append(ropts, WithColumns(append(cols, s.StandardFields...)))
	}

	topts := []TransformerOption{
		WithPairFields(s.StandardFields),
		WithRounding(s.Rounding),
		WithTimestampColumn(s.TimestampColumn),
		WithDeriveNameFromRow(s.DeriveNameFromRow),
		WithStats(s.IncludeStats),
	}
	if s.DurationColumns != nil {
		topts = append(topts, WithDurationColumns(s.DurationColumns))
	}

	mode := s.Mode
	if mode == "" {
		mode = models.EpochMillis
	}
	return Profile{
		Name:        s.Name,
		Mode:        mode,
		Resolver:    NewResolver(append(ropts, opts...)...),
		Transformer: NewTransformer(topts...),
	}
}
