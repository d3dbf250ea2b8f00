package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"CommuteTrends/internal/domain/models"
	domrepo "CommuteTrends/internal/domain/repository"
	"CommuteTrends/pkg/database"
	applogger "CommuteTrends/pkg/logger"
	"CommuteTrends/pkg/util"
)

// TrafficOption configures TrafficRepository.
type TrafficOption func(*TrafficRepository)

// TrafficRepository reads commute samples from one flat table.
type TrafficRepository struct {
	db                *sql.DB
	dialect           database.Dialect
	table             string
	originColumn      string
	destinationColumn string
	timestampColumn   string
	queryTimeout      time.Duration
	l                 *applogger.Logger
}

var _ domrepo.TrafficQuerier = (*TrafficRepository)(nil)

// NewTrafficRepository creates the executor. table may be db-qualified.
func NewTrafficRepository(client *database.Client, table string, opts ...TrafficOption) (*TrafficRepository, error) {
	r := &TrafficRepository{
		db:                client.DB(),
		dialect:           client.Dialect(),
		table:             table,
		originColumn:      "origin",
		destinationColumn: "destination",
		timestampColumn:   "timestamp",
		queryTimeout:      10 * time.Second,
		l:                 applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, ident := range []string{r.table, r.originColumn, r.destinationColumn, r.timestampColumn} {
		if !database.ValidIdent(ident) {
			return nil, fmt.Errorf("invalid identifier %q", ident)
		}
	}
	return r, nil
}

// WithQueryTimeout bounds every query.
func WithQueryTimeout(d time.Duration) TrafficOption {
	return func(r *TrafficRepository) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

// WithTimestampColumn sets the column used for the date filter and ordering.
func WithTimestampColumn(col string) TrafficOption {
	return func(r *TrafficRepository) {
		if col != "" {
			r.timestampColumn = col
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(l *applogger.Logger) TrafficOption {
	return func(r *TrafficRepository) {
		if l != nil {
			r.l = l
		}
	}
}

// BuildQuery renders the parameterized SELECT for d. Only validated identifiers
// reach the query text; every value is a bound argument.
func (r *TrafficRepository) BuildQuery(d models.QueryDescriptor) (string, []any, error) {
	if len(d.Fields) == 0 {
		return "", nil, models.InvalidArgumentf("invalid arguments (fields)")
	}
	cols := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		if !database.ValidIdent(f) {
			return "", nil, models.InvalidArgumentf("invalid arguments (fields: %s)", f)
		}
		cols = append(cols, r.dialect.QuoteIdent(f))
	}

	args := []any{d.Origin, d.Destination}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s = %s AND %s = %s",
		strings.Join(cols, ", "),
		r.dialect.QuoteIdent(r.table),
		r.dialect.QuoteIdent(r.originColumn), r.dialect.Placeholder(1),
		r.dialect.QuoteIdent(r.destinationColumn), r.dialect.Placeholder(2),
	)
	if d.Bounded {
		fmt.Fprintf(&b, " AND %s BETWEEN %s AND %s",
			r.dialect.QuoteIdent(r.timestampColumn), r.dialect.Placeholder(3), r.dialect.Placeholder(4))
		args = append(args, util.FormatDateTime(d.Window.Start), util.FormatDateTime(d.Window.End))
	}
	if order := r.orderBy(d.Fields); order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(order)
	}
	return b.String(), args, nil
}

// orderBy sorts by time when the selection carries it: the timestamp column,
// else year/month/day of aggregated rows.
func (r *TrafficRepository) orderBy(fields []string) string {
	has := make(map[string]bool, len(fields))
	for _, f := range fields {
		has[f] = true
	}
	switch {
	case has[r.timestampColumn]:
		return r.dialect.QuoteIdent(r.timestampColumn)
	case has["year"] && has["month"] && has["day"]:
		return strings.Join([]string{r.dialect.QuoteIdent("year"), r.dialect.QuoteIdent("month"), r.dialect.QuoteIdent("day")}, ", ")
	default:
		return ""
	}
}

// Execute runs the query for d. No matching rows is an empty slice, not an error.
func (r *TrafficRepository) Execute(ctx context.Context, d models.QueryDescriptor) ([]models.RawSample, error) {
	start := time.Now()
	q, args, err := r.BuildQuery(d)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		r.l.Error("traffic query error",
			applogger.String("table", r.table),
			applogger.String("driver", r.dialect.Name()),
			applogger.Bool("bounded", d.Bounded),
			applogger.Error(err),
		)
		return nil, classify(fmt.Errorf("traffic query: %w", err))
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(fmt.Errorf("traffic columns: %w", err))
	}

	out := make([]models.RawSample, 0, 256)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			r.l.Error("traffic scan error",
				applogger.String("table", r.table),
				applogger.Error(err),
			)
			return nil, classify(fmt.Errorf("scan sample: %w", err))
		}
		s := models.RawSample{Origin: d.Origin, Destination: d.Destination, Values: make(map[string]any, len(cols))}
		for i, c := range cols {
			s.Values[c] = vals[i]
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		r.l.Error("traffic rows error",
			applogger.String("table", r.table),
			applogger.Error(err),
		)
		return nil, classify(fmt.Errorf("rows: %w", err))
	}

	r.l.Info("traffic query ok",
		applogger.String("table", r.table),
		applogger.String("driver", r.dialect.Name()),
		applogger.Bool("bounded", d.Bounded),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// Health pings the pool.
func (r *TrafficRepository) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return classify(fmt.Errorf("ping: %w", err))
	}
	return nil
}

// classify maps driver failures onto StoreUnavailable (connection could not be
// used, timeout) or StoreError (anything else).
func classify(err error) error {
	if isUnavailable(err) {
		return models.NewError(models.KindStoreUnavailable, "store unavailable", err)
	}
	return models.NewError(models.KindStoreError, "store error", err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// database/sql does not export its closed-pool error
	return strings.Contains(err.Error(), "sql: database is closed")
}
