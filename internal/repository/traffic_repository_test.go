package repository

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"CommuteTrends/internal/domain/models"
	"CommuteTrends/internal/usecase"
	"CommuteTrends/pkg/database"
)

const injection = `A" OR 1=1 --' OR '1'='1`

func newSQLiteRepo(t *testing.T) (*TrafficRepository, *database.Client) {
	t.Helper()
	client, err := database.NewClient(
		database.WithDriver(database.DriverSQLite),
		database.WithPath(":memory:"),
		// one connection: every :memory: connection is a separate database
		database.WithMaxConnections(1, 1),
	)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	err = client.InitSchema(context.Background(), []string{
		`CREATE TABLE traffic (origin TEXT, destination TEXT, timestamp DATETIME, duration_in_traffic INTEGER, count INTEGER)`,
		`INSERT INTO traffic VALUES ('A', 'B', '2020-06-01 08:00:00', 1800, 2)`,
		`INSERT INTO traffic VALUES ('A', 'B', '2020-01-01 00:00:00', 3600, 1)`,
		`INSERT INTO traffic VALUES ('A', 'B', '2019-01-01 00:00:00', 600, 5)`,
		`INSERT INTO traffic VALUES ('B', 'A', '2020-01-01 00:00:00', 60, 1)`,
		`INSERT INTO traffic VALUES ('A" OR 1=1 --'' OR ''1''=''1', 'B', '2020-01-02 00:00:00', 120, 1)`,
	})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	repo, err := NewTrafficRepository(client, "traffic", WithQueryTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	return repo, client
}

func descriptor(origin, destination string, bounded bool) models.QueryDescriptor {
	d := models.QueryDescriptor{
		Origin: origin, Destination: destination,
		DisplayName: origin + " -> " + destination, SeriesType: "area",
		Fields:  []string{"timestamp", "duration_in_traffic"},
		Bounded: bounded,
	}
	if bounded {
		d.Window = models.DateWindow{
			Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2020, 12, 31, 23, 59, 59, 0, time.UTC),
		}
	}
	return d
}

func TestBuildQueryDialects(t *testing.T) {
	pg, _ := database.DialectFor(database.DriverPostgres)
	sqlite, _ := database.DialectFor(database.DriverSQLite)
	d := descriptor("A", "B", true)

	cases := []struct {
		name    string
		dialect database.Dialect
		table   string
		want    string
	}{
		{"postgres", pg, "traffic",
			`SELECT "timestamp", "duration_in_traffic" FROM "traffic" WHERE "origin" = $1 AND "destination" = $2 AND "timestamp" BETWEEN $3 AND $4 ORDER BY "timestamp"`},
		{"sqlite", sqlite, "commute.traffic",
			`SELECT "timestamp", "duration_in_traffic" FROM "commute"."traffic" WHERE "origin" = ? AND "destination" = ? AND "timestamp" BETWEEN ? AND ? ORDER BY "timestamp"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, err := NewTrafficRepository(database.NewClientFromDB(nil, tc.dialect), tc.table)
			if err != nil {
				t.Fatalf("repo: %v", err)
			}
			q, args, err := repo.BuildQuery(d)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if q != tc.want {
				t.Fatalf("query:\n got %s\nwant %s", q, tc.want)
			}
			wantArgs := []any{"A", "B", "2020-01-01 00:00:00", "2020-12-31 23:59:59"}
			if !reflect.DeepEqual(args, wantArgs) {
				t.Fatalf("args %v", args)
			}
		})
	}
}

func TestBuildQueryUnboundedStats(t *testing.T) {
	sqlite, _ := database.DialectFor(database.DriverSQLite)
	repo, _ := NewTrafficRepository(database.NewClientFromDB(nil, sqlite), "stats")
	d := descriptor(injection, "B", false)
	d.Fields = []string{"year", "month", "day", "harmonic_mean"}

	q, args, err := repo.BuildQuery(d)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := `SELECT "year", "month", "day", "harmonic_mean" FROM "stats" WHERE "origin" = ? AND "destination" = ? ORDER BY "year", "month", "day"`
	if q != want {
		t.Fatalf("query:\n got %s\nwant %s", q, want)
	}
	if len(args) != 2 || args[0] != injection {
		t.Fatalf("origin must be a bound argument, args=%v", args)
	}
}

func TestBuildQueryRejectsBadIdentifiers(t *testing.T) {
	sqlite, _ := database.DialectFor(database.DriverSQLite)
	if _, err := NewTrafficRepository(database.NewClientFromDB(nil, sqlite), "traffic; DROP TABLE x"); err == nil {
		t.Fatalf("table name must be validated")
	}
	repo, _ := NewTrafficRepository(database.NewClientFromDB(nil, sqlite), "traffic")
	d := descriptor("A", "B", true)
	d.Fields = []string{"timestamp", `x" FROM secrets --`}
	if _, _, err := repo.BuildQuery(d); !models.IsKind(err, models.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestExecuteBoundedWindow(t *testing.T) {
	repo, _ := newSQLiteRepo(t)

	rows, err := repo.Execute(context.Background(), descriptor("A", "B", true))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows inside 2020, got %d", len(rows))
	}
	if rows[0].Origin != "A" || rows[0].Destination != "B" {
		t.Fatalf("sample pair not set: %+v", rows[0])
	}

	out, err := usecase.NewTransformer().Transform(rows, descriptor("A", "B", true), models.EpochMillis)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	first := out.Series[0].Data[0]
	if first[0] != 1577836800000.0 || first[1] != 60.0 {
		t.Fatalf("rows must be ordered by time and converted, got %v", out.Series[0].Data)
	}
}

func TestExecuteUnbounded(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	rows, err := repo.Execute(context.Background(), descriptor("A", "B", false))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected all 3 rows, got %d", len(rows))
	}
}

func TestExecuteTreatsInjectionLiterally(t *testing.T) {
	repo, _ := newSQLiteRepo(t)

	rows, err := repo.Execute(context.Background(), descriptor(injection, "B", false))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("only the row whose origin equals the literal string may match, got %d", len(rows))
	}
	if rows[0].Values["duration_in_traffic"] != int64(120) {
		t.Fatalf("unexpected row %+v", rows[0].Values)
	}

	rows, err = repo.Execute(context.Background(), descriptor(`' OR '1'='1`, `' OR '1'='1`, false))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("tautology injection returned %d rows", len(rows))
	}
}

func TestExecuteNoRows(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	rows, err := repo.Execute(context.Background(), descriptor("Nowhere", "B", true))
	if err != nil {
		t.Fatalf("no rows must not be an error: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", rows)
	}
}

func TestExecuteStoreFailures(t *testing.T) {
	repo, client := newSQLiteRepo(t)

	d := descriptor("A", "B", true)
	d.Fields = []string{"timestamp", "no_such_column"}
	if _, err := repo.Execute(context.Background(), d); !models.IsKind(err, models.KindStoreError) {
		t.Fatalf("unknown column: expected StoreError, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.Execute(ctx, descriptor("A", "B", true)); !models.IsKind(err, models.KindStoreUnavailable) {
		t.Fatalf("cancelled context: expected StoreUnavailable, got %v", err)
	}

	_ = client.Close()
	if _, err := repo.Execute(context.Background(), descriptor("A", "B", true)); !models.IsKind(err, models.KindStoreUnavailable) {
		t.Fatalf("closed pool: expected StoreUnavailable, got %v", err)
	}
	if err := repo.Health(context.Background()); !models.IsKind(err, models.KindStoreUnavailable) {
		t.Fatalf("health on closed pool: %v", err)
	}
}

func TestClassify(t *testing.T) {
	if !models.IsKind(classify(sql.ErrConnDone), models.KindStoreUnavailable) {
		t.Fatalf("ErrConnDone must be unavailable")
	}
	if !models.IsKind(classify(context.DeadlineExceeded), models.KindStoreUnavailable) {
		t.Fatalf("deadline must be unavailable")
	}
	if !models.IsKind(classify(sql.ErrNoRows), models.KindStoreError) {
		t.Fatalf("other errors are StoreError")
	}
}
