package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
database:
  host: ch
headers:
  Access-Control-Allow-Origin: "https://a.example"
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Environment != "development" || c.ConfigSource != SourceFile {
		t.Fatalf("unexpected env/source %q/%q", c.Environment, c.ConfigSource)
	}
	if c.Server.Port != 8080 || c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("server defaults not applied: %+v", c.Server)
	}
	if c.Database.Driver != "clickhouse" || c.Database.QueryTimeout != 10*time.Second {
		t.Fatalf("database defaults not applied: %+v", c.Database)
	}
	if c.Database.FieldAliases["duration"] != "duration_in_traffic" {
		t.Fatalf("aliases not defaulted: %v", c.Database.FieldAliases)
	}
	if c.DefaultErrorStatus != 403 {
		t.Fatalf("default error status %d", c.DefaultErrorStatus)
	}
	if c.Logging.Level != "info" {
		t.Fatalf("logging level %q", c.Logging.Level)
	}

	commute, _ := c.Profile("commute")
	if commute.WindowDays != 365 || commute.Unbounded || commute.TimestampMode != "epoch_millis" || commute.Rounding != "floor" {
		t.Fatalf("commute profile %+v", commute)
	}
	stats, _ := c.Profile("stats")
	if !stats.Unbounded || !stats.IncludeStats || stats.TimestampMode != "formatted_date" || stats.Rounding != "round" {
		t.Fatalf("stats profile %+v", stats)
	}
	if _, err := c.Profile("weekly"); err == nil {
		t.Fatalf("unknown profile must fail")
	}
}

func TestPartialProfileKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(minimalYAML + `
profiles:
  commute:
    window_days: 30
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Profiles.Commute.WindowDays != 30 || c.Profiles.Commute.TimestampMode != "epoch_millis" {
		t.Fatalf("unexpected commute profile %+v", c.Profiles.Commute)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"missing host", "headers:\n  Access-Control-Allow-Origin: x\n", "database.host"},
		{"bad driver", "database:\n  host: ch\n  driver: mysql\nheaders:\n  Access-Control-Allow-Origin: x\n", "driver"},
		{"missing origin policy", "database:\n  host: ch\n", "Access-Control-Allow-Origin"},
		{"bad mode", minimalYAML + "profiles:\n  stats:\n    timestamp_mode: iso\n", "timestamp_mode"},
		{"bad status", minimalYAML + "error_status:\n  StoreError: 200\n", "error_status.StoreError"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("COMMUTE_DB_TABLE=samples\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("COMMUTE_DB_HOST", "pg")
	t.Setenv("COMMUTE_DB_DRIVER", "postgres")
	t.Setenv("PORT", "9090")
	t.Setenv("COMMUTE_WINDOW_DAYS", "30")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Cleanup(func() { os.Unsetenv("COMMUTE_DB_TABLE") })

	c, err := LoadWithEnv(path, envFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Database.Host != "pg" || c.Database.Driver != "postgres" || c.Server.Port != 9090 {
		t.Fatalf("env overrides not applied: %+v %+v", c.Database, c.Server)
	}
	if c.Database.Table != "samples" {
		t.Fatalf(".env not loaded: table=%q", c.Database.Table)
	}
	if c.Profiles.Commute.WindowDays != 30 {
		t.Fatalf("window days %d", c.Profiles.Commute.WindowDays)
	}
	if len(c.Logging.Collector.Brokers) != 2 {
		t.Fatalf("brokers %v", c.Logging.Collector.Brokers)
	}
}

func TestLoadWithEnvBadInt(t *testing.T) {
	t.Setenv("PORT", "eighty")
	if _, err := LoadWithEnv(""); err == nil {
		t.Fatalf("expected error for non-numeric PORT")
	}
}

func TestRedisSourceSkipsFileOnlyChecks(t *testing.T) {
	c, err := Parse([]byte("config_source: redis\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Redis.Prefix != "/commute" || c.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis defaults %+v", c.Redis)
	}
}
