package util

import (
	"testing"
	"time"
)

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2021, 3, 15, 17, 45, 12, 0, time.UTC)
	start, end := TrailingWindow(now, 365)
	if !end.Equal(now) {
		t.Fatalf("end %v", end)
	}
	if want := time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("start %v, want %v", start, want)
	}
	start, _ = TrailingWindow(now, 30)
	if FormatDateTime(start) != "2021-02-13 00:00:00" {
		t.Fatalf("30 day start %s", FormatDateTime(start))
	}
}

func TestWallClockUTCAndEpochMillis(t *testing.T) {
	local := time.Date(2020, 1, 1, 0, 0, 0, 0, time.FixedZone("PST", -8*3600))
	got := WallClockUTC(local)
	if EpochMillis(got) != 1577836800000.0 {
		t.Fatalf("epoch millis %v", EpochMillis(got))
	}
}

func TestParseStoreTime(t *testing.T) {
	for _, s := range []string{"2020-01-01 00:00:00", "2020-01-01T00:00:00Z", "2020-01-01"} {
		got, ok := ParseStoreTime(s)
		if !ok {
			t.Fatalf("could not parse %q", s)
		}
		if got.Unix() != 1577836800 {
			t.Fatalf("%q parsed to %v", s, got)
		}
	}
	if _, ok := ParseStoreTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" duration , ,count,")
	if len(got) != 2 || got[0] != "duration" || got[1] != "count" {
		t.Fatalf("unexpected %v", got)
	}
}
