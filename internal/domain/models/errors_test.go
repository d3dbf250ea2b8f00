package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := NewError(KindStoreUnavailable, "store unavailable", errors.New("dial tcp"))
	wrapped := fmt.Errorf("execute: %w", base)

	if got := KindOf(wrapped); got != KindStoreUnavailable {
		t.Fatalf("KindOf = %s", got)
	}
	if !IsKind(wrapped, KindStoreUnavailable) {
		t.Fatalf("IsKind should match through wrapping")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("plain errors must be Internal")
	}
	if IsKind(nil, KindInternal) {
		t.Fatalf("nil error has no kind")
	}
	if base.Error() != "store unavailable: dial tcp" {
		t.Fatalf("unexpected message %q", base.Error())
	}
}

func TestDefaults(t *testing.T) {
	if DefaultDisplayName("A", "B") != "A -> B" {
		t.Fatalf("unexpected default name")
	}
	if !FormattedDate.Valid() || TimestampMode("iso").Valid() {
		t.Fatalf("timestamp mode validation wrong")
	}
	cs := NewChartSeries("n", "area")
	if cs.XAxis.Type != "datetime" || len(cs.Series) != 1 || cs.Series[0].Data == nil {
		t.Fatalf("unexpected envelope %+v", cs)
	}
}
