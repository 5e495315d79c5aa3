package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(-3); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(MaxLimit + 50); got != MaxLimit {
		t.Fatalf("expected cap %d, got %d", MaxLimit, got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected passthrough 10, got %d", got)
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffered 11, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		ID:        uuid.New(),
	}

	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestParseCursorEdgeCases(t *testing.T) {
	if cursor, err := ParseCursor("  "); err != nil || cursor != nil {
		t.Fatalf("blank cursor should parse to nil, got %v %v", cursor, err)
	}
	if _, err := ParseCursor("not-base64!"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := ParseCursor("aGVsbG8="); err == nil {
		t.Fatalf("expected format error")
	}
}
