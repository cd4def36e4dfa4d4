package instant

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseRepresentations(t *testing.T) {
	ref := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	ms := ref.UnixMilli()

	cases := []any{
		ms,
		float64(ms),
		ref,
		ref.Format(time.RFC3339),
		"2025-03-14T09:26:53",
		json.Number("1741944413000"),
	}
	for i, v := range cases {
		got, err := Parse(v)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if !got.Equal(ref) {
			t.Fatalf("case %d: got %v want %v", i, got, ref)
		}
	}
}

func TestParseNumericString(t *testing.T) {
	got, err := Parse("1741944413000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.UnixMilli() != 1741944413000 {
		t.Fatalf("unexpected millis: %v", got.UnixMilli())
	}
}

func TestParseBadValue(t *testing.T) {
	if _, err := Parse("not a time"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Parse(struct{}{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestTimeJSONRoundTrip(t *testing.T) {
	orig := At(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Time
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(orig.Time) {
		t.Fatalf("round trip mismatch: %v vs %v", back, orig)
	}

	// ISO strings from older clients still decode
	var iso Time
	if err := json.Unmarshal([]byte(`"2025-06-01T12:00:00Z"`), &iso); err != nil {
		t.Fatalf("iso unmarshal: %v", err)
	}
	if !iso.Equal(orig.Time) {
		t.Fatalf("iso mismatch: %v", iso)
	}

	var zero Time
	b, _ = json.Marshal(zero)
	if string(b) != "null" {
		t.Fatalf("zero time should marshal to null, got %s", b)
	}
}
