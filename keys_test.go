package goshape_test

import (
	"testing"

	goshape "github.com/reoring/goshape"
)

// TestRecordKeys_CanonicalIndex: a text key also matches as a number only in
// its canonical decimal form.
func TestRecordKeys_CanonicalIndex(t *testing.T) {
	numeric := goshape.Record(goshape.Number(), goshape.Any())
	cases := []struct {
		key  string
		want bool
	}{
		{"0", true},
		{"7", true},
		{"42", true},
		{"18446744073709551616", true},
		{"01", false},
		{"007", false},
		{"-1", false},
		{"+1", false},
		{"1.0", false},
		{"1e3", false},
		{" 1", false},
		{"", false},
		{"abc", false},
	}
	for _, c := range cases {
		v := map[string]any{c.key: true}
		if got := goshape.IsValid(v, numeric); got != c.want {
			t.Fatalf("key %q: got %v, want %v", c.key, got, c.want)
		}
	}
}

// TestRecordKeys_LiteralNumber matches a numeric literal key against its text.
func TestRecordKeys_LiteralNumber(t *testing.T) {
	s := goshape.Record(goshape.Literal(7), goshape.Any())
	if !goshape.IsValid(map[string]any{"7": 1}, s) {
		t.Fatalf("expected key \"7\" to match literal 7")
	}
	if goshape.IsValid(map[string]any{"007": 1}, s) {
		t.Fatalf("expected key \"007\" not to match literal 7")
	}

	text := goshape.Record(goshape.Literal("7"), goshape.Any())
	if !goshape.IsValid(map[int]any{7: 1}, text) {
		t.Fatalf("expected int key 7 to match literal \"7\" as text")
	}
}

// TestRecordKeys_StringAcceptsEveryKey: every own key is text.
func TestRecordKeys_StringAcceptsEveryKey(t *testing.T) {
	s := goshape.Record(goshape.String(), goshape.Any())
	v := map[string]any{"0": 1, "01": 2, "": 3, "a/b": 4}
	if !goshape.IsValid(v, s) {
		t.Fatalf("string keys should accept %v", v)
	}
	if !goshape.IsValid(map[uint8]string{1: "a"}, s) {
		t.Fatalf("integer keys are text too")
	}
}
