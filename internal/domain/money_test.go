package domain

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
	}{
		{"1200", 120000},
		{"1200.00", 120000},
		{"1200.5", 120050},
		{"1200.50", 120050},
		{"0.01", 1},
		{"0", 0},
		{"-25.75", -2575},
		{" 650.00 ", 65000},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if err != nil {
			t.Fatalf("ParseAmount(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseAmountRejectsInvalid(t *testing.T) {
	invalid := []string{"", "1200.005", "12.345", "abc", "12a", ".", "12.", "1,200", "$1200"}
	for _, in := range invalid {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("ParseAmount(%q) should have failed", in)
		} else if !IsKind(err, KindValidation) {
			t.Fatalf("ParseAmount(%q) error kind = %v, want validation", in, ErrKind(err))
		}
	}
}

func TestParseAmountRejectsOverflow(t *testing.T) {
	// Each of these wraps int64 if the digits are accumulated unchecked; the
	// wrapped value can come out positive and slip past sign checks.
	huge := []string{
		"200000000000000000.00",
		"92233720368547758.08", // one cent past MaxInt64
		"99999999999999999999",
	}
	for _, in := range huge {
		got, err := ParseAmount(in)
		if err == nil {
			t.Fatalf("ParseAmount(%q) = %d, want out-of-range error", in, got)
		}
		if !IsKind(err, KindValidation) {
			t.Fatalf("ParseAmount(%q) error kind = %v, want validation", in, ErrKind(err))
		}
	}

	// The largest representable amount still parses.
	if got, err := ParseAmount("92233720368547758.07"); err != nil || got != Cents(9223372036854775807) {
		t.Fatalf("ParseAmount(max) = %d, %v", got, err)
	}
}

func TestCentsString(t *testing.T) {
	cases := []struct {
		in   Cents
		want string
	}{
		{65000, "650.00"},
		{120050, "1200.50"},
		{1, "0.01"},
		{0, "0.00"},
		{-2575, "-25.75"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Fatalf("Cents(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCentsJSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(Cents(120050))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `"1200.50"` {
		t.Fatalf("marshal = %s, want %q", out, `"1200.50"`)
	}

	var c Cents
	if err := json.Unmarshal([]byte(`"650.25"`), &c); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if c != 65025 {
		t.Fatalf("unmarshal = %d, want 65025", c)
	}

	// Bare numbers are accepted too.
	if err := json.Unmarshal([]byte(`1200.50`), &c); err != nil {
		t.Fatalf("unmarshal bare number failed: %v", err)
	}
	if c != 120050 {
		t.Fatalf("unmarshal bare number = %d, want 120050", c)
	}
}
