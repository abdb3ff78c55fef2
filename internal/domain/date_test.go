package domain

import (
	"encoding/json"
	"testing"
)

func TestParseDateValue(t *testing.T) {
	cases := []struct {
		raw     string
		kind    DateKind
		display string
	}{
		{"1609459200", UnixTimestamp, "January 1, 2021"},
		{"2021-01-01", FormattedString, "January 1, 2021"},
		{"2021-01-01 15:04:05", FormattedString, "January 1, 2021"},
		{"2021-01-01T15:04:05Z", FormattedString, "January 1, 2021"},
		{"sometime in 2021", Unparseable, "sometime in 2021"},
		{"", Unparseable, ""},
	}
	for _, tc := range cases {
		d := ParseDateValue(tc.raw)
		if d.Kind != tc.kind {
			t.Errorf("ParseDateValue(%q).Kind = %v, want %v", tc.raw, d.Kind, tc.kind)
		}
		if got := d.Display(); got != tc.display {
			t.Errorf("ParseDateValue(%q).Display() = %q, want %q", tc.raw, got, tc.display)
		}
	}
}

func TestFlexDateAcceptsNumberAndString(t *testing.T) {
	var fromNumber Shop
	if err := json.Unmarshal([]byte(`{"create_date":1609459200}`), &fromNumber); err != nil {
		t.Fatalf("unmarshal numeric date: %v", err)
	}
	if fromNumber.CreateDate != "1609459200" {
		t.Errorf("numeric date = %q, want \"1609459200\"", fromNumber.CreateDate)
	}

	var fromString Shop
	if err := json.Unmarshal([]byte(`{"create_date":"2021-01-01"}`), &fromString); err != nil {
		t.Fatalf("unmarshal string date: %v", err)
	}
	if fromString.CreateDate != "2021-01-01" {
		t.Errorf("string date = %q, want \"2021-01-01\"", fromString.CreateDate)
	}
}

func TestMoneyMajor(t *testing.T) {
	if got := (Money{Amount: 1999, Divisor: 100}).Major(); got != 19.99 {
		t.Errorf("Major() = %v, want 19.99", got)
	}
	if got := (Money{Amount: 1999}).Major(); got != 0 {
		t.Errorf("Major() with zero divisor = %v, want 0", got)
	}
}

func TestListingPublished(t *testing.T) {
	active := Listing{State: StateActive}
	if !active.Published() {
		t.Error("active listing not published")
	}
	for _, state := range []ListingState{StateInactive, StateDraft, ""} {
		l := Listing{State: state}
		if l.Published() {
			t.Errorf("listing in state %q reported published", state)
		}
	}
}
