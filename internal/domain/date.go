package domain

import (
	"strconv"
	"time"
)

// DateKind discriminates the ways Etsy has represented a creation date.
type DateKind int

const (
	// UnixTimestamp is a numeric seconds-since-epoch value.
	UnixTimestamp DateKind = iota
	// FormattedString is a date string one of the known layouts parses.
	FormattedString
	// Unparseable is anything else; the raw value is shown as-is.
	Unparseable
)

const displayLayout = "January 2, 2006"

var parseLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DateValue is a parsed creation date, tagged by how the raw value was
// interpreted.
type DateValue struct {
	Kind DateKind
	Unix int64
	Time time.Time
	Raw  string
}

// ParseDateValue classifies a raw date value.
func ParseDateValue(raw string) DateValue {
	if raw == "" {
		return DateValue{Kind: Unparseable, Raw: raw}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return DateValue{Kind: UnixTimestamp, Unix: n, Raw: raw}
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return DateValue{Kind: FormattedString, Time: t, Raw: raw}
		}
	}
	return DateValue{Kind: Unparseable, Raw: raw}
}

// Display renders the date for humans, per variant.
func (d DateValue) Display() string {
	switch d.Kind {
	case UnixTimestamp:
		return time.Unix(d.Unix, 0).UTC().Format(displayLayout)
	case FormattedString:
		return d.Time.Format(displayLayout)
	default:
		return d.Raw
	}
}
