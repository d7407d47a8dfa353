package core

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order; the first that parses wins.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseTimestamp never fails: anything it cannot read becomes the missing marker.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nat") || strings.EqualFold(s, "null") {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Valid: true}
		}
	}
	return Timestamp{}
}

// ParseFlag reads the boolean spellings found in spreadsheet and dataframe exports.
func ParseFlag(s string) (Flag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "1.0":
		return FlagTrue, nil
	case "false", "f", "no", "n", "0", "0.0":
		return FlagFalse, nil
	case "":
		return FlagMissing, nil
	}
	return FlagMissing, fmt.Errorf("%w: %q", ErrInvalidFlag, s)
}
