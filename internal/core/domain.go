package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Contract column names. The loader fails when any of them is absent.
const (
	ColumnReportType            = "report_type"
	ColumnCreatedDateTime       = "created_date_time"
	ColumnModifiedBy            = "modified_by"
	ColumnWorkspaceName         = "workspace_name"
	ColumnDomainID              = "domain_id"
	ColumnIsOnDedicatedCapacity = "is_on_dedicated_capacity"

	// ColumnMonthCreated is derived from created_date_time and never read from the file.
	ColumnMonthCreated = "month_created"
)

// MissingLabel is how the bucket holding missing values is displayed.
const MissingLabel = "(missing)"

// MissingKey is the grouping key of the missing-value bucket. Values are
// trimmed and never empty, so it cannot collide with a real cell.
const MissingKey = ""

// KeyLabel returns the display form of a grouping key.
func KeyLabel(key string) string {
	if key == MissingKey {
		return MissingLabel
	}
	return key
}

const (
	FlagMissing Flag = iota
	FlagFalse
	FlagTrue
)

type (
	// Flag is a tri-state boolean: a cell may hold true, false or nothing usable.
	Flag int

	// Month is a calendar month bucket. The zero value is the missing marker.
	Month struct {
		Year  int
		Month time.Month
	}

	// Timestamp is a leniently parsed instant; Valid is false for missing or
	// unparseable cells.
	Timestamp struct {
		Time  time.Time
		Valid bool
	}

	// Report is one row of the input table.
	Report struct {
		ReportType            string
		CreatedDateTime       Timestamp
		ModifiedBy            string
		WorkspaceName         string
		DomainID              string
		IsOnDedicatedCapacity Flag
	}
)

var (
	ErrInvalidFlag  = errors.New("invalid flag literal")
	ErrInvalidMonth = errors.New("invalid month key")
)

// Month returns the month bucket of the creation time, or the missing marker.
func (r Report) Month() Month {
	if !r.CreatedDateTime.Valid {
		return Month{}
	}
	return MonthOf(r.CreatedDateTime.Time)
}

// Value returns the grouping key for a categorical or derived column.
// ok is false when the cell is missing.
func (r Report) Value(column string) (value string, ok bool) {
	switch column {
	case ColumnReportType:
		return nonEmpty(r.ReportType)
	case ColumnModifiedBy:
		return nonEmpty(r.ModifiedBy)
	case ColumnWorkspaceName:
		return nonEmpty(r.WorkspaceName)
	case ColumnDomainID:
		return nonEmpty(r.DomainID)
	case ColumnIsOnDedicatedCapacity:
		if r.IsOnDedicatedCapacity == FlagMissing {
			return "", false
		}
		return r.IsOnDedicatedCapacity.String(), true
	case ColumnMonthCreated:
		m := r.Month()
		if !m.Valid() {
			return "", false
		}
		return m.String(), true
	case ColumnCreatedDateTime:
		if !r.CreatedDateTime.Valid {
			return "", false
		}
		return r.CreatedDateTime.Time.Format(time.RFC3339), true
	}
	return "", false
}

func nonEmpty(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// MonthOf truncates t to its calendar month in t's own location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Valid reports whether m is a real month rather than the missing marker.
func (m Month) Valid() bool {
	return m.Year != 0 && m.Month >= time.January && m.Month <= time.December
}

// Before orders months chronologically.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// String renders the month as "2006-01", or MissingLabel for the missing marker.
func (m Month) String() string {
	if !m.Valid() {
		return MissingLabel
	}
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// ParseMonth parses a "2006-01" key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "True"
	case FlagFalse:
		return "False"
	default:
		return MissingLabel
	}
}

// Bool returns the flag value; ok is false for FlagMissing.
func (f Flag) Bool() (value bool, ok bool) {
	switch f {
	case FlagTrue:
		return true, true
	case FlagFalse:
		return false, true
	}
	return false, false
}

// FlagOf converts a bool to a Flag.
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}
