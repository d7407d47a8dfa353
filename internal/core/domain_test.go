package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
		month Month
	}{
		{"2022-08-10T12:34:56Z", true, Month{2022, time.August}},
		{"2022-08-10T12:34:56.123+02:00", true, Month{2022, time.August}},
		{"2023-07-01 09:00:00.123000+00:00", true, Month{2023, time.July}},
		{"2023-07-01 09:00:00", true, Month{2023, time.July}},
		{"2021-12-31", true, Month{2021, time.December}},
		{"03/15/2024", true, Month{2024, time.March}},
		{"not a date", false, Month{}},
		{"", false, Month{}},
		{"NaT", false, Month{}},
		{"2022-13-45", false, Month{}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			ts := ParseTimestamp(tc.in)
			assert.Equal(t, tc.valid, ts.Valid)
			r := Report{CreatedDateTime: ts}
			assert.Equal(t, tc.month, r.Month())
		})
	}
}

func TestParseFlag(t *testing.T) {
	for _, in := range []string{"True", "true", "1", "YES", " t "} {
		f, err := ParseFlag(in)
		require.NoError(t, err, in)
		assert.Equal(t, FlagTrue, f, in)
	}
	for _, in := range []string{"False", "0", "no"} {
		f, err := ParseFlag(in)
		require.NoError(t, err, in)
		assert.Equal(t, FlagFalse, f, in)
	}

	f, err := ParseFlag("")
	require.NoError(t, err)
	assert.Equal(t, FlagMissing, f)

	_, err = ParseFlag("maybe")
	assert.True(t, errors.Is(err, ErrInvalidFlag))
}

func TestMonthOrderingAndFormatting(t *testing.T) {
	a := Month{2022, time.December}
	b := Month{2023, time.January}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.Equal(t, "2022-12", a.String())
	assert.Equal(t, MissingLabel, Month{}.String())

	m, err := ParseMonth("2023-01")
	require.NoError(t, err)
	assert.Equal(t, b, m)

	_, err = ParseMonth("January")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestKeyLabel(t *testing.T) {
	assert.Equal(t, MissingLabel, KeyLabel(MissingKey))
	assert.Equal(t, "(missing)", KeyLabel("(missing)"))
	assert.Equal(t, "PowerBI", KeyLabel("PowerBI"))
}

func TestReportValue(t *testing.T) {
	r := Report{
		ReportType:            "PowerBIReport",
		CreatedDateTime:       ParseTimestamp("2022-08-01"),
		ModifiedBy:            "unknown user",
		WorkspaceName:         "  ",
		DomainID:              "unknown",
		IsOnDedicatedCapacity: FlagTrue,
	}

	v, ok := r.Value(ColumnReportType)
	assert.True(t, ok)
	assert.Equal(t, "PowerBIReport", v)

	v, ok = r.Value(ColumnModifiedBy)
	assert.True(t, ok, "sentinel values are ordinary values")
	assert.Equal(t, "unknown user", v)

	_, ok = r.Value(ColumnWorkspaceName)
	assert.False(t, ok, "blank cells are missing")

	v, ok = r.Value(ColumnMonthCreated)
	assert.True(t, ok)
	assert.Equal(t, "2022-08", v)

	v, ok = r.Value(ColumnIsOnDedicatedCapacity)
	assert.True(t, ok)
	assert.Equal(t, "True", v)

	_, ok = r.Value("no_such_column")
	assert.False(t, ok)
}

func TestTableRawRowsWindow(t *testing.T) {
	raw := [][]string{{"a"}, {"b"}, {"c"}}
	tbl := NewTable("mem", []Column{{Name: "x", Type: TypeString}}, raw, make([]Report, 3))

	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, [][]string{{"b"}, {"c"}}, tbl.RawRows(1, 10))
	assert.Equal(t, [][]string{{"a"}}, tbl.RawRows(0, 1))
	assert.Nil(t, tbl.RawRows(5, 1))

	rows := tbl.RawRows(0, 0)
	rows[0][0] = "mutated"
	assert.Equal(t, "a", tbl.RawRows(0, 1)[0][0], "raw rows are copied out")
}

func TestParseMissingPolicy(t *testing.T) {
	p, err := ParseMissingPolicy("Bucket")
	require.NoError(t, err)
	assert.Equal(t, MissingBucket, p)

	_, err = ParseMissingPolicy("drop")
	assert.Error(t, err)
}
