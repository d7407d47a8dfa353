package core

import (
	"fmt"
	"strings"
)

const (
	TypeString    ColumnType = "string"
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeFlag      ColumnType = "flag"
	TypeTimestamp ColumnType = "timestamp"
)

const (
	// MissingExclude leaves rows with a missing grouping value out of the aggregate.
	MissingExclude MissingPolicy = "exclude"
	// MissingBucket counts them in a bucket keyed MissingKey.
	MissingBucket MissingPolicy = "bucket"
)

type (
	ColumnType string

	// MissingPolicy decides what an aggregation does with missing grouping values.
	MissingPolicy string

	// Column is one entry of the table schema.
	Column struct {
		Name string
		Type ColumnType
	}

	// Table is the loaded dataset. It is built once by the loader and never
	// mutated afterwards, so it can be shared freely.
	Table struct {
		source  string
		columns []Column
		raw     [][]string
		reports []Report
		index   map[string]int
	}
)

// ContractSchema lists the required columns with their declared types.
func ContractSchema() []Column {
	return []Column{
		{Name: ColumnReportType, Type: TypeString},
		{Name: ColumnCreatedDateTime, Type: TypeTimestamp},
		{Name: ColumnModifiedBy, Type: TypeString},
		{Name: ColumnWorkspaceName, Type: TypeString},
		{Name: ColumnDomainID, Type: TypeString},
		{Name: ColumnIsOnDedicatedCapacity, Type: TypeFlag},
	}
}

// IsCategorical reports whether column can be grouped as a plain string dimension.
func IsCategorical(column string) bool {
	switch column {
	case ColumnReportType, ColumnModifiedBy, ColumnWorkspaceName, ColumnDomainID:
		return true
	}
	return false
}

// ParseMissingPolicy accepts "exclude" or "bucket" (case-insensitive).
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MissingExclude, MissingBucket:
		return p, nil
	}
	return "", fmt.Errorf("invalid missing-value policy %q: must be one of [exclude bucket]", s)
}

func (p MissingPolicy) String() string { return string(p) }

// IsValid reports whether p is a known policy.
func (p MissingPolicy) IsValid() bool {
	return p == MissingExclude || p == MissingBucket
}

// NewTable assembles a table. columns and each raw row must be the same width,
// and reports must be parallel to raw. The loader is the only production caller.
func NewTable(source string, columns []Column, raw [][]string, reports []Report) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.Name] = i
	}
	return &Table{
		source:  source,
		columns: append([]Column(nil), columns...),
		raw:     raw,
		reports: reports,
		index:   index,
	}
}

// Source is the path or name the table was read from.
func (t *Table) Source() string { return t.source }

// Len is the number of rows.
func (t *Table) Len() int { return len(t.reports) }

// Columns returns a copy of the schema in file order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// HasColumn reports whether name is part of the schema.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Report returns row i as a typed record.
func (t *Table) Report(i int) Report { return t.reports[i] }

// RawRows returns a window of the untouched cell values, clamped to the table.
func (t *Table) RawRows(offset, limit int) [][]string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(t.raw) {
		return nil
	}
	end := len(t.raw)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([][]string, 0, end-offset)
	for _, row := range t.raw[offset:end] {
		out = append(out, append([]string(nil), row...))
	}
	return out
}

// ColumnType returns the type of name; ok is false for unknown columns.
// The derived month column is reported as a string dimension.
func (t *Table) ColumnType(name string) (ColumnType, bool) {
	if name == ColumnMonthCreated {
		return TypeString, true
	}
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.columns[i].Type, true
}

// Value returns the grouping key of row i for column. Contract and derived
// columns go through Report.Value; any other column yields its raw cell.
// ok is false when the cell is missing or the column is unknown.
func (t *Table) Value(i int, column string) (string, bool) {
	if _, contract := t.index[column]; !contract && column != ColumnMonthCreated {
		return "", false
	}
	switch column {
	case ColumnReportType, ColumnCreatedDateTime, ColumnModifiedBy, ColumnWorkspaceName,
		ColumnDomainID, ColumnIsOnDedicatedCapacity, ColumnMonthCreated:
		return t.reports[i].Value(column)
	}
	row := t.raw[i]
	j := t.index[column]
	if j >= len(row) {
		return "", false
	}
	return nonEmpty(row[j])
}

// Flag returns the flag held by row i in a flag-typed column.
func (t *Table) Flag(i int, column string) Flag {
	if column == ColumnIsOnDedicatedCapacity {
		return t.reports[i].IsOnDedicatedCapacity
	}
	v, ok := t.Value(i, column)
	if !ok {
		return FlagMissing
	}
	f, err := ParseFlag(v)
	if err != nil {
		return FlagMissing
	}
	return f
}
