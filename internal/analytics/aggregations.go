// Package analytics computes the descriptive statistics shown on the
// dashboard. Every function is a pure function of an immutable *core.Table.
package analytics

import (
	"errors"
	"fmt"
	"sort"

	"insights/internal/core"
)

// ErrUnknownColumn is returned when an aggregation names a column the table
// does not have, or one of the wrong type.
var ErrUnknownColumn = errors.New("unknown column")

// Shape reports rows, columns and the declared type of every column.
func Shape(t *core.Table) ShapeSummary {
	schema := t.Columns()
	return ShapeSummary{
		Rows:    t.Len(),
		Columns: len(schema),
		Schema:  schema,
	}
}

// Categorical counts rows per distinct value of column.
func Categorical(t *core.Table, column string, opts ...Option) (Distribution, error) {
	if _, ok := t.ColumnType(column); !ok {
		return Distribution{}, fmt.Errorf("categorical %q: %w", column, ErrUnknownColumn)
	}
	cfg := applyOptions(opts)

	counts := make(map[string]int)
	missing := 0
	for i := 0; i < t.Len(); i++ {
		key, ok := t.Value(i, column)
		if !ok {
			missing++
			continue
		}
		counts[key]++
	}

	d := Distribution{
		Column: column,
		Policy: cfg.missing,
		Counts: make([]Count, 0, len(counts)+1),
		Total:  t.Len(),
	}
	for k, n := range counts {
		d.Counts = append(d.Counts, Count{Key: k, Count: n})
	}
	SortCounts(d.Counts)
	d.Counts, d.Dropped = withMissing(d.Counts, missing, cfg.missing)
	return d, nil
}

// Temporal counts rows per creation month, oldest first.
func Temporal(t *core.Table, opts ...Option) Timeline {
	cfg := applyOptions(opts)

	counts := make(map[core.Month]int)
	missing := 0
	for i := 0; i < t.Len(); i++ {
		m := t.Report(i).Month()
		if !m.Valid() {
			missing++
			continue
		}
		counts[m]++
	}

	tl := Timeline{
		Policy:  cfg.missing,
		Buckets: make([]MonthCount, 0, len(counts)+1),
		Total:   t.Len(),
	}
	for m, n := range counts {
		tl.Buckets = append(tl.Buckets, MonthCount{Month: m, Count: n})
	}
	sort.Slice(tl.Buckets, func(i, j int) bool {
		return tl.Buckets[i].Month.Before(tl.Buckets[j].Month)
	})

	if missing > 0 {
		if cfg.missing == core.MissingBucket {
			tl.Buckets = append(tl.Buckets, MonthCount{Count: missing})
		} else {
			tl.Dropped = missing
		}
	}
	return tl
}

// CrossTab counts rows per combination of rowColumn and colColumn values.
// Under MissingExclude a row missing its rowColumn value is dropped, while a
// missing colColumn value is counted under MissingKey so that every row total
// equals the Categorical count of rowColumn under the same policy.
func CrossTab(t *core.Table, rowColumn, colColumn string, opts ...Option) (CrossTabulation, error) {
	for _, c := range []string{rowColumn, colColumn} {
		if _, ok := t.ColumnType(c); !ok {
			return CrossTabulation{}, fmt.Errorf("crosstab %q: %w", c, ErrUnknownColumn)
		}
	}
	cfg := applyOptions(opts)

	type pair struct{ row, col string }
	counts := make(map[pair]int)
	rowSeen := make(map[string]bool)
	colSeen := make(map[string]bool)
	dropped := 0

	for i := 0; i < t.Len(); i++ {
		r, rok := t.Value(i, rowColumn)
		c, cok := t.Value(i, colColumn)
		if !rok {
			if cfg.missing != core.MissingBucket {
				dropped++
				continue
			}
			r = core.MissingKey
		}
		if !cok {
			c = core.MissingKey
		}
		counts[pair{r, c}]++
		rowSeen[r] = true
		colSeen[c] = true
	}

	ct := CrossTabulation{
		RowColumn: rowColumn,
		ColColumn: colColumn,
		Policy:    cfg.missing,
		RowKeys:   SortKeys(rowSeen),
		ColKeys:   SortKeys(colSeen),
		Total:     t.Len(),
		Dropped:   dropped,
	}
	ct.Cells = make([][]int, len(ct.RowKeys))
	for i, r := range ct.RowKeys {
		ct.Cells[i] = make([]int, len(ct.ColKeys))
		for j, c := range ct.ColKeys {
			ct.Cells[i][j] = counts[pair{r, c}]
		}
	}
	return ct, nil
}

// Flags counts rows per value of a flag column.
func Flags(t *core.Table, column string, opts ...Option) (FlagDistribution, error) {
	if typ, ok := t.ColumnType(column); !ok || typ != core.TypeFlag {
		return FlagDistribution{}, fmt.Errorf("flags %q: %w", column, ErrUnknownColumn)
	}
	cfg := applyOptions(opts)

	counts := make(map[core.Flag]int)
	for i := 0; i < t.Len(); i++ {
		counts[t.Flag(i, column)]++
	}

	fd := FlagDistribution{
		Column: column,
		Policy: cfg.missing,
		Total:  t.Len(),
	}
	for _, f := range []core.Flag{core.FlagTrue, core.FlagFalse} {
		if n := counts[f]; n > 0 {
			fd.Counts = append(fd.Counts, FlagCount{Flag: f, Count: n})
		}
	}
	SortFlagCounts(fd.Counts)

	if missing := counts[core.FlagMissing]; missing > 0 {
		if cfg.missing == core.MissingBucket {
			fd.Counts = append(fd.Counts, FlagCount{Flag: core.FlagMissing, Count: missing})
		} else {
			fd.Dropped = missing
		}
	}
	return fd, nil
}

// SortCounts orders buckets by count descending, then key ascending.
func SortCounts(counts []Count) {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Key < counts[j].Key
	})
}

// SortFlagCounts orders flag buckets by count descending, True before False on ties.
func SortFlagCounts(counts []FlagCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Flag > counts[j].Flag
	})
}

// SortKeys returns the keys of seen in ascending order with MissingKey last.
func SortKeys(seen map[string]bool) []string {
	keys := make([]string, 0, len(seen))
	hasMissing := false
	for k := range seen {
		if k == core.MissingKey {
			hasMissing = true
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if hasMissing {
		keys = append(keys, core.MissingKey)
	}
	return keys
}

func withMissing(counts []Count, missing int, policy core.MissingPolicy) ([]Count, int) {
	if missing == 0 {
		return counts, 0
	}
	if policy == core.MissingBucket {
		return append(counts, Count{Key: core.MissingKey, Count: missing}), 0
	}
	return counts, missing
}
