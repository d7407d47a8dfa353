package analytics

import "insights/internal/core"

type (
	// ShapeSummary is the size and schema of the table.
	ShapeSummary struct {
		Rows    int
		Columns int
		Schema  []core.Column
	}

	// Count is one bucket of a distribution. The missing bucket has
	// core.MissingKey as its key.
	Count struct {
		Key   string
		Count int
	}

	// Distribution counts rows per distinct value of Column. Counts is
	// descending by count with ties broken by key; under MissingBucket the
	// missing bucket comes last whatever its size.
	Distribution struct {
		Column  string
		Policy  core.MissingPolicy
		Counts  []Count
		Total   int
		Dropped int
	}

	// MonthCount is one bucket of a timeline.
	MonthCount struct {
		Month core.Month
		Count int
	}

	// Timeline counts rows per creation month in chronological order. A
	// missing bucket, if any, is the zero Month and comes last.
	Timeline struct {
		Policy  core.MissingPolicy
		Buckets []MonthCount
		Total   int
		Dropped int
	}

	// CrossTabulation counts rows per (row value, column value). Cells is
	// indexed [row][col] parallel to RowKeys and ColKeys; combinations that
	// never occur hold zero.
	CrossTabulation struct {
		RowColumn string
		ColColumn string
		Policy    core.MissingPolicy
		RowKeys   []string
		ColKeys   []string
		Cells     [][]int
		Total     int
		Dropped   int
	}

	// FlagCount is one bucket of a flag distribution.
	FlagCount struct {
		Flag  core.Flag
		Count int
	}

	// FlagDistribution counts rows per flag value, descending by count.
	FlagDistribution struct {
		Column  string
		Policy  core.MissingPolicy
		Counts  []FlagCount
		Total   int
		Dropped int
	}
)

// Sum is the number of rows the distribution accounts for.
func (d Distribution) Sum() int {
	n := 0
	for _, c := range d.Counts {
		n += c.Count
	}
	return n
}

// Get returns the count for key, zero when absent.
func (d Distribution) Get(key string) int {
	for _, c := range d.Counts {
		if c.Key == key {
			return c.Count
		}
	}
	return 0
}

// AsMap returns the counts keyed by value.
func (d Distribution) AsMap() map[string]int {
	m := make(map[string]int, len(d.Counts))
	for _, c := range d.Counts {
		m[c.Key] = c.Count
	}
	return m
}

// Sum is the number of rows the timeline accounts for.
func (tl Timeline) Sum() int {
	n := 0
	for _, b := range tl.Buckets {
		n += b.Count
	}
	return n
}

// Get returns the count for the month bucket key ("2006-01", or MissingLabel
// for the zero Month).
func (tl Timeline) Get(key string) int {
	for _, b := range tl.Buckets {
		if b.Month.String() == key {
			return b.Count
		}
	}
	return 0
}

// Get returns the count for (row, col), zero when either key is absent.
func (ct CrossTabulation) Get(row, col string) int {
	i, j := indexOf(ct.RowKeys, row), indexOf(ct.ColKeys, col)
	if i < 0 || j < 0 {
		return 0
	}
	return ct.Cells[i][j]
}

// RowTotal sums a row over every column key.
func (ct CrossTabulation) RowTotal(row string) int {
	i := indexOf(ct.RowKeys, row)
	if i < 0 {
		return 0
	}
	n := 0
	for _, v := range ct.Cells[i] {
		n += v
	}
	return n
}

// ColTotal sums a column over every row key.
func (ct CrossTabulation) ColTotal(col string) int {
	j := indexOf(ct.ColKeys, col)
	if j < 0 {
		return 0
	}
	n := 0
	for _, row := range ct.Cells {
		n += row[j]
	}
	return n
}

// Sum is the number of rows the table accounts for.
func (ct CrossTabulation) Sum() int {
	n := 0
	for _, row := range ct.Cells {
		for _, v := range row {
			n += v
		}
	}
	return n
}

// Max is the largest cell, used to scale colour grids.
func (ct CrossTabulation) Max() int {
	m := 0
	for _, row := range ct.Cells {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Sum is the number of rows the distribution accounts for.
func (fd FlagDistribution) Sum() int {
	n := 0
	for _, c := range fd.Counts {
		n += c.Count
	}
	return n
}

// Get returns the count for f.
func (fd FlagDistribution) Get(f core.Flag) int {
	for _, c := range fd.Counts {
		if c.Flag == f {
			return c.Count
		}
	}
	return 0
}

// Share returns f's percentage of Sum, or 0 for an empty distribution.
func (fd FlagDistribution) Share(f core.Flag) float64 {
	sum := fd.Sum()
	if sum == 0 {
		return 0
	}
	return float64(fd.Get(f)) * 100 / float64(sum)
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
