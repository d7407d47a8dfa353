package analytics

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insights/internal/core"
	"insights/internal/loader"
)

const header = "report_type,created_date_time,modified_by,workspace_name,domain_id,is_on_dedicated_capacity\n"

// sample has one missing workspace, one unparseable date and one blank flag.
const sample = header +
	"PowerBI,2023-01-15,alice,Sales,d1,True\n" +
	"PowerBI,2023-03-02,bob,Sales,d1,False\n" +
	"Excel,2023-01-20,alice,Ops,d2,True\n" +
	"Excel,garbage,carol,,d2,True\n" +
	"Paginated,2022-12-31,alice,Ops,unknown,\n" +
	"PowerBI,2023-03-09,unknown user,Finance,d1,False\n"

func table(t *testing.T, csv string) *core.Table {
	t.Helper()
	tbl, _, err := loader.Read(strings.NewReader(csv), "test",
		loader.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	return tbl
}

func TestCategorical_ThreeRowFixture(t *testing.T) {
	tbl := table(t, header+
		"PowerBI,2023-01-01,a,w,d,True\n"+
		"Excel,2023-01-02,b,w,d,True\n"+
		"PowerBI,2023-01-03,c,w,d,False\n")

	d, err := Categorical(tbl, core.ColumnReportType)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"PowerBI": 2, "Excel": 1}, d.AsMap())
	assert.Equal(t, []Count{{"PowerBI", 2}, {"Excel", 1}}, d.Counts)
}

func TestCategorical_OrderAndTies(t *testing.T) {
	tbl := table(t, sample)

	d, err := Categorical(tbl, core.ColumnReportType)
	require.NoError(t, err)
	assert.Equal(t, []Count{{"PowerBI", 3}, {"Excel", 2}, {"Paginated", 1}}, d.Counts)

	users, err := Categorical(tbl, core.ColumnModifiedBy)
	require.NoError(t, err)
	assert.Equal(t, []Count{{"alice", 3}, {"bob", 1}, {"carol", 1}, {"unknown user", 1}}, users.Counts)
}

func TestCategorical_MissingPolicy(t *testing.T) {
	tbl := table(t, sample)

	excluded, err := Categorical(tbl, core.ColumnWorkspaceName)
	require.NoError(t, err)
	assert.Equal(t, 1, excluded.Dropped)
	assert.Zero(t, excluded.Get(core.MissingKey))
	assert.Equal(t, excluded.Total-excluded.Dropped, excluded.Sum())

	bucketed, err := Categorical(tbl, core.ColumnWorkspaceName, WithMissing(core.MissingBucket))
	require.NoError(t, err)
	assert.Zero(t, bucketed.Dropped)
	assert.Equal(t, tbl.Len(), bucketed.Sum())
	last := bucketed.Counts[len(bucketed.Counts)-1]
	assert.Equal(t, Count{Key: core.MissingKey, Count: 1}, last)
}

func TestCategorical_LiteralMissingTextIsAValue(t *testing.T) {
	tbl := table(t, header+
		"(missing),2023-01-01,a,w,d,True\n"+
		",2023-01-02,b,w,d,True\n"+
		"PowerBI,2023-01-03,c,w,d,False\n")

	bucketed, err := Categorical(tbl, core.ColumnReportType, WithMissing(core.MissingBucket))
	require.NoError(t, err)
	assert.Equal(t, []Count{{"(missing)", 1}, {"PowerBI", 1}, {core.MissingKey, 1}}, bucketed.Counts)
	assert.Len(t, bucketed.AsMap(), 3)

	excluded, err := Categorical(tbl, core.ColumnReportType)
	require.NoError(t, err)
	assert.Equal(t, 1, excluded.Get(core.MissingLabel))
	assert.Zero(t, excluded.Get(core.MissingKey))
	assert.Equal(t, 1, excluded.Dropped)
}

func TestCategorical_UnknownColumn(t *testing.T) {
	_, err := Categorical(table(t, sample), "nope")
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestCategorical_SumInvariant(t *testing.T) {
	tbl := table(t, sample)
	for _, col := range []string{core.ColumnReportType, core.ColumnModifiedBy, core.ColumnWorkspaceName, core.ColumnDomainID, core.ColumnMonthCreated} {
		for _, p := range []core.MissingPolicy{core.MissingExclude, core.MissingBucket} {
			d, err := Categorical(tbl, col, WithMissing(p))
			require.NoError(t, err)
			assert.Equal(t, tbl.Len()-d.Dropped, d.Sum(), "%s/%s", col, p)
		}
	}
}

func TestTemporal_Chronological(t *testing.T) {
	tbl := table(t, sample)

	tl := Temporal(tbl)
	require.Len(t, tl.Buckets, 3)
	assert.Equal(t, core.Month{Year: 2022, Month: time.December}, tl.Buckets[0].Month)
	assert.Equal(t, 2, tl.Get("2023-01"))
	assert.Equal(t, 2, tl.Get("2023-03"))
	assert.Equal(t, 1, tl.Dropped)
	assert.Equal(t, tl.Total-tl.Dropped, tl.Sum())

	for i := 1; i < len(tl.Buckets); i++ {
		assert.True(t, tl.Buckets[i-1].Month.Before(tl.Buckets[i].Month))
	}
}

func TestTemporal_InvalidDateBucketed(t *testing.T) {
	tbl := table(t, sample)

	tl := Temporal(tbl, WithMissing(core.MissingBucket))
	require.Len(t, tl.Buckets, 4)
	last := tl.Buckets[len(tl.Buckets)-1]
	assert.False(t, last.Month.Valid())
	assert.Equal(t, 1, last.Count)
	assert.Equal(t, 1, tl.Get(core.MissingLabel))
	assert.Equal(t, tbl.Len(), tl.Sum())
}

func TestTemporal_EmptyTable(t *testing.T) {
	tl := Temporal(table(t, header))
	assert.Empty(t, tl.Buckets)
	assert.Zero(t, tl.Sum())
}

func TestCrossTab_RowTotalsMatchDistribution(t *testing.T) {
	// The second fixture leaves the column value blank and the third leaves
	// both the row and the column value blank.
	fixtures := []string{
		sample,
		header +
			"PowerBI,2023-01-01,a,Sales,d,True\n" +
			",2023-01-02,b,Sales,d,True\n" +
			"Excel,2023-01-03,c,Ops,d,False\n",
		sample + ",2023-02-01,dave,,d1,True\n" + ",2023-02-02,dave,Ops,d1,True\n",
	}
	pairs := [][2]string{
		{core.ColumnModifiedBy, core.ColumnReportType},
		{core.ColumnWorkspaceName, core.ColumnReportType},
		{core.ColumnReportType, core.ColumnWorkspaceName},
	}

	for i, csv := range fixtures {
		tbl := table(t, csv)
		for _, pr := range pairs {
			for _, p := range []core.MissingPolicy{core.MissingExclude, core.MissingBucket} {
				ct, err := CrossTab(tbl, pr[0], pr[1], WithMissing(p))
				require.NoError(t, err)
				rows, err := Categorical(tbl, pr[0], WithMissing(p))
				require.NoError(t, err)

				for _, c := range rows.Counts {
					assert.Equal(t, c.Count, ct.RowTotal(c.Key), "fixture %d %v %q under %s", i, pr, c.Key, p)
				}
				assert.Equal(t, rows.Sum(), ct.Sum(), "fixture %d %v under %s", i, pr, p)
				assert.Equal(t, rows.Dropped, ct.Dropped, "fixture %d %v under %s", i, pr, p)
			}
		}
	}
}

func TestCrossTab_MissingColumnValueKeptUnderExclude(t *testing.T) {
	tbl := table(t, header+
		"PowerBI,2023-01-01,a,Sales,d,True\n"+
		",2023-01-02,b,Sales,d,True\n"+
		"Excel,2023-01-03,c,Ops,d,False\n")

	ct, err := CrossTab(tbl, core.ColumnWorkspaceName, core.ColumnReportType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Excel", "PowerBI", core.MissingKey}, ct.ColKeys)
	assert.Equal(t, 2, ct.RowTotal("Sales"))
	assert.Equal(t, 1, ct.Get("Sales", core.MissingKey))
	assert.Zero(t, ct.Dropped)
}

func TestCrossTab_LiteralMissingTextIsAValue(t *testing.T) {
	tbl := table(t, header+
		"(missing),2023-01-01,a,Sales,d,True\n"+
		",2023-01-02,b,Sales,d,True\n"+
		"PowerBI,2023-01-03,c,,d,False\n")

	ct, err := CrossTab(tbl, core.ColumnReportType, core.ColumnWorkspaceName, WithMissing(core.MissingBucket))
	require.NoError(t, err)
	assert.Equal(t, []string{"(missing)", "PowerBI", core.MissingKey}, ct.RowKeys)
	assert.Equal(t, []string{"Sales", core.MissingKey}, ct.ColKeys)
	assert.Equal(t, 1, ct.Get("(missing)", "Sales"))
	assert.Equal(t, 1, ct.Get(core.MissingKey, "Sales"))
	assert.Equal(t, 1, ct.Get("PowerBI", core.MissingKey))
}

func TestCrossTab_ZerosAndKeys(t *testing.T) {
	tbl := table(t, sample)

	ct, err := CrossTab(tbl, core.ColumnWorkspaceName, core.ColumnReportType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance", "Ops", "Sales"}, ct.RowKeys)
	assert.Equal(t, []string{"Excel", "Paginated", "PowerBI"}, ct.ColKeys)
	assert.Equal(t, 2, ct.Get("Sales", "PowerBI"))
	assert.Zero(t, ct.Get("Sales", "Excel"))
	assert.Zero(t, ct.Get("Nowhere", "Excel"))
	assert.Equal(t, 1, ct.Dropped)
	assert.Equal(t, 2, ct.Max())
	assert.Equal(t, 3, ct.ColTotal("PowerBI"))

	bucketed, err := CrossTab(tbl, core.ColumnWorkspaceName, core.ColumnReportType, WithMissing(core.MissingBucket))
	require.NoError(t, err)
	assert.Equal(t, core.MissingKey, bucketed.RowKeys[len(bucketed.RowKeys)-1])
	assert.Equal(t, 1, bucketed.Get(core.MissingKey, "Excel"))
}

func TestCrossTab_UnknownColumn(t *testing.T) {
	_, err := CrossTab(table(t, sample), core.ColumnReportType, "nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestFlags_FourRows(t *testing.T) {
	tbl := table(t, header+
		"A,2023-01-01,u,w,d,true\n"+
		"A,2023-01-01,u,w,d,false\n"+
		"A,2023-01-01,u,w,d,true\n"+
		"A,2023-01-01,u,w,d,true\n")

	fd, err := Flags(tbl, core.ColumnIsOnDedicatedCapacity)
	require.NoError(t, err)
	assert.Equal(t, []FlagCount{{core.FlagTrue, 3}, {core.FlagFalse, 1}}, fd.Counts)
	assert.InDelta(t, 75.0, fd.Share(core.FlagTrue), 1e-9)
}

func TestFlags_MissingPolicy(t *testing.T) {
	tbl := table(t, sample)

	fd, err := Flags(tbl, core.ColumnIsOnDedicatedCapacity)
	require.NoError(t, err)
	assert.Equal(t, 1, fd.Dropped)
	assert.Equal(t, 3, fd.Get(core.FlagTrue))
	assert.Equal(t, 2, fd.Get(core.FlagFalse))

	fd, err = Flags(tbl, core.ColumnIsOnDedicatedCapacity, WithMissing(core.MissingBucket))
	require.NoError(t, err)
	assert.Equal(t, tbl.Len(), fd.Sum())
	assert.Equal(t, core.FlagMissing, fd.Counts[len(fd.Counts)-1].Flag)
}

func TestFlags_RejectsNonFlagColumn(t *testing.T) {
	_, err := Flags(table(t, sample), core.ColumnReportType)
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestShape(t *testing.T) {
	s := Shape(table(t, sample))
	assert.Equal(t, 6, s.Rows)
	assert.Equal(t, 6, s.Columns)
	require.Len(t, s.Schema, 6)
	assert.Equal(t, core.Column{Name: core.ColumnCreatedDateTime, Type: core.TypeTimestamp}, s.Schema[1])
}
