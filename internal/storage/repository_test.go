package storage

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insights/internal/analytics"
	"insights/internal/core"
	"insights/internal/loader"
	"insights/internal/store/memory"
)

const fixture = "report_type,created_date_time,modified_by,workspace_name,domain_id,is_on_dedicated_capacity\n" +
	"PowerBI,2023-01-15T10:00:00Z,alice,Sales,d1,True\n" +
	"PowerBI,2023-03-02,bob,Sales,d1,False\n" +
	"Excel,2023-01-20,alice,Ops,d2,True\n" +
	"Excel,not a date,carol,,d2,True\n" +
	"Paginated,2022-12-31,alice,Ops,unknown,\n" +
	"PowerBI,2023-03-09,unknown user,Finance,d1,False\n" +
	",2023-03-10,bob,Finance,,False\n"

// literalMissing has a real cell spelled like the missing label next to blank
// cells, and a blank column value under a present row value.
const literalMissing = "report_type,created_date_time,modified_by,workspace_name,domain_id,is_on_dedicated_capacity\n" +
	"(missing),2023-01-01,alice,Sales,d1,True\n" +
	",2023-01-02,bob,Sales,d1,True\n" +
	"PowerBI,2023-01-03,carol,(missing),d2,False\n" +
	"PowerBI,2023-01-04,carol,,d2,False\n"

func setup(t *testing.T) (*SQLiteRepository, *memory.Store) {
	return setupWith(t, fixture)
}

func setupWith(t *testing.T, csv string) (*SQLiteRepository, *memory.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tbl, _, err := loader.Read(strings.NewReader(csv), "fixture", loader.WithLogger(logger))
	require.NoError(t, err)

	repo, err := NewSQLiteRepository(context.Background(), tbl, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, memory.New(tbl)
}

var policies = []core.MissingPolicy{core.MissingExclude, core.MissingBucket}

func TestSQLiteMatchesMemory_Distribution(t *testing.T) {
	repo, mem := setup(t)
	ctx := context.Background()

	columns := []string{
		core.ColumnReportType, core.ColumnModifiedBy, core.ColumnWorkspaceName,
		core.ColumnDomainID, core.ColumnMonthCreated, core.ColumnIsOnDedicatedCapacity,
	}
	for _, col := range columns {
		for _, p := range policies {
			want, err := mem.Distribution(ctx, col, p)
			require.NoError(t, err)
			got, err := repo.Distribution(ctx, col, p)
			require.NoError(t, err)

			assert.Equal(t, want.Counts, got.Counts, "%s/%s", col, p)
			assert.Equal(t, want.Dropped, got.Dropped, "%s/%s", col, p)
			assert.Equal(t, want.Total, got.Total, "%s/%s", col, p)
		}
	}
}

func TestSQLiteMatchesMemory_Timeline(t *testing.T) {
	repo, mem := setup(t)
	ctx := context.Background()

	for _, p := range policies {
		want, err := mem.Timeline(ctx, p)
		require.NoError(t, err)
		got, err := repo.Timeline(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%s", p)
	}
}

func TestSQLiteMatchesMemory_CrossTab(t *testing.T) {
	repo, mem := setup(t)
	ctx := context.Background()

	pairs := [][2]string{
		{core.ColumnWorkspaceName, core.ColumnReportType},
		{core.ColumnModifiedBy, core.ColumnReportType},
		{core.ColumnDomainID, core.ColumnIsOnDedicatedCapacity},
	}
	for _, pr := range pairs {
		for _, p := range policies {
			want, err := mem.CrossTab(ctx, pr[0], pr[1], p)
			require.NoError(t, err)
			got, err := repo.CrossTab(ctx, pr[0], pr[1], p)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%v/%s", pr, p)
		}
	}
}

func TestLiteralMissingTextIsAValue(t *testing.T) {
	repo, mem := setupWith(t, literalMissing)
	ctx := context.Background()

	backends := map[string]interface {
		Distribution(context.Context, string, core.MissingPolicy) (analytics.Distribution, error)
		CrossTab(context.Context, string, string, core.MissingPolicy) (analytics.CrossTabulation, error)
	}{"sqlite": repo, "memory": mem}

	for name, b := range backends {
		bucketed, err := b.Distribution(ctx, core.ColumnReportType, core.MissingBucket)
		require.NoError(t, err)
		assert.Equal(t, []analytics.Count{
			{Key: "PowerBI", Count: 2}, {Key: "(missing)", Count: 1}, {Key: core.MissingKey, Count: 1},
		}, bucketed.Counts, name)

		excluded, err := b.Distribution(ctx, core.ColumnReportType, core.MissingExclude)
		require.NoError(t, err)
		assert.Equal(t, 1, excluded.Get(core.MissingLabel), name)
		assert.Equal(t, 1, excluded.Dropped, name)

		ct, err := b.CrossTab(ctx, core.ColumnReportType, core.ColumnWorkspaceName, core.MissingBucket)
		require.NoError(t, err)
		assert.Equal(t, []string{"(missing)", "PowerBI", core.MissingKey}, ct.RowKeys, name)
		assert.Equal(t, []string{"(missing)", "Sales", core.MissingKey}, ct.ColKeys, name)
		assert.Equal(t, 1, ct.Get("PowerBI", "(missing)"), name)
		assert.Equal(t, 1, ct.Get("PowerBI", core.MissingKey), name)
		assert.Equal(t, 1, ct.Get(core.MissingKey, "Sales"), name)

		ct, err = b.CrossTab(ctx, core.ColumnReportType, core.ColumnWorkspaceName, core.MissingExclude)
		require.NoError(t, err)
		assert.Equal(t, excluded.Get("PowerBI"), ct.RowTotal("PowerBI"), name)
		assert.Equal(t, excluded.Dropped, ct.Dropped, name)
	}

	for _, p := range policies {
		for _, col := range []string{core.ColumnReportType, core.ColumnWorkspaceName} {
			want, err := mem.Distribution(ctx, col, p)
			require.NoError(t, err)
			got, err := repo.Distribution(ctx, col, p)
			require.NoError(t, err)
			assert.Equal(t, want, got, "%s/%s", col, p)
		}
		want, err := mem.CrossTab(ctx, core.ColumnWorkspaceName, core.ColumnReportType, p)
		require.NoError(t, err)
		got, err := repo.CrossTab(ctx, core.ColumnWorkspaceName, core.ColumnReportType, p)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%s", p)
	}
}

func TestSQLiteMatchesMemory_Flags(t *testing.T) {
	repo, mem := setup(t)
	ctx := context.Background()

	for _, p := range policies {
		want, err := mem.Flags(ctx, core.ColumnIsOnDedicatedCapacity, p)
		require.NoError(t, err)
		got, err := repo.Flags(ctx, core.ColumnIsOnDedicatedCapacity, p)
		require.NoError(t, err)
		assert.Equal(t, want, got, "%s", p)
	}
}

func TestSQLiteShapeAndRawRows(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	shape, err := repo.Shape(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, shape.Rows)
	assert.Equal(t, 6, shape.Columns)

	header, rows, total, err := repo.RawRows(ctx, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Len(t, rows, 2)
	assert.Equal(t, core.ColumnReportType, header[0])
}

func TestSQLiteRejectsUnknownColumns(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	_, err := repo.Distribution(ctx, "owner", core.MissingExclude)
	assert.ErrorIs(t, err, analytics.ErrUnknownColumn)

	_, err = repo.CrossTab(ctx, core.ColumnReportType, "'; DROP TABLE reports; --", core.MissingExclude)
	assert.ErrorIs(t, err, analytics.ErrUnknownColumn)

	_, err = repo.Flags(ctx, core.ColumnReportType, core.MissingExclude)
	assert.ErrorIs(t, err, analytics.ErrUnknownColumn)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	repo, _ := setup(t)
	require.NoError(t, RunMigrations(repo.db))

	var n int
	require.NoError(t, repo.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&n))
	assert.Equal(t, 7, n)
}
