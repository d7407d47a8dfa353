// Package storage answers the dashboard aggregations with SQL. The loaded
// table is copied once into a private in-memory SQLite database and every
// aggregation becomes a GROUP BY over it.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"insights/internal/analytics"
	"insights/internal/core"
	applog "insights/internal/log"
	"insights/internal/store/memory"

	_ "modernc.org/sqlite"
)

// groupable maps the columns SQL can group on to their SQL names. Only the
// contract columns and the derived month are copied into the database.
var groupable = map[string]string{
	core.ColumnReportType:            "report_type",
	core.ColumnModifiedBy:            "modified_by",
	core.ColumnWorkspaceName:         "workspace_name",
	core.ColumnDomainID:              "domain_id",
	core.ColumnMonthCreated:          "month_created",
	core.ColumnIsOnDedicatedCapacity: "is_on_dedicated_capacity",
}

type SQLiteRepository struct {
	db     *sql.DB
	table  *core.Table
	logger *slog.Logger
}

// NewSQLiteRepository opens an in-memory database, migrates it and copies t
// into it.
func NewSQLiteRepository(ctx context.Context, t *core.Table, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db, table: t, logger: logger}

	start := time.Now()
	if err := repo.insertAll(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Dataset copied to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldRows, t.Len(),
		applog.FieldDuration, time.Since(start).Milliseconds())

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) insertAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO reports
		(id, report_type, created_date_time, month_created, modified_by, workspace_name, domain_id, is_on_dedicated_capacity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < r.table.Len(); i++ {
		rep := r.table.Report(i)
		_, err := stmt.ExecContext(ctx, i,
			nullable(rep.Value(core.ColumnReportType)),
			nullable(rep.Value(core.ColumnCreatedDateTime)),
			nullable(rep.Value(core.ColumnMonthCreated)),
			nullable(rep.Value(core.ColumnModifiedBy)),
			nullable(rep.Value(core.ColumnWorkspaceName)),
			nullable(rep.Value(core.ColumnDomainID)),
			flagValue(rep.IsOnDedicatedCapacity))
		if err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Shape implements store.ShapeReader.
func (r *SQLiteRepository) Shape(ctx context.Context) (analytics.ShapeSummary, error) {
	var rows int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&rows); err != nil {
		return analytics.ShapeSummary{}, fmt.Errorf("count reports: %w", err)
	}
	schema := r.table.Columns()
	return analytics.ShapeSummary{Rows: rows, Columns: len(schema), Schema: schema}, nil
}

// Distribution implements store.DistributionReader.
func (r *SQLiteRepository) Distribution(ctx context.Context, column string, policy core.MissingPolicy) (analytics.Distribution, error) {
	col, ok := groupable[column]
	if !ok {
		return analytics.Distribution{}, fmt.Errorf("categorical %q: %w", column, analytics.ErrUnknownColumn)
	}

	query := fmt.Sprintf(`SELECT %s AS k, COUNT(*) AS n FROM reports
		GROUP BY k
		ORDER BY k IS NULL, n DESC, k ASC`, asText(column, col))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return analytics.Distribution{}, fmt.Errorf("query distribution %s: %w", column, err)
	}
	defer rows.Close()

	d := analytics.Distribution{Column: column, Policy: policy}
	for rows.Next() {
		var key sql.NullString
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return analytics.Distribution{}, fmt.Errorf("scan distribution: %w", err)
		}
		d.Total += n
		if !key.Valid {
			if policy == core.MissingBucket {
				d.Counts = append(d.Counts, analytics.Count{Key: core.MissingKey, Count: n})
			} else {
				d.Dropped = n
			}
			continue
		}
		d.Counts = append(d.Counts, analytics.Count{Key: key.String, Count: n})
	}
	if err := rows.Err(); err != nil {
		return analytics.Distribution{}, fmt.Errorf("iterate distribution: %w", err)
	}
	return d, nil
}

// Timeline implements store.TimelineReader.
func (r *SQLiteRepository) Timeline(ctx context.Context, policy core.MissingPolicy) (analytics.Timeline, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT month_created, COUNT(*) FROM reports
		GROUP BY month_created
		ORDER BY month_created IS NULL, month_created ASC`)
	if err != nil {
		return analytics.Timeline{}, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	tl := analytics.Timeline{Policy: policy}
	for rows.Next() {
		var key sql.NullString
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return analytics.Timeline{}, fmt.Errorf("scan timeline: %w", err)
		}
		tl.Total += n
		if !key.Valid {
			if policy == core.MissingBucket {
				tl.Buckets = append(tl.Buckets, analytics.MonthCount{Count: n})
			} else {
				tl.Dropped = n
			}
			continue
		}
		m, err := core.ParseMonth(key.String)
		if err != nil {
			return analytics.Timeline{}, fmt.Errorf("timeline bucket: %w", err)
		}
		tl.Buckets = append(tl.Buckets, analytics.MonthCount{Month: m, Count: n})
	}
	if err := rows.Err(); err != nil {
		return analytics.Timeline{}, fmt.Errorf("iterate timeline: %w", err)
	}
	return tl, nil
}

// CrossTab implements store.CrossTabReader.
func (r *SQLiteRepository) CrossTab(ctx context.Context, rowColumn, colColumn string, policy core.MissingPolicy) (analytics.CrossTabulation, error) {
	rc, ok := groupable[rowColumn]
	if !ok {
		return analytics.CrossTabulation{}, fmt.Errorf("crosstab %q: %w", rowColumn, analytics.ErrUnknownColumn)
	}
	cc, ok := groupable[colColumn]
	if !ok {
		return analytics.CrossTabulation{}, fmt.Errorf("crosstab %q: %w", colColumn, analytics.ErrUnknownColumn)
	}

	query := fmt.Sprintf(`SELECT %s, %s, COUNT(*) FROM reports GROUP BY 1, 2`,
		asText(rowColumn, rc), asText(colColumn, cc))
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return analytics.CrossTabulation{}, fmt.Errorf("query crosstab: %w", err)
	}
	defer rows.Close()

	type pair struct{ row, col string }
	counts := make(map[pair]int)
	rowSeen := make(map[string]bool)
	colSeen := make(map[string]bool)
	ct := analytics.CrossTabulation{RowColumn: rowColumn, ColColumn: colColumn, Policy: policy}

	for rows.Next() {
		var rk, ck sql.NullString
		var n int
		if err := rows.Scan(&rk, &ck, &n); err != nil {
			return analytics.CrossTabulation{}, fmt.Errorf("scan crosstab: %w", err)
		}
		ct.Total += n
		if !rk.Valid {
			if policy != core.MissingBucket {
				ct.Dropped += n
				continue
			}
			rk.String = core.MissingKey
		}
		if !ck.Valid {
			ck.String = core.MissingKey
		}
		counts[pair{rk.String, ck.String}] += n
		rowSeen[rk.String] = true
		colSeen[ck.String] = true
	}
	if err := rows.Err(); err != nil {
		return analytics.CrossTabulation{}, fmt.Errorf("iterate crosstab: %w", err)
	}

	ct.RowKeys = analytics.SortKeys(rowSeen)
	ct.ColKeys = analytics.SortKeys(colSeen)
	ct.Cells = make([][]int, len(ct.RowKeys))
	for i, rk := range ct.RowKeys {
		ct.Cells[i] = make([]int, len(ct.ColKeys))
		for j, ck := range ct.ColKeys {
			ct.Cells[i][j] = counts[pair{rk, ck}]
		}
	}
	return ct, nil
}

// Flags implements store.FlagReader.
func (r *SQLiteRepository) Flags(ctx context.Context, column string, policy core.MissingPolicy) (analytics.FlagDistribution, error) {
	if column != core.ColumnIsOnDedicatedCapacity {
		return analytics.FlagDistribution{}, fmt.Errorf("flags %q: %w", column, analytics.ErrUnknownColumn)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT is_on_dedicated_capacity, COUNT(*) FROM reports
		GROUP BY is_on_dedicated_capacity`)
	if err != nil {
		return analytics.FlagDistribution{}, fmt.Errorf("query flags: %w", err)
	}
	defer rows.Close()

	fd := analytics.FlagDistribution{Column: column, Policy: policy}
	missing := 0
	for rows.Next() {
		var v sql.NullInt64
		var n int
		if err := rows.Scan(&v, &n); err != nil {
			return analytics.FlagDistribution{}, fmt.Errorf("scan flags: %w", err)
		}
		fd.Total += n
		if !v.Valid {
			missing = n
			continue
		}
		fd.Counts = append(fd.Counts, analytics.FlagCount{Flag: core.FlagOf(v.Int64 != 0), Count: n})
	}
	if err := rows.Err(); err != nil {
		return analytics.FlagDistribution{}, fmt.Errorf("iterate flags: %w", err)
	}

	analytics.SortFlagCounts(fd.Counts)
	if missing > 0 {
		if policy == core.MissingBucket {
			fd.Counts = append(fd.Counts, analytics.FlagCount{Flag: core.FlagMissing, Count: missing})
		} else {
			fd.Dropped = missing
		}
	}
	return fd, nil
}

// RawRows implements store.RawReader. Raw cells are not copied into SQLite.
func (r *SQLiteRepository) RawRows(ctx context.Context, offset, limit int) ([]string, [][]string, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, 0, err
	}
	return memory.Header(r.table), r.table.RawRows(offset, limit), r.table.Len(), nil
}

func nullable(v string, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

func flagValue(f core.Flag) any {
	b, ok := f.Bool()
	if !ok {
		return nil
	}
	if b {
		return 1
	}
	return 0
}

// asText renders the flag column the way core.Flag prints, so crosstab keys
// match the in-memory engine.
func asText(column, sqlName string) string {
	if column == core.ColumnIsOnDedicatedCapacity {
		return fmt.Sprintf(`CASE %s WHEN 1 THEN 'True' WHEN 0 THEN 'False' END`, sqlName)
	}
	return sqlName
}
