// Package loader reads the report metadata file into a core.Table.
//
// The loader is strict about structure (file present, well-formed, every
// contract column present) and lenient about content: an unparseable
// timestamp or flag becomes the missing marker and is only counted.
package loader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"insights/internal/core"
	applog "insights/internal/log"
)

// Options configures Load and Read.
type Options struct {
	// Delimiter separates fields. Zero means ','.
	Delimiter rune
	// Logger receives data-quality warnings. Nil means slog.Default().
	Logger *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithDelimiter sets the field delimiter.
func WithDelimiter(d rune) Option {
	return func(o *Options) { o.Delimiter = d }
}

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Stats describes what the loader tolerated while reading.
type Stats struct {
	Rows              int
	InvalidTimestamps int
	InvalidFlags      int
	Duration          time.Duration
}

// Load opens path and reads it. Any failure is a *LoadError.
func Load(path string, opts ...Option) (*core.Table, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, &LoadError{Path: path, Kind: kindOf(err), Err: err}
	}
	defer f.Close()
	return Read(f, path, opts...)
}

// Read parses delimited data from r; name is used in errors and as the table source.
func Read(r io.Reader, name string, opts ...Option) (*core.Table, Stats, error) {
	o := Options{Delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Delimiter == 0 {
		o.Delimiter = ','
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	reader := csv.NewReader(stripBOM(bufio.NewReader(r)))
	reader.Comma = o.Delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Stats{}, &LoadError{Path: name, Kind: ErrEmpty, Err: err}
		}
		return nil, Stats{}, &LoadError{Path: name, Kind: ErrMalformed, Err: fmt.Errorf("read header: %w", err)}
	}

	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = toSnakeCase(h)
	}
	pos, missing := locateContract(keys)
	if len(missing) > 0 {
		return nil, Stats{}, &LoadError{
			Path: name,
			Kind: ErrMissingColumn,
			Err:  fmt.Errorf("missing %s; got headers=%v", strings.Join(missing, ","), keys),
		}
	}

	var (
		raw     [][]string
		reports []core.Report
		stats   Stats
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Stats{}, &LoadError{Path: name, Kind: ErrMalformed, Err: err}
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}

		rep, badTime, badFlag := toReport(row, pos)
		if badTime {
			stats.InvalidTimestamps++
		}
		if badFlag {
			stats.InvalidFlags++
		}
		raw = append(raw, row)
		reports = append(reports, rep)
	}

	columns := make([]core.Column, len(keys))
	declared := make(map[string]core.ColumnType)
	for _, c := range core.ContractSchema() {
		declared[c.Name] = c.Type
	}
	for i, k := range keys {
		typ, ok := declared[k]
		if !ok {
			typ = inferType(raw, i)
		}
		columns[i] = core.Column{Name: k, Type: typ}
	}

	stats.Rows = len(reports)
	stats.Duration = time.Since(start)

	if stats.InvalidTimestamps > 0 || stats.InvalidFlags > 0 {
		logger.Warn("Dataset contains unparseable values",
			applog.FieldComponent, applog.ComponentLoader,
			applog.FieldSource, name,
			"invalid_timestamps", stats.InvalidTimestamps,
			"invalid_flags", stats.InvalidFlags)
	}
	logger.Info("Dataset loaded",
		applog.FieldComponent, applog.ComponentLoader,
		applog.FieldSource, name,
		applog.FieldRows, stats.Rows,
		applog.FieldColumns, len(columns),
		applog.FieldDuration, stats.Duration.Milliseconds())

	return core.NewTable(name, columns, raw, reports), stats, nil
}

// contractPositions maps each contract column to its index in the file.
type contractPositions map[string]int

func locateContract(keys []string) (contractPositions, []string) {
	pos := make(contractPositions)
	for i, k := range keys {
		if _, seen := pos[k]; !seen {
			pos[k] = i
		}
	}
	var missing []string
	for _, c := range core.ContractSchema() {
		if _, ok := pos[c.Name]; !ok {
			missing = append(missing, c.Name)
		}
	}
	return pos, missing
}

func toReport(row []string, pos contractPositions) (rep core.Report, badTime, badFlag bool) {
	cell := func(col string) string {
		i := pos[col]
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	rep = core.Report{
		ReportType:    cell(core.ColumnReportType),
		ModifiedBy:    cell(core.ColumnModifiedBy),
		WorkspaceName: cell(core.ColumnWorkspaceName),
		DomainID:      cell(core.ColumnDomainID),
	}

	created := cell(core.ColumnCreatedDateTime)
	rep.CreatedDateTime = core.ParseTimestamp(created)
	badTime = created != "" && !rep.CreatedDateTime.Valid

	flag, err := core.ParseFlag(cell(core.ColumnIsOnDedicatedCapacity))
	rep.IsOnDedicatedCapacity = flag
	badFlag = err != nil

	return rep, badTime, badFlag
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(r *bufio.Reader) io.Reader {
	if b, err := r.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = r.Discard(len(utf8BOM))
	}
	return r
}

// toSnakeCase converts "Report Type" to "report_type".
func toSnakeCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}
