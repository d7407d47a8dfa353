// Package text prints a dashboard as aligned plain-text tables for
// terminals and logs.
package text

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"insights/internal/analytics"
	"insights/internal/chart"
	"insights/internal/core"
	"insights/internal/dashboard"
)

// wrapWidth is where annotation paragraphs are broken.
const wrapWidth = 78

// Options tunes Render.
type Options struct {
	// Limit caps the rows printed per block; zero prints everything.
	Limit int
	// Raw, when set, is printed after the shape summary.
	Raw *Raw
}

// Raw is a window of the untouched input rows.
type Raw struct {
	Header []string
	Rows   [][]string
	Total  int
}

// errWriter keeps the first write error so the render code can stay linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// Render writes d to w in block order.
func Render(w io.Writer, d *dashboard.Dashboard, opts Options) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n%s\n%s\n\n", d.Title, strings.Repeat("=", len(d.Title)), d.Description)
	if ew.err != nil {
		return ew.err
	}

	if err := renderShape(ew, d.Shape); err != nil {
		return err
	}
	if opts.Raw != nil {
		if err := renderRaw(ew, *opts.Raw); err != nil {
			return err
		}
	}
	for i, blk := range d.Blocks {
		if err := renderBlock(ew, i+1, blk, opts.Limit); err != nil {
			return fmt.Errorf("block %s: %w", blk.ID, err)
		}
	}
	return ew.err
}

func renderShape(ew *errWriter, s analytics.ShapeSummary) error {
	ew.printf("Data Overview: %s rows x %d columns\n\n", humanize.Comma(int64(s.Rows)), s.Columns)
	tw := tabwriter.NewWriter(ew.w, 0, 0, 2, ' ', 0)
	if ew.err == nil {
		fmt.Fprintln(tw, "COLUMN\tTYPE")
		for _, c := range s.Schema {
			fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Type)
		}
		ew.err = tw.Flush()
	}
	ew.printf("\n")
	return ew.err
}

func renderRaw(ew *errWriter, raw Raw) error {
	ew.printf("Raw Data (%d of %s rows)\n\n", len(raw.Rows), humanize.Comma(int64(raw.Total)))
	if ew.err != nil {
		return ew.err
	}
	tw := tabwriter.NewWriter(ew.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(raw.Header, "\t"))
	for _, row := range raw.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	ew.err = tw.Flush()
	ew.printf("\n")
	return ew.err
}

func renderBlock(ew *errWriter, n int, blk dashboard.Block, limit int) error {
	heading := fmt.Sprintf("%d. %s", n, blk.Title)
	ew.printf("%s\n%s\n", heading, strings.Repeat("-", len(heading)))
	if ew.err != nil {
		return ew.err
	}

	switch {
	case blk.Err != nil:
		ew.printf("(unavailable: %v)\n", blk.Err)
	case blk.Empty():
		ew.printf("(no data)\n")
	default:
		tw := tabwriter.NewWriter(ew.w, 0, 0, 2, ' ', tabwriter.AlignRight)
		writeBlockTable(tw, blk, limit)
		ew.err = tw.Flush()
	}
	if x := blk.Excluded(); x > 0 && ew.err == nil {
		ew.printf("(%s rows with a missing value left out)\n", humanize.Comma(int64(x)))
	}
	ew.printf("\n%s\n\n", wrap(blk.Annotation, wrapWidth))
	return ew.err
}

// writeBlockTable fills tw; write errors surface from tw.Flush.
func writeBlockTable(tw *tabwriter.Writer, blk dashboard.Block, limit int) {
	switch {
	case blk.Distribution != nil:
		fmt.Fprintf(tw, "%s\t%s\t\n", label(blk.XLabel, blk.Distribution.Column), label(blk.YLabel, "Count"))
		counts := blk.Distribution.Counts
		for i, c := range counts {
			if limit > 0 && i == limit {
				fmt.Fprintf(tw, "... %d more\t\t\n", len(counts)-limit)
				break
			}
			fmt.Fprintf(tw, "%s\t%s\t\n", core.KeyLabel(c.Key), humanize.Comma(int64(c.Count)))
		}
	case blk.Timeline != nil:
		fmt.Fprintf(tw, "%s\t%s\t\n", label(blk.XLabel, "Month"), label(blk.YLabel, "Count"))
		for _, b := range blk.Timeline.Buckets {
			fmt.Fprintf(tw, "%s\t%s\t\n", b.Month.String(), humanize.Comma(int64(b.Count)))
		}
	case blk.CrossTab != nil:
		writeCrossTab(tw, *blk.CrossTab, limit)
	case blk.Flags != nil:
		fmt.Fprintf(tw, "%s\tCount\tShare\t\n", blk.Flags.Column)
		for _, c := range blk.Flags.Counts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t\n", c.Flag, humanize.Comma(int64(c.Count)), chart.Percent(blk.Flags.Share(c.Flag)))
		}
	}
}

func writeCrossTab(tw *tabwriter.Writer, ct analytics.CrossTabulation, limit int) {
	fmt.Fprintf(tw, "%s \\ %s\t", ct.RowColumn, ct.ColColumn)
	for _, k := range ct.ColKeys {
		fmt.Fprintf(tw, "%s\t", core.KeyLabel(k))
	}
	fmt.Fprint(tw, "Total\t\n")

	for i, rk := range ct.RowKeys {
		if limit > 0 && i == limit {
			fmt.Fprintf(tw, "... %d more\t\n", len(ct.RowKeys)-limit)
			break
		}
		fmt.Fprintf(tw, "%s\t", core.KeyLabel(rk))
		for j := range ct.ColKeys {
			fmt.Fprintf(tw, "%d\t", ct.Cells[i][j])
		}
		fmt.Fprintf(tw, "%d\t\n", ct.RowTotal(rk))
	}

	fmt.Fprint(tw, "Total\t")
	for _, ck := range ct.ColKeys {
		fmt.Fprintf(tw, "%d\t", ct.ColTotal(ck))
	}
	fmt.Fprintf(tw, "%d\t\n", ct.Sum())
}

func label(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// wrap breaks s on spaces so no line exceeds width unless a single word does.
func wrap(s string, width int) string {
	var b strings.Builder
	line := 0
	for _, word := range strings.Fields(s) {
		if line > 0 && line+1+len(word) > width {
			b.WriteByte('\n')
			line = 0
		} else if line > 0 {
			b.WriteByte(' ')
			line++
		}
		b.WriteString(word)
		line += len(word)
	}
	return b.String()
}
