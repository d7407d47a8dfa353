package http

import (
	"fmt"
	"html/template"
	"net/url"

	"insights/internal/analytics"
	"insights/internal/chart"
	"insights/internal/core"
	"insights/internal/dashboard"
	appweb "insights/web"
)

func parseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"percent": chart.Percent,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

type (
	pageData struct {
		Title       string
		Description string
		Shape       analytics.ShapeSummary
		Raw         rawView
		Blocks      []blockView
	}

	blockView struct {
		ID         string
		Title      string
		Kind       string
		Annotation string
		Policy     string
		Excluded   int
		Err        string
		Empty      bool

		ChartURL string
		Table    *tableView
		Heatmap  *heatmapView
		Slices   []sliceRow
	}

	tableView struct {
		RowLabel  string
		ColLabel  string
		Columns   []string
		Rows      []tableRow
		ColTotals []int
		Total     int
	}

	tableRow struct {
		Key   string
		Cells []int
		Total int
	}

	heatmapView struct {
		RowLabel string
		ColLabel string
		Columns  []string
		Rows     []heatRow
		Legend   []heatCell
	}

	heatRow struct {
		Key   string
		Cells []heatCell
	}

	heatCell struct {
		Value int
		Style template.CSS
	}

	sliceRow struct {
		Label string
		Count int
		Share float64
	}

	rawView struct {
		Enabled  bool
		Header   []string
		Rows     [][]string
		Total    int
		Page     int
		Pages    int
		From     int
		To       int
		// PrevPage and NextPage are zero when there is no such page.
		PrevPage int
		NextPage int
		PageSize int
	}
)

func newBlockView(blk dashboard.Block) blockView {
	v := blockView{
		ID:         blk.ID,
		Title:      blk.Title,
		Kind:       string(blk.Kind),
		Annotation: blk.Annotation,
		Policy:     blk.Policy.String(),
	}
	if blk.Err != nil {
		v.Err = "This block could not be computed."
		return v
	}
	v.Excluded = blk.Excluded()
	v.Empty = blk.Empty()
	if v.Empty {
		return v
	}

	if blk.HasChart() {
		v.ChartURL = "/charts/" + url.PathEscape(blk.ID) + ".svg"
	}
	switch {
	case blk.Kind == dashboard.KindTable && blk.CrossTab != nil:
		v.Table = newTableView(*blk.CrossTab)
	case blk.Kind == dashboard.KindHeatmap && blk.CrossTab != nil:
		v.Heatmap = newHeatmapView(chart.NewHeatmap(*blk.CrossTab))
	case blk.Kind == dashboard.KindPie && blk.Flags != nil:
		for _, c := range blk.Flags.Counts {
			v.Slices = append(v.Slices, sliceRow{Label: c.Flag.String(), Count: c.Count, Share: blk.Flags.Share(c.Flag)})
		}
	}
	return v
}

func newTableView(ct analytics.CrossTabulation) *tableView {
	tv := &tableView{
		RowLabel:  ct.RowColumn,
		ColLabel:  ct.ColColumn,
		Columns:   make([]string, len(ct.ColKeys)),
		ColTotals: make([]int, len(ct.ColKeys)),
		Total:     ct.Sum(),
	}
	for i, key := range ct.RowKeys {
		tv.Rows = append(tv.Rows, tableRow{Key: core.KeyLabel(key), Cells: ct.Cells[i], Total: ct.RowTotal(key)})
	}
	for j, key := range ct.ColKeys {
		tv.Columns[j] = core.KeyLabel(key)
		tv.ColTotals[j] = ct.ColTotal(key)
	}
	return tv
}

func newHeatmapView(hm chart.Heatmap) *heatmapView {
	hv := &heatmapView{RowLabel: hm.RowLabel, ColLabel: hm.ColLabel, Columns: hm.Columns}
	for _, r := range hm.Rows {
		row := heatRow{Key: r.Key}
		for _, c := range r.Cells {
			row.Cells = append(row.Cells, toHeatCell(c))
		}
		hv.Rows = append(hv.Rows, row)
	}
	for _, c := range hm.Legend {
		hv.Legend = append(hv.Legend, toHeatCell(c))
	}
	return hv
}

// toHeatCell builds the inline style. Fill and Text are always "#rrggbb"
// from chart.Interpolate, so they are safe to mark as CSS.
func toHeatCell(c chart.HeatCell) heatCell {
	return heatCell{
		Value: c.Value,
		Style: template.CSS("background-color:" + c.Fill + ";color:" + c.Text),
	}
}

// newRawView describes one page of raw rows. page is 1-based.
func newRawView(header []string, rows [][]string, total, page, size int) rawView {
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	v := rawView{
		Enabled:  true,
		Header:   header,
		Rows:     rows,
		Total:    total,
		Page:     page,
		Pages:    pages,
		PageSize: size,
	}
	if total > 0 {
		v.From = (page-1)*size + 1
		v.To = v.From + len(rows) - 1
	}
	if page > 1 {
		v.PrevPage = page - 1
	}
	if page < pages {
		v.NextPage = page + 1
	}
	return v
}
