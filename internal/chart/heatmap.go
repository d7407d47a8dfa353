package chart

import (
	"fmt"
	"math"

	"insights/internal/analytics"
	"insights/internal/core"
)

// ylGnBu is the nine-step yellow-green-blue sequential scale.
var ylGnBu = [][3]float64{
	{0xff, 0xff, 0xd9},
	{0xed, 0xf8, 0xb1},
	{0xc7, 0xe9, 0xb4},
	{0x7f, 0xcd, 0xbb},
	{0x41, 0xb6, 0xc4},
	{0x1d, 0x91, 0xc0},
	{0x22, 0x5e, 0xa8},
	{0x25, 0x34, 0x94},
	{0x08, 0x1d, 0x58},
}

type (
	// HeatCell is one annotated cell of the grid.
	HeatCell struct {
		Value int
		Fill  string // "#rrggbb"
		Text  string // "#rrggbb", chosen for contrast with Fill
	}

	// HeatRow is one row of the grid.
	HeatRow struct {
		Key   string
		Cells []HeatCell
	}

	// Heatmap is a crosstab laid out for an HTML table, every absent
	// combination shown as zero.
	Heatmap struct {
		RowLabel string
		ColLabel string
		Columns  []string
		Rows     []HeatRow
		Max      int
		// Legend runs from 0 to Max in five evenly spaced stops.
		Legend []HeatCell
	}
)

// NewHeatmap colours every cell of ct relative to its largest value.
func NewHeatmap(ct analytics.CrossTabulation) Heatmap {
	hm := Heatmap{
		RowLabel: ct.RowColumn,
		ColLabel: ct.ColColumn,
		Columns:  make([]string, len(ct.ColKeys)),
		Rows:     make([]HeatRow, len(ct.RowKeys)),
		Max:      ct.Max(),
	}
	for j, key := range ct.ColKeys {
		hm.Columns[j] = core.KeyLabel(key)
	}
	for i, key := range ct.RowKeys {
		row := HeatRow{Key: core.KeyLabel(key), Cells: make([]HeatCell, len(ct.ColKeys))}
		for j := range ct.ColKeys {
			row.Cells[j] = heatCell(ct.Cells[i][j], hm.Max)
		}
		hm.Rows[i] = row
	}
	for k := 0; k <= 4; k++ {
		v := int(math.Round(float64(hm.Max) * float64(k) / 4))
		hm.Legend = append(hm.Legend, heatCell(v, hm.Max))
	}
	return hm
}

func heatCell(v, max int) HeatCell {
	t := 0.0
	if max > 0 {
		t = float64(v) / float64(max)
	}
	fill := Interpolate(t)
	text := "#000000"
	if t > 0.5 {
		text = "#ffffff"
	}
	return HeatCell{Value: v, Fill: fill, Text: text}
}

// Interpolate maps t in [0,1] onto the scale and returns "#rrggbb".
func Interpolate(t float64) string {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(ylGnBu)-1)
	i := int(math.Floor(pos))
	if i >= len(ylGnBu)-1 {
		i = len(ylGnBu) - 2
	}
	frac := pos - float64(i)
	a, b := ylGnBu[i], ylGnBu[i+1]
	var rgb [3]int
	for c := 0; c < 3; c++ {
		rgb[c] = int(math.Round(a[c] + (b[c]-a[c])*frac))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}
