// Package chart draws dashboard blocks as SVG with go-chart, and lays out
// the heatmap as a colour grid for HTML.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"insights/internal/core"
	"insights/internal/dashboard"
)

const (
	defaultWidth  = 1000
	defaultHeight = 600
)

var (
	// ErrNoData is returned for a block with nothing to draw.
	ErrNoData = errors.New("no data to chart")
	// ErrNotChartable is returned for blocks shown as tables or grids.
	ErrNotChartable = errors.New("block has no chart")
)

// ContentType is the media type Render writes.
const ContentType = "image/svg+xml"

// Render writes blk as an SVG document.
func Render(w io.Writer, blk dashboard.Block) error {
	if blk.Err != nil {
		return fmt.Errorf("render %s: %w", blk.ID, blk.Err)
	}
	if !blk.HasChart() {
		return fmt.Errorf("render %s: %w", blk.ID, ErrNotChartable)
	}
	if blk.Empty() {
		return fmt.Errorf("render %s: %w", blk.ID, ErrNoData)
	}

	var err error
	switch blk.Kind {
	case dashboard.KindBar:
		err = renderBar(w, blk)
	case dashboard.KindLine:
		err = renderLine(w, blk)
	case dashboard.KindPie:
		err = renderPie(w, blk)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", blk.ID, err)
	}
	return nil
}

func renderBar(w io.Writer, blk dashboard.Block) error {
	d := blk.Distribution
	if d == nil {
		return ErrNoData
	}
	color := colorAt(blk.Colors, 0)
	bars := make([]gochart.Value, 0, len(d.Counts))
	maxV := 0.0
	for _, c := range d.Counts {
		v := float64(c.Count)
		maxV = math.Max(maxV, v)
		bars = append(bars, gochart.Value{
			Value: v,
			Label: core.KeyLabel(c.Key),
			Style: gochart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1},
		})
	}

	xStyle := gochart.Style{}
	bottom := 40
	if blk.Rotate {
		xStyle.TextRotationDegrees = 90
		bottom = 140
	}

	graph := gochart.BarChart{
		Title:        blk.Title,
		Width:        defaultWidth,
		Height:       defaultHeight,
		BarWidth:     barWidth(len(bars)),
		Background:   gochart.Style{Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: bottom}},
		XAxis:        xStyle,
		YAxis:        gochart.YAxis{Name: blk.YLabel, Range: &gochart.ContinuousRange{Min: 0, Max: niceMax(maxV)}, Ticks: niceTicks(0, niceMax(maxV), 6)},
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}
	return graph.Render(gochart.SVG, w)
}

func renderLine(w io.Writer, blk dashboard.Block) error {
	tl := blk.Timeline
	if tl == nil {
		return ErrNoData
	}
	n := len(tl.Buckets)
	xs := make([]float64, n)
	ys := make([]float64, n)
	ticks := make([]gochart.Tick, 0, n+1)
	maxV := 0.0
	for i, b := range tl.Buckets {
		x := float64(i + 1)
		xs[i] = x
		ys[i] = float64(b.Count)
		maxV = math.Max(maxV, ys[i])
		ticks = append(ticks, gochart.Tick{Value: x, Label: b.Month.String()})
	}
	// A single month still needs a non-zero x range.
	minR, maxR := 0.5, float64(n)+0.5
	if n == 1 {
		maxR = 2.0
		ticks = append(ticks, gochart.Tick{Value: 2, Label: ""})
	}

	color := colorAt(blk.Colors, 0)
	tickStyle := gochart.Style{}
	bottom := 40
	if blk.Rotate {
		tickStyle.TextRotationDegrees = 90
		bottom = 80
	}

	graph := gochart.Chart{
		Title:      blk.Title,
		Width:      defaultWidth,
		Height:     defaultHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: bottom}},
		XAxis: gochart.XAxis{
			Name:      blk.XLabel,
			Ticks:     ticks,
			Range:     &gochart.ContinuousRange{Min: minR, Max: maxR},
			TickStyle: tickStyle,
		},
		YAxis: gochart.YAxis{
			Name:  blk.YLabel,
			Range: &gochart.ContinuousRange{Min: 0, Max: niceMax(maxV)},
			Ticks: niceTicks(0, niceMax(maxV), 6),
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    blk.YLabel,
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeColor: color,
					StrokeWidth: 2,
					DotWidth:    4,
					DotColor:    color,
				},
			},
		},
	}
	return graph.Render(gochart.SVG, w)
}

func renderPie(w io.Writer, blk dashboard.Block) error {
	fd := blk.Flags
	if fd == nil {
		return ErrNoData
	}
	values := make([]gochart.Value, 0, len(fd.Counts))
	for i, c := range fd.Counts {
		if c.Count == 0 {
			continue
		}
		color := colorAt(blk.Colors, i)
		values = append(values, gochart.Value{
			Value: float64(c.Count),
			Label: fmt.Sprintf("%s %s", c.Flag, Percent(fd.Share(c.Flag))),
			Style: gochart.Style{FillColor: color, StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		})
	}
	if len(values) == 0 {
		return ErrNoData
	}

	graph := gochart.PieChart{
		Title:  blk.Title,
		Width:  800,
		Height: 600,
		Values: values,
	}
	return graph.Render(gochart.SVG, w)
}

// Percent formats a share the way the pie labels show it ("75.0%").
func Percent(share float64) string {
	return fmt.Sprintf("%1.1f%%", share)
}

func colorAt(colors []string, i int) drawing.Color {
	if len(colors) == 0 {
		return gochart.ColorBlue
	}
	return drawing.ColorFromHex(colors[i%len(colors)])
}

func barWidth(n int) int {
	switch {
	case n <= 8:
		return 60
	case n <= 20:
		return 30
	default:
		return 12
	}
}

// niceMax rounds the top of the y axis up so the tallest bar has headroom
// and an all-zero series still has a non-zero range.
func niceMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	step := tickStep(0, v*1.1, 6)
	return math.Ceil(v*1.1/step) * step
}

func tickStep(min, max float64, n int) float64 {
	span := max - min
	if span <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n-1))))
	best, bestScore := mag, math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		count := math.Ceil(span / step)
		if score := math.Abs(count - float64(n)); score < bestScore {
			best, bestScore = step, score
		}
	}
	// Counts are whole numbers.
	if best < 1 {
		best = 1
	}
	return best
}

// niceTicks spaces about n integer-friendly ticks across [min, max].
func niceTicks(min, max float64, n int) []gochart.Tick {
	step := tickStep(min, max, n)
	var ticks []gochart.Tick
	for v := min; v <= max+step/2; v += step {
		ticks = append(ticks, gochart.Tick{Value: v, Label: formatTick(v)})
	}
	return ticks
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
