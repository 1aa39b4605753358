// Package charts renders the category breakdown as a PNG bar chart.
package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"expenses/internal/core"
	"expenses/internal/view"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no category data")

var barColor = drawing.ColorFromHex("4f46e5")

// Size of the rendered image in pixels.
type Size struct {
	Width, Height int
}

var DefaultSize = Size{Width: 800, Height: 400}

// CategoryBreakdown draws one bar per category total, in the given order.
func CategoryBreakdown(totals []view.CategoryTotal, size Size) ([]byte, error) {
	if len(totals) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(totals))
	lo, hi := 0.0, 0.0
	for _, t := range totals {
		v := t.Total.Float()
		lo, hi = min(lo, v), max(hi, v)
		label := t.Category
		if label == "" {
			label = "?"
		}
		bars = append(bars, chart.Value{
			Label: label,
			Value: v,
			Style: chart.Style{
				FillColor:   barColor,
				StrokeColor: barColor,
			},
		})
	}
	if hi == lo {
		hi = lo + 1
	}

	graph := chart.BarChart{
		Width:    size.Width,
		Height:   size.Height,
		BarWidth: barWidth(size.Width, len(bars)),
		Background: chart.Style{
			Padding:   chart.Box{Top: 30, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return core.FromFloat(f).Display()
				}
				return ""
			},
			Style: chart.Style{FontSize: 10, FontColor: chart.ColorBlack},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render category chart: %w", err)
	}
	return buf.Bytes(), nil
}

func barWidth(width, n int) int {
	w := width / (2*n + 1)
	return min(max(w, 10), 80)
}
