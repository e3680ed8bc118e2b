package chart

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/itfintrack/itfintrack/internal/domain"
)

// minShare is the smallest slice, in percent, drawn on its own; smaller ones are merged into "Other"
const minShare = 1.0

// Renderer draws report breakdowns with go-chart
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer creates a renderer with the default canvas size
func NewRenderer() *Renderer {
	return &Renderer{Width: 800, Height: 800}
}

// RenderBreakdown writes a PNG pie chart of lines to w. An empty breakdown renders a placeholder.
func (r *Renderer) RenderBreakdown(w io.Writer, title string, lines []domain.BreakdownLine) error {
	pie := chart.PieChart{
		Title:  title,
		Width:  r.Width,
		Height: r.Height,
		Values: pieValues(lines),
		Background: chart.Style{
			Padding: chart.Box{
				Top:    50,
				Left:   50,
				Right:  50,
				Bottom: 50,
			},
			FillColor: chart.ColorWhite,
		},
	}

	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render breakdown chart: %w", err)
	}
	return nil
}

func pieValues(lines []domain.BreakdownLine) []chart.Value {
	total := 0.0
	for _, l := range lines {
		if f := l.Total.InexactFloat64(); f > 0 {
			total += f
		}
	}

	if total == 0 {
		return []chart.Value{{
			Label: "No expenses",
			Value: 1,
			Style: chart.Style{FillColor: drawing.ColorFromHex("dddddd")},
		}}
	}

	values := make([]chart.Value, 0, len(lines))
	other := 0.0
	for _, l := range lines {
		amount := l.Total.InexactFloat64()
		if amount <= 0 {
			continue
		}
		share := amount / total * 100
		if share < minShare {
			other += amount
			continue
		}
		label := l.Label
		if label == "" {
			label = "Unassigned"
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %s (%.1f%%)", label, l.Total.StringFixed(2), share),
			Value: amount,
			Style: chart.Style{
				FontSize:  12,
				FontColor: chart.ColorBlack,
			},
		})
	}
	if other > 0 {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("Other (%.1f%%)", other/total*100),
			Value: other,
		})
	}
	return values
}
