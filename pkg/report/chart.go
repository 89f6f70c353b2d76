package report

import (
	"fmt"
	"image/color"

	"github.com/chenBenjamin97/traffic-analyzer/pkg/colors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//swatches are the bar fill colors, one per category
var swatches = map[colors.Category]color.RGBA{
	colors.Blue:   {R: 30, G: 90, B: 220, A: 255},
	colors.Red:    {R: 210, G: 30, B: 30, A: 255},
	colors.Green:  {R: 40, G: 160, B: 60, A: 255},
	colors.Yellow: {R: 230, G: 200, B: 20, A: 255},
	colors.White:  {R: 235, G: 235, B: 235, A: 255},
	colors.Black:  {R: 20, G: 20, B: 20, A: 255},
	colors.Gray:   {R: 128, G: 128, B: 128, A: 255},
	colors.Other:  {R: 170, G: 110, B: 200, A: 255},
}

//SaveHistogramChart draws one bar per category of the closed set and saves it. The image format
//follows the file extension (png, svg, pdf...).
func SaveHistogramChart(path string, s Summary) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Vehicle colors (%d vehicles, %d frames)", s.TotalVehicles, s.Frames)
	p.Y.Label.Text = "Vehicles"
	p.Y.Min = 0

	names := make([]string, len(colors.Categories))
	for i, category := range colors.Categories {
		names[i] = category.Title()

		values := make(plotter.Values, len(colors.Categories))
		values[i] = float64(s.ColorHistogram[category])

		bars, err := plotter.NewBarChart(values, vg.Points(30))
		if err != nil {
			return fmt.Errorf("SaveHistogramChart: %w", err)
		}
		bars.Color = swatches[category]
		bars.LineStyle.Width = vg.Points(0.5)
		p.Add(bars)
	}
	p.NominalX(names...)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("SaveHistogramChart: Could not save '%s', got '%w'", path, err)
	}

	return nil
}
