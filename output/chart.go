package output

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

type LinePoint struct {
	Time  time.Time
	Value float64
}

type Line struct {
	Name   string
	Points []LinePoint
}

type ChartOptions struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

// CreateSeriesChart draws one line per series against time. The legend is only
// shown when there is more than one line.
func CreateSeriesChart(lines []Line, opts ChartOptions, outputPath string) error {
	if len(lines) == 0 || len(lines[0].Points) == 0 {
		return fmt.Errorf("no data to chart")
	}
	if opts.XLabel == "" {
		opts.XLabel = "Date"
	}
	if opts.YLabel == "" {
		opts.YLabel = "Rainfall (mm)"
	}
	if opts.Width == 0 {
		opts.Width = 14 * vg.Inch
	}
	if opts.Height == 0 {
		opts.Height = 6 * vg.Inch
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	for i, l := range lines {
		if len(l.Points) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(l.Points))
		for j, pt := range l.Points {
			xys[j].X = float64(pt.Time.Unix())
			xys[j].Y = pt.Value
		}

		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("failed to build line %q: %w", l.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Color = plotutil.Color(i)
		points.Shape = draw.CircleGlyph{}
		points.Radius = vg.Points(2)

		p.Add(line, points)
		if len(lines) > 1 {
			p.Legend.Add(l.Name, line, points)
		}
	}
	p.Legend.Top = true

	if err := ensureParent(outputPath); err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, outputPath); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	logrus.Infof("chart created at %s", outputPath)
	return nil
}
