package output

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/rainfall-cli/internal/boundary"
	"github.com/forest-guardian/rainfall-cli/internal/raster"
	"github.com/sirupsen/logrus"
)

const (
	legendWidth   = 240
	legendHeight  = 84
	legendMargin  = 12
	legendPadding = 12
	colorBarH     = 14
)

var outlineColor = color.RGBA{B: 255, A: 255}

type MapOptions struct {
	Title       string
	LegendTitle string
}

// CreateMapImage colours the raster with the palette, outlines the boundary in
// blue and overlays a legend in the bottom-left corner.
func CreateMapImage(r *raster.Raster, b *boundary.Boundary, p *Palette, opts MapOptions, outputPath string) error {
	if r.Width == 0 || r.Height == 0 {
		return fmt.Errorf("raster is empty")
	}
	if opts.LegendTitle == "" {
		opts.LegendTitle = "Rainfall (mm)"
	}

	dc := gg.NewContext(r.Width, r.Height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(colorize(r, p), 0, 0)

	if b != nil {
		if err := drawOutline(dc, r, b); err != nil {
			return err
		}
	}

	if opts.Title != "" {
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(opts.Title, float64(r.Width)/2, 16, 0.5, 0.5)
	}

	if r.Width >= legendWidth+2*legendMargin && r.Height >= legendHeight+2*legendMargin {
		drawLegend(dc, p, opts.LegendTitle, legendMargin, float64(r.Height-legendHeight-legendMargin))
	} else {
		logrus.Warnf("map %dx%d too small for the legend, skipping it", r.Width, r.Height)
	}

	if err := ensureParent(outputPath); err != nil {
		return err
	}
	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save map image: %w", err)
	}
	logrus.Infof("map image created at %s", outputPath)
	return nil
}

func colorize(r *raster.Raster, p *Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v, ok := r.At(x, y)
			if !ok {
				continue
			}
			img.SetRGBA(x, y, p.At(v))
		}
	}
	return img
}

func drawOutline(dc *gg.Context, r *raster.Raster, b *boundary.Boundary) error {
	for _, polygon := range b.Polygons() {
		for _, ring := range polygon {
			dc.NewSubPath()
			for _, pt := range ring {
				x, y, err := r.LonLatToPixel(pt.X(), pt.Y())
				if err != nil {
					return err
				}
				dc.LineTo(x, y)
			}
			dc.ClosePath()
		}
	}
	dc.SetColor(outlineColor)
	dc.SetLineWidth(1.5)
	dc.Stroke()
	return nil
}

func drawLegend(dc *gg.Context, p *Palette, title string, x, y float64) {
	dc.SetRGBA(1, 1, 1, 0.9)
	dc.DrawRoundedRectangle(x, y, legendWidth, legendHeight, 4)
	dc.Fill()

	dc.SetColor(color.Black)
	dc.DrawStringAnchored(title, x+legendPadding, y+legendPadding+6, 0, 0.5)

	barX := x + legendPadding
	barY := y + legendPadding + 22
	barW := legendWidth - 2*legendPadding
	for i := 0; i < barW; i++ {
		v := p.Min + (p.Max-p.Min)*float64(i)/float64(barW-1)
		dc.SetColor(p.At(v))
		dc.DrawRectangle(barX+float64(i), barY, 1, colorBarH)
		dc.Fill()
	}

	labels := p.LegendLabels()
	labelY := barY + colorBarH + 14
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(labels[0], barX, labelY, 0, 0.5)
	dc.DrawStringAnchored(labels[1], barX+float64(barW)/2, labelY, 0.5, 0.5)
	dc.DrawStringAnchored(labels[2], barX+float64(barW), labelY, 1, 0.5)
}
