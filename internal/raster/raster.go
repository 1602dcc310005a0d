package raster

import (
	"fmt"
	"math"

	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/paulmach/orb"
)

const maxGridDimension = 8192

// Raster is a single-band grid in geographic coordinates.
type Raster struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	Values       []float64
	NoData       float64
	HasNoData    bool
}

func (r *Raster) At(x, y int) (float64, bool) {
	if x < 0 || x >= r.Width || y < 0 || y >= r.Height {
		return 0, false
	}
	v := r.Values[y*r.Width+x]
	if math.IsNaN(v) || (r.HasNoData && v == r.NoData) {
		return v, false
	}
	return v, true
}

// PixelToLonLat returns the coordinates of the pixel corner (x, y).
func (r *Raster) PixelToLonLat(x, y float64) (float64, float64) {
	gt := r.GeoTransform
	lon := gt[0] + x*gt[1] + y*gt[2]
	lat := gt[3] + x*gt[4] + y*gt[5]
	return lon, lat
}

// LonLatToPixel inverts a north-up geotransform.
func (r *Raster) LonLatToPixel(lon, lat float64) (float64, float64, error) {
	gt := r.GeoTransform
	if gt[2] != 0 || gt[4] != 0 {
		return 0, 0, fmt.Errorf("rotated geotransforms are not supported")
	}
	if gt[1] == 0 || gt[5] == 0 {
		return 0, 0, fmt.Errorf("degenerate geotransform %v", gt)
	}
	return (lon - gt[0]) / gt[1], (lat - gt[3]) / gt[5], nil
}

type Stats struct {
	Min   float64
	Max   float64
	Mean  float64
	Count int
}

func (r *Raster) Stats() Stats {
	stats := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v, ok := r.At(x, y)
			if !ok {
				continue
			}
			stats.Count++
			sum += v
			stats.Min = math.Min(stats.Min, v)
			stats.Max = math.Max(stats.Max, v)
		}
	}
	if stats.Count == 0 {
		return Stats{}
	}
	stats.Mean = sum / float64(stats.Count)
	return stats
}

// GridFor builds an EPSG:4326 pixel grid covering bound, width pixels wide and
// keeping the bound's aspect ratio.
func GridFor(bound orb.Bound, width int) (*earthengine.PixelGrid, error) {
	dx := bound.Max.X() - bound.Min.X()
	dy := bound.Max.Y() - bound.Min.Y()
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("bound %v has no area", bound)
	}
	if width <= 0 {
		return nil, fmt.Errorf("grid width must be positive")
	}
	if width > maxGridDimension {
		width = maxGridDimension
	}

	height := int(math.Round(float64(width) * dy / dx))
	if height < 1 {
		height = 1
	}
	if height > maxGridDimension {
		height = maxGridDimension
	}

	return &earthengine.PixelGrid{
		Dimensions: earthengine.GridDimensions{Width: width, Height: height},
		AffineTransform: earthengine.AffineTransform{
			ScaleX:     dx / float64(width),
			TranslateX: bound.Min.X(),
			ScaleY:     -dy / float64(height),
			TranslateY: bound.Max.Y(),
		},
		CrsCode: "EPSG:4326",
	}, nil
}

// GeoTransformOf converts a platform grid into GDAL geotransform order.
func GeoTransformOf(grid *earthengine.PixelGrid) [6]float64 {
	a := grid.AffineTransform
	return [6]float64{a.TranslateX, a.ScaleX, a.ShearX, a.TranslateY, a.ShearY, a.ScaleY}
}
