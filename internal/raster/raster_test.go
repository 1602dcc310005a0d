package raster

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRaster() *Raster {
	return &Raster{
		Width:        3,
		Height:       2,
		GeoTransform: [6]float64{2.5, 0.5, 0, 14, 0, -0.5},
		Values:       []float64{10, 20, -9999, 40, math.NaN(), 60},
		NoData:       -9999,
		HasNoData:    true,
	}
}

func TestRaster_At(t *testing.T) {
	r := sampleRaster()

	v, ok := r.At(1, 0)
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	_, ok = r.At(2, 0)
	assert.False(t, ok, "no-data pixel")
	_, ok = r.At(1, 1)
	assert.False(t, ok, "NaN pixel")
	_, ok = r.At(3, 0)
	assert.False(t, ok, "out of bounds")
}

func TestRaster_CoordinateRoundTrip(t *testing.T) {
	r := sampleRaster()

	lon, lat := r.PixelToLonLat(2, 1)
	assert.Equal(t, 3.5, lon)
	assert.Equal(t, 13.5, lat)

	x, y, err := r.LonLatToPixel(lon, lat)
	require.NoError(t, err)
	assert.Equal(t, 2.0, x)
	assert.Equal(t, 1.0, y)

	r.GeoTransform[2] = 0.1
	_, _, err = r.LonLatToPixel(lon, lat)
	assert.Error(t, err)
}

func TestRaster_Stats(t *testing.T) {
	stats := sampleRaster().Stats()
	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 10.0, stats.Min)
	assert.Equal(t, 60.0, stats.Max)
	assert.Equal(t, 32.5, stats.Mean)

	empty := &Raster{Width: 1, Height: 1, Values: []float64{math.NaN()}}
	assert.Equal(t, Stats{}, empty.Stats())
}

func TestGridFor_KeepsAspectRatio(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{2.5, 4}, Max: orb.Point{14.5, 14}}

	grid, err := GridFor(bound, 1200)
	require.NoError(t, err)
	assert.Equal(t, 1200, grid.Dimensions.Width)
	assert.Equal(t, 1000, grid.Dimensions.Height)
	assert.InDelta(t, 0.01, grid.AffineTransform.ScaleX, 1e-12)
	assert.InDelta(t, -0.01, grid.AffineTransform.ScaleY, 1e-12)
	assert.Equal(t, 2.5, grid.AffineTransform.TranslateX)
	assert.Equal(t, 14.0, grid.AffineTransform.TranslateY)
	assert.Equal(t, "EPSG:4326", grid.CrsCode)

	gt := GeoTransformOf(grid)
	assert.Equal(t, 2.5, gt[0])
	assert.Equal(t, 14.0, gt[3])
}

func TestGridFor_Invalid(t *testing.T) {
	_, err := GridFor(orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 2}}, 100)
	assert.Error(t, err)

	_, err = GridFor(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}}, 0)
	assert.Error(t, err)
}
