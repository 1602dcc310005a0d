package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/forest-guardian/rainfall-cli/internal/config"
	"github.com/forest-guardian/rainfall-cli/internal/earthengine"
	"github.com/forest-guardian/rainfall-cli/internal/period"
	"github.com/forest-guardian/rainfall-cli/internal/properties"
	"github.com/forest-guardian/rainfall-cli/internal/raster"
	"github.com/forest-guardian/rainfall-cli/internal/weather"
	"github.com/forest-guardian/rainfall-cli/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareGeoJSON = `{"type":"Polygon","coordinates":[[[3,5],[13,5],[13,13],[3,13],[3,5]]]}`

type fakePlatform struct {
	mu          sync.Mutex
	valueCalls  int
	boundaryHit int
	pixels      *earthengine.PixelsRequest
	pixelsErr   error
	noData      bool
}

func (f *fakePlatform) ComputeValue(_ context.Context, expr *earthengine.Expression) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valueCalls++

	switch expr.Values[expr.Result].FunctionInvocationValue.FunctionName {
	case "Collection.geometry":
		f.boundaryHit++
		return json.RawMessage(squareGeoJSON), nil
	case "Image.reduceRegion":
		if f.noData {
			return json.RawMessage(`{"precipitation": null}`), nil
		}
		return json.RawMessage(`{"precipitation": 42.5}`), nil
	}
	return nil, errors.New("unexpected expression")
}

func (f *fakePlatform) ComputePixels(_ context.Context, req earthengine.PixelsRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pixels = &req
	if f.pixelsErr != nil {
		return nil, f.pixelsErr
	}
	return []byte("GeoTIFF"), nil
}

// decodeFromGrid stands in for GDAL by building a raster on the requested grid.
func (f *fakePlatform) decodeFromGrid(data []byte, path string) (*raster.Raster, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, err
	}
	grid := f.pixels.Grid
	w, h := grid.Dimensions.Width, grid.Dimensions.Height
	values := make([]float64, w*h)
	for i := range values {
		values[i] = float64(i % 300)
	}
	return &raster.Raster{Width: w, Height: h, GeoTransform: raster.GeoTransformOf(grid), Values: values}, nil
}

type fakeStation struct{ err error }

func (s fakeStation) FetchMonthlyTotals(_ context.Context, lat, lon float64, months []period.MonthRange) ([]weather.MonthlyTotal, error) {
	if s.err != nil {
		return nil, s.err
	}
	totals := make([]weather.MonthlyTotal, len(months))
	for i, m := range months {
		totals[i] = weather.MonthlyTotal{Month: m, Value: lat + lon, Days: 28, Valid: true}
	}
	return totals, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Analysis = config.Analysis{
		Country:         "Nigeria",
		StartYear:       2018,
		EndYear:         2018,
		BoundaryDataset: "FAO/GAUL/2015/level0",
		BoundaryField:   "ADM0_NAME",
		Dataset:         "UCSB-CHG/CHIRPS/DAILY",
		Band:            "precipitation",
		Scale:           5000,
		Workers:         4,
		MapWidth:        200,
		NoCache:         true,
	}
	cfg.Vis = config.Vis{Min: 0, Max: 300, Palette: []string{"lightblue", "blue", "yellow", "orange", "red"}}
	return cfg
}

func TestRunRainfallAnalysis(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	platform := &fakePlatform{}

	result, err := RunRainfallAnalysis(context.Background(), testConfig(), Deps{
		Platform:     platform,
		Station:      fakeStation{},
		DecodeRaster: platform.decodeFromGrid,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, platform.boundaryHit)
	assert.Equal(t, 13, platform.valueCalls)
	require.Len(t, result.Series.Points, 12)
	assert.Equal(t, 12, result.Stats.ValidMonths)
	assert.InDelta(t, 42.5, result.Stats.Mean, 1e-9)

	require.NotNil(t, platform.pixels)
	assert.Equal(t, earthengine.FormatGeoTIFF, platform.pixels.FileFormat)
	assert.Equal(t, 200, platform.pixels.Grid.Dimensions.Width)
	assert.Equal(t, 160, platform.pixels.Grid.Dimensions.Height)
	assert.True(t, result.Mean.HasNoData)

	require.Len(t, result.Station, 12)
	assert.InDelta(t, 17.0, result.Station[0].Value, 1e-9)

	for _, path := range []string{result.Files.SeriesCSV, result.Files.Chart, result.Files.MeanTIFF, result.Files.MeanMap, result.Files.GeoJSON} {
		assert.FileExists(t, path)
	}
	assert.Contains(t, result.Files.SeriesCSV, filepath.Join("data", "result", "Nigeria"))

	rows, err := output.LoadSeriesCSV(result.Files.SeriesCSV)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, "2018-01", rows[0].Month)
	v, ok := rows[11].Station()
	assert.True(t, ok)
	assert.InDelta(t, 17.0, v, 1e-9)
}

func TestRunRainfallAnalysis_StationFailureIsNotFatal(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	platform := &fakePlatform{}

	result, err := RunRainfallAnalysis(context.Background(), testConfig(), Deps{
		Platform:     platform,
		Station:      fakeStation{err: errors.New("archive down")},
		DecodeRaster: platform.decodeFromGrid,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Station)
}

func TestRunRainfallAnalysis_PixelsFailure(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	platform := &fakePlatform{pixelsErr: errors.New("quota exceeded")}

	_, err := RunRainfallAnalysis(context.Background(), testConfig(), Deps{
		Platform:     platform,
		DecodeRaster: platform.decodeFromGrid,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestLoadBoundary_LocalFileByName(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ROOT_PATH", root)
	dir := filepath.Join(root, "data", "geojsons")
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	fc := fmt.Sprintf(`{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"ADM0_NAME":"Nigeria"},"geometry":%s},
		{"type":"Feature","properties":{"ADM0_NAME":"Ghana"},"geometry":{"type":"Polygon","coordinates":[[[-3,5],[1,5],[1,11],[-3,11],[-3,5]]]}}
	]}`, squareGeoJSON)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "west_africa.geojson"), []byte(fc), 0644))

	cfg := testConfig()
	cfg.Analysis.BoundaryFile = "west_africa"
	platform := &fakePlatform{}

	b, err := LoadBoundary(context.Background(), cfg, platform)
	require.NoError(t, err)
	assert.Equal(t, 0, platform.valueCalls)
	assert.Equal(t, 3.0, b.Bound().Min.X())
	assert.Equal(t, 13.0, b.Bound().Max.X())

	names, err := ListBoundaryFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"west_africa"}, names)

	cfg.Analysis.BoundaryFile = "missing"
	_, err = LoadBoundary(context.Background(), cfg, platform)
	assert.Error(t, err)
}

func TestNewStationSource(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, NewStationSource(cfg))

	cfg.Station.Enabled = true
	cfg.Station.URL = "http://localhost/archive"
	assert.NotNil(t, NewStationSource(cfg))
}

func TestSummary(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	platform := &fakePlatform{}
	result, err := RunRainfallAnalysis(context.Background(), testConfig(), Deps{
		Platform:     platform,
		DecodeRaster: platform.decodeFromGrid,
	})
	require.NoError(t, err)

	summary := Summary(result)
	assert.Contains(t, summary, "Region: Nigeria (2018)")
	assert.Contains(t, summary, "Months with data: 12/12")
	assert.Contains(t, summary, "Mean monthly rainfall: 42.50 mm")
	assert.NotContains(t, summary, "Station comparison")

	assert.Contains(t, DescribeBoundary(result.Boundary), "Centroid: lon 8.0000, lat 9.0000")
}

func TestRunRainfallAnalysis_NoMonthWithData(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	platform := &fakePlatform{noData: true}

	result, err := RunRainfallAnalysis(context.Background(), testConfig(), Deps{
		Platform:     platform,
		DecodeRaster: platform.decodeFromGrid,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.ValidMonths)
	assert.Empty(t, result.Files.Chart)
	assert.NoFileExists(t, filepath.Join(properties.ResultPath("Nigeria"), "monthly_rainfall.png"))
	assert.FileExists(t, result.Files.MeanMap)

	rows, err := output.LoadSeriesCSV(result.Files.SeriesCSV)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	for _, row := range rows {
		assert.Empty(t, row.RainfallMM, row.Month)
	}
	assert.NotContains(t, Summary(result), "Chart:")
}
